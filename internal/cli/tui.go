// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	"github.com/tublox/tublox-tui/internal/ui/chat"
)

// HandleTUI runs the full-screen interface. A missing API key is not fatal:
// the TUI opens and every send shows the stream error text.
func HandleTUI(ctx context.Context, args Args) error {
	app, err := Bootstrap(args)
	if err != nil {
		return err
	}
	defer app.Close()

	_ = app.Connect(ctx)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	app.Watch(watchCtx)

	return chat.Run(ctx, chat.Options{
		Manager:   app.Manager,
		Streamer:  app.Streamer,
		Config:    app.Config,
		Logger:    app.Logger,
		ModelName: app.Config.Gemini.Model,
	})
}
