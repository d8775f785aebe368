// tublox - terminal client for the Tublox Roblox engineering assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tublox/tublox-tui/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cmd, args, err := cli.Parse(argv)
	if err != nil {
		cli.DisplayError(os.Stderr, err, args.JSON)
		return cli.ExitCode(err)
	}

	err = dispatch(cmd, args)
	if err != nil {
		cli.DisplayError(os.Stderr, err, args.JSON)
	}
	return cli.ExitCode(err)
}

func dispatch(cmd cli.Command, args cli.Args) error {
	switch cmd {
	case cli.CmdTUI:
		// Bubble Tea reads Ctrl+C as a key; SIGTERM still ends the program.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
		defer stop()
		return cli.HandleTUI(ctx, args)

	case cli.CmdChat:
		// The REPL installs its own handler so Ctrl+C cancels a reply
		// instead of exiting.
		return cli.HandleChat(context.Background(), args)

	case cli.CmdAsk:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return cli.HandleAsk(ctx, args)

	case cli.CmdVoice:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return cli.HandleVoice(ctx, args)

	case cli.CmdSessions:
		return cli.HandleSessions(args)

	case cli.CmdConfig:
		return cli.HandleConfig(args)

	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return nil

	default:
		cli.PrintUsage(os.Stdout)
		return nil
	}
}
