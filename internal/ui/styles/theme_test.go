// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewThemeFor(t *testing.T) {
	tests := []struct {
		mode    string
		dark    bool
		chroma  string
		glamour string
	}{
		{"dark", true, "monokai", "dark"},
		{"DARK", true, "monokai", "dark"},
		{"light", false, "github", "light"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			theme := NewThemeFor(tt.mode)
			if theme.IsDark != tt.dark {
				t.Errorf("IsDark = %v, want %v", theme.IsDark, tt.dark)
			}
			if got := theme.ChromaStyle(); got != tt.chroma {
				t.Errorf("ChromaStyle() = %q, want %q", got, tt.chroma)
			}
			if got := theme.GlamourStyle(); got != tt.glamour {
				t.Errorf("GlamourStyle() = %q, want %q", got, tt.glamour)
			}
		})
	}
}

func TestThemeStylesRender(t *testing.T) {
	theme := NewThemeFor("dark")
	for name, out := range map[string]string{
		"user":      theme.UserLabel.Render("You"),
		"assistant": theme.AssistantLabel.Render("Tublox AI"),
		"code":      theme.CodeLabelLua.Render("ROBLOX_LUAU_CORE"),
		"sources":   theme.SourcesTitle.Render("Platform Intelligence Links"),
	} {
		if out == "" {
			t.Errorf("%s style rendered empty output", name)
		}
	}
}

func TestRenderHelpers(t *testing.T) {
	tests := []struct {
		name   string
		out    string
		marker string
	}{
		{"success", RenderSuccess("saved"), StatusIndicators.Success},
		{"error", RenderError("failed"), StatusIndicators.Error},
		{"warning", RenderWarning("careful"), StatusIndicators.Warning},
		{"info", RenderInfo("note"), StatusIndicators.Info},
	}
	for _, tt := range tests {
		if !strings.Contains(tt.out, tt.marker) {
			t.Errorf("%s: %q missing marker %q", tt.name, tt.out, tt.marker)
		}
	}
}
