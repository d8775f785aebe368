// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompts

import "strings"

// Template is a canned starting prompt for a common task.
type Template struct {
	ID          string
	Name        string
	Description string
	Prompt      string
}

// Templates lists the built-in project templates in display order.
var Templates = []Template{
	{
		ID:          "asset-source",
		Name:        "Asset Finder",
		Description: "Find high-quality models, plugins, or audio on the Creator Store.",
		Prompt:      `I need to find a high-quality [Asset Type, e.g., "Round UI Plugin" or "Low Poly Tree Pack"] on the Roblox Creator Store. Can you find some links for me?`,
	},
	{
		ID:          "refactor-pro",
		Name:        "Refactor Core",
		Description: "Modernize messy scripts into high-performance, event-driven Luau.",
		Prompt:      "I have a script that uses wait() and seems to lag my game. Can you refactor it using modern best practices and the task library? [paste code here]",
	},
	{
		ID:          "security-audit",
		Name:        "Security Audit",
		Description: "Scan your remotes and logic for potential exploits.",
		Prompt:      "Can you check my RemoteEvent logic for security flaws? I want to make sure hackers can't abuse this. [paste code here]",
	},
}

// FindTemplate looks a template up by ID or, failing that, by
// case-insensitive name.
func FindTemplate(key string) (Template, bool) {
	key = strings.TrimSpace(key)
	for _, t := range Templates {
		if t.ID == key {
			return t, true
		}
	}
	for _, t := range Templates {
		if strings.EqualFold(t.Name, key) {
			return t, true
		}
	}
	return Template{}, false
}

// TemplateIDs returns the IDs of all templates, for completion and help.
func TemplateIDs() []string {
	ids := make([]string, len(Templates))
	for i, t := range Templates {
		ids[i] = t.ID
	}
	return ids
}
