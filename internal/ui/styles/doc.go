// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling for the tublox terminal UI.

# Color System (colors.go)

All colors are Lip Gloss AdaptiveColor values so the palette follows the
terminal background:

  - Red - brand accent, the assistant label and Luau code labels
  - Blue - the user label and links
  - Emerald - success notices
  - Amber - warnings and streaming indicators
  - Rose - errors

# Theme (theme.go)

Theme bundles the rendered styles. NewTheme detects the color profile with
termenv; NewThemeFor forces a light or dark variant from configuration.

	theme := styles.NewThemeFor("auto")
	fmt.Println(theme.AssistantLabel.Render("Tublox AI"))
*/
package styles
