// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration commands: tublox config ...
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tublox/tublox-tui/internal/config"
)

// HandleConfig runs a config subcommand against the config file.
func HandleConfig(args Args) error {
	return RunConfig(args, os.Stdout)
}

func configPath(args Args) string {
	if args.ConfigPath != "" {
		return args.ConfigPath
	}
	return config.ConfigPathTOML()
}

// RunConfig dispatches args.Subcommand.
func RunConfig(args Args, out io.Writer) error {
	path := configPath(args)

	if (args.Subcommand == "get" && len(args.Positional) != 1) || (args.Subcommand == "set" && len(args.Positional) < 2) {
		return usageErr("config "+args.Subcommand, "usage: config get <key> | config set <key> <value>")
	}

	switch args.Subcommand {
	case "", "show":
		cfg, err := LoadConfig(args)
		if err != nil {
			return err
		}
		red := cfg.Redacted()
		if args.JSON {
			return NewJSONResponse("config show", red).Print(out)
		}
		fmt.Fprintf(out, "%s %s\n\n", TitleStyle.Render("Configuration"), MutedStyle.Render(path))
		fmt.Fprint(out, red.String())
		return nil

	case "path":
		fmt.Fprintln(out, path)
		return nil

	case "init":
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
		if err := config.SaveTOML(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", SuccessStyle.Render("Wrote"), path)
		return nil

	case "get":
		cfg, err := LoadConfig(args)
		if err != nil {
			return err
		}
		key := args.Positional[0]
		if isSecretKey(key) {
			cfg = cfg.Redacted()
		}
		v, err := cfg.Get(key)
		if err != nil {
			return &UsageError{Command: "config get", Reason: err.Error()}
		}
		fmt.Fprintln(out, formatValue(v))
		return nil

	case "set":
		cfg, err := config.ReadFile(path)
		if err != nil {
			return err
		}
		key, value := args.Positional[0], strings.Join(args.Positional[1:], " ")
		if err := cfg.Set(key, value); err != nil {
			return &UsageError{Command: "config set", Reason: err.Error() + "\nkeys: " + strings.Join(config.Keys(), ", ")}
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.SaveTOML(cfg, path); err != nil {
			return err
		}
		shown := value
		if isSecretKey(key) {
			shown = "(hidden)"
		}
		fmt.Fprintf(out, "%s %s = %s\n", SuccessStyle.Render("Set"), key, shown)
		return nil

	default:
		return usageErr("config", fmt.Sprintf("unknown subcommand %q", args.Subcommand))
	}
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), "api_key")
}

func formatValue(v any) string {
	switch v := v.(type) {
	case []string:
		return strings.Join(v, " ")
	default:
		return fmt.Sprint(v)
	}
}
