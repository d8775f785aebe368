// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command-line parsing for tublox.
package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (overridden at build time with -ldflags).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdSessions
	CmdVoice
	CmdConfig
	CmdVersion
	CmdHelp
)

var commandNames = [...]string{
	CmdTUI:      "tui",
	CmdChat:     "chat",
	CmdAsk:      "ask",
	CmdSessions: "sessions",
	CmdVoice:    "voice",
	CmdConfig:   "config",
	CmdVersion:  "version",
	CmdHelp:     "help",
}

func (c Command) String() string {
	if int(c) >= 0 && int(c) < len(commandNames) {
		return commandNames[c]
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Model      string
	Storage    string
	Verbose    bool
	JSON       bool

	// Command-specific
	Query      string
	Subcommand string
	Positional []string
	NoSave     bool
	Render     bool
	Format     string
	Output     string

	// Raw holds the arguments after the command name.
	Raw []string
}

// boolFlags never consume the following argument.
var boolFlags = []string{
	"verbose", "v", "json", "no-save", "render", "r", "help", "h", "version",
}

const usageText = `tublox - terminal client for the Tublox Roblox engineering assistant

Usage:
  tublox                         Start the TUI (default)
  tublox tui                     Start the TUI
  tublox chat                    Interactive line-mode chat
  tublox ask "question"          Ask a single question
  tublox sessions [subcommand]   Manage saved sessions
  tublox voice                   Talk to the assistant through the microphone
  tublox config [subcommand]     Show or edit configuration
  tublox version                 Show version information
  tublox help                    Show this help

Ask options:
  --no-save                      Do not keep the exchange as a session
  -r, --render                   Render the finished answer as markdown

Session commands:
  tublox sessions list           List sessions, newest first
  tublox sessions show <id>      Print a session transcript
  tublox sessions delete <id>    Delete a session
  tublox sessions export <id>    Export a session
    -f, --format markdown|html|json
    -o, --output DIR
  tublox sessions search <text>  Find sessions by title or content

  <id> is a session number from "sessions list" or an id prefix.

Config commands:
  tublox config show             Print the effective configuration
  tublox config path             Print the config file path
  tublox config init             Write a default config file
  tublox config get <key>        Print one value (e.g. gemini.model)
  tublox config set <key> <val>  Change one value and save

Global options:
  -c, --config PATH              Config file (default ~/.tublox/config.toml)
  -m, --model NAME               Text model override
  --storage file|sqlite          Session store override
  -v, --verbose                  Log at debug level
  --json                         Machine-readable output where supported

Environment:
  TUBLOX_API_KEY, GEMINI_API_KEY, API_KEY   Gemini API key
  TUBLOX_MODEL                              Text model
  TUBLOX_STORAGE                            Session store backend
  TUBLOX_LOG_LEVEL                          Log level

Version: %s
`

// PrintUsage writes the usage text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "tublox version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses argv (without the program name) into a command and its
// arguments. Unknown commands and missing required arguments are returned
// as *UsageError.
func Parse(argv []string) (Command, Args, error) {
	p := NewArgParser(argv, boolFlags...)
	args := parseGlobalFlags(p)

	if p.AnyBool("help", "h") {
		return CmdHelp, args, nil
	}
	if p.BoolFlag("version") {
		return CmdVersion, args, nil
	}
	if p.PositionalCount() == 0 {
		return CmdTUI, args, nil
	}

	name := strings.ToLower(p.Subcommand())
	rest := p.PositionalFrom(1)
	args.Raw = rest

	switch name {
	case "tui":
		return CmdTUI, args, nil

	case "chat":
		return CmdChat, args, nil

	case "ask", "a":
		args.Query = strings.TrimSpace(strings.Join(rest, " "))
		if args.Query == "" {
			return CmdAsk, args, usageErr("ask", `a question is required, e.g. tublox ask "how do I tween a part?"`)
		}
		return CmdAsk, args, nil

	case "sessions", "session", "s":
		args.Subcommand, args.Positional = subcommand(rest, "list")
		switch args.Subcommand {
		case "list", "ls":
			args.Subcommand = "list"
		case "show", "delete", "rm", "export":
			if args.Subcommand == "rm" {
				args.Subcommand = "delete"
			}
			if len(args.Positional) == 0 {
				return CmdSessions, args, usageErr("sessions "+args.Subcommand, "a session number or id is required")
			}
		case "search":
			args.Query = strings.Join(args.Positional, " ")
			if args.Query == "" {
				return CmdSessions, args, usageErr("sessions search", "search text is required")
			}
		default:
			return CmdSessions, args, usageErr("sessions", fmt.Sprintf("unknown subcommand %q", args.Subcommand))
		}
		return CmdSessions, args, nil

	case "voice":
		return CmdVoice, args, nil

	case "config":
		args.Subcommand, args.Positional = subcommand(rest, "show")
		switch args.Subcommand {
		case "show", "path", "init":
		case "get":
			if len(args.Positional) != 1 {
				return CmdConfig, args, usageErr("config get", "exactly one key is required")
			}
		case "set":
			if len(args.Positional) < 2 {
				return CmdConfig, args, usageErr("config set", "a key and a value are required")
			}
		default:
			return CmdConfig, args, usageErr("config", fmt.Sprintf("unknown subcommand %q", args.Subcommand))
		}
		return CmdConfig, args, nil

	case "version":
		return CmdVersion, args, nil

	case "help":
		return CmdHelp, args, nil

	default:
		return CmdHelp, args, usageErr("", fmt.Sprintf("unknown command %q", name))
	}
}

func parseGlobalFlags(p *ArgParser) Args {
	return Args{
		ConfigPath: p.AnyFlag("config", "c"),
		Model:      p.AnyFlag("model", "m"),
		Storage:    p.Flag("storage"),
		Verbose:    p.AnyBool("verbose", "v"),
		JSON:       p.BoolFlag("json"),
		NoSave:     p.BoolFlag("no-save"),
		Render:     p.AnyBool("render", "r"),
		Format:     p.AnyFlag("format", "f"),
		Output:     p.AnyFlag("output", "o"),
	}
}

func subcommand(rest []string, def string) (string, []string) {
	if len(rest) == 0 {
		return def, nil
	}
	return strings.ToLower(rest[0]), rest[1:]
}
