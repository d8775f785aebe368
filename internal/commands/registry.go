// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tublox/tublox-tui/internal/config"
	"github.com/tublox/tublox-tui/internal/export"
	"github.com/tublox/tublox-tui/internal/prompts"
	"github.com/tublox/tublox-tui/internal/session"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command is one slash command.
type Command struct {
	// Name is the primary name including the slash, e.g. "/help".
	Name string

	Aliases []string

	Description string

	// Usage shows argument syntax, e.g. "/switch <id|number>".
	Usage string

	Args []ArgDef

	Handler func(ctx *Context, args []string) tea.Cmd

	// Category groups commands in help output.
	Category string
}

// ArgDef describes one positional argument.
type ArgDef struct {
	Name        string
	Required    bool
	Type        ArgType
	Description string

	// Values lists the choices for ArgTypeEnum.
	Values []string
}

// ArgType selects completion behavior.
type ArgType int

const (
	ArgTypeString   ArgType = iota // free-form
	ArgTypeSession                 // session id prefix or list number
	ArgTypeEnum                    // one of Values
	ArgTypeTemplate                // project template id
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a registry with the built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds or replaces a command.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get finds a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	return r.aliases[name]
}

// All returns every command sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// ByCategory groups commands by category, each group sorted by name.
func (r *Registry) ByCategory() map[string][]*Command {
	out := make(map[string][]*Command)
	for _, cmd := range r.All() {
		cat := cmd.Category
		if cat == "" {
			cat = "General"
		}
		out[cat] = append(out[cat], cmd)
	}
	return out
}

// Execute runs a parsed command. Parse errors become an ErrorMsg.
func (r *Registry) Execute(ctx *Context, res ParseResult) tea.Cmd {
	if res.Error != nil {
		return errorCmd(res.Error)
	}
	if res.Command == nil || res.Command.Handler == nil {
		return nil
	}
	if ctx != nil && ctx.Registry == nil {
		ctx.Registry = r
	}
	return res.Command.Handler(ctx, res.Args)
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Usage:       "/help [command]",
		Args:        []ArgDef{{Name: "command", Description: "Command to describe"}},
		Category:    "Navigation",
		Handler:     HandleHelp,
	})
	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit Tublox",
		Category:    "Navigation",
		Handler:     HandleQuit,
	})
	r.Register(&Command{
		Name:        "/clear",
		Aliases:     []string{"/cls"},
		Description: "Clear the screen",
		Category:    "Navigation",
		Handler:     HandleClear,
	})

	r.Register(&Command{
		Name:        "/new",
		Aliases:     []string{"/n"},
		Description: "Start a new engineering task",
		Category:    "Sessions",
		Handler:     HandleNew,
	})
	r.Register(&Command{
		Name:        "/delete",
		Aliases:     []string{"/rm"},
		Description: "Delete a session (default: current)",
		Usage:       "/delete [id|number]",
		Args:        []ArgDef{{Name: "session", Type: ArgTypeSession, Description: "Session id prefix or list number"}},
		Category:    "Sessions",
		Handler:     HandleDelete,
	})
	r.Register(&Command{
		Name:        "/sessions",
		Aliases:     []string{"/list", "/ls"},
		Description: "List sessions, newest first",
		Category:    "Sessions",
		Handler:     HandleSessions,
	})
	r.Register(&Command{
		Name:        "/switch",
		Aliases:     []string{"/s"},
		Description: "Switch to another session",
		Usage:       "/switch <id|number>",
		Args:        []ArgDef{{Name: "session", Required: true, Type: ArgTypeSession, Description: "Session id prefix or list number"}},
		Category:    "Sessions",
		Handler:     HandleSwitch,
	})
	r.Register(&Command{
		Name:        "/search",
		Aliases:     []string{"/find"},
		Description: "Search session titles and messages",
		Usage:       "/search <text>",
		Args:        []ArgDef{{Name: "text", Required: true, Description: "Text to look for"}},
		Category:    "Sessions",
		Handler:     HandleSearch,
	})

	r.Register(&Command{
		Name:        "/template",
		Aliases:     []string{"/t"},
		Description: "Insert a project template prompt",
		Usage:       "/template [" + joinIDs() + "]",
		Args:        []ArgDef{{Name: "template", Type: ArgTypeTemplate, Description: "Template id or name"}},
		Category:    "Tools",
		Handler:     HandleTemplate,
	})
	r.Register(&Command{
		Name:        "/copy",
		Aliases:     []string{"/cp"},
		Description: "Copy the last code block to the clipboard",
		Category:    "Tools",
		Handler:     HandleCopy,
	})
	r.Register(&Command{
		Name:        "/export",
		Description: "Export the current session to a file",
		Usage:       "/export [markdown|html|json]",
		Args: []ArgDef{{
			Name:        "format",
			Type:        ArgTypeEnum,
			Values:      []string{"markdown", "md", "html", "json"},
			Description: "Export format",
		}},
		Category: "Tools",
		Handler:  HandleExport,
	})
}

func joinIDs() string {
	return strings.Join(prompts.TemplateIDs(), "|")
}

// =============================================================================
// CONTEXT TYPE
// =============================================================================

// Context carries the dependencies handlers act on. Manager is required;
// the rest are optional.
type Context struct {
	Manager *session.Manager
	Config  *config.Config

	// Export configures /export. Nil uses export.DefaultOptions.
	Export *export.Options

	// Clipboard writes text to the system clipboard.
	Clipboard func(string) error

	Registry *Registry
}

// NewContext creates a context using the system clipboard.
func NewContext(mgr *session.Manager, cfg *config.Config) *Context {
	return &Context{
		Manager:   mgr,
		Config:    cfg,
		Clipboard: clipboard.WriteAll,
	}
}
