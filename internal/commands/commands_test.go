// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tublox/tublox-tui/internal/export"
	"github.com/tublox/tublox-tui/internal/model"
	"github.com/tublox/tublox-tui/internal/prompts"
	"github.com/tublox/tublox-tui/internal/session"
)

// =============================================================================
// FIXTURES
// =============================================================================

func tick() func() time.Time {
	t := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

type fixture struct {
	reg     *Registry
	parser  *Parser
	mgr     *session.Manager
	ctx     *Context
	copied  []string
	copyErr error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{reg: NewRegistry()}
	f.parser = NewParser(f.reg)
	f.mgr = session.NewManager(nil, session.Options{Now: tick()})
	f.ctx = &Context{
		Manager: f.mgr,
		Export:  &export.Options{OutputDir: t.TempDir(), IncludeMetadata: true, Theme: "dark"},
		Clipboard: func(s string) error {
			if f.copyErr != nil {
				return f.copyErr
			}
			f.copied = append(f.copied, s)
			return nil
		},
	}
	return f
}

// run parses and executes input, returning the produced message.
func (f *fixture) run(t *testing.T, input string) tea.Msg {
	t.Helper()
	res := f.parser.Parse(input)
	require.True(t, res.IsCommand)
	cmd := f.reg.Execute(f.ctx, res)
	require.NotNil(t, cmd)
	return cmd()
}

// converse adds a finished exchange to the current session.
func (f *fixture) converse(t *testing.T, user, reply string) {
	t.Helper()
	turn, ok := f.mgr.SendUserMessage(user)
	require.True(t, ok)
	f.mgr.AppendFragment(turn, reply)
	f.mgr.FinishStream(turn)
}

// =============================================================================
// PARSER
// =============================================================================

func TestParse(t *testing.T) {
	p := NewParser(NewRegistry())

	tests := []struct {
		input     string
		isCommand bool
		name      string
		args      []string
		wantErr   bool
	}{
		{"hello there", false, "", nil, false},
		{"/help", true, "/help", nil, false},
		{"  /HELP  ", true, "/help", nil, false},
		{"/h export", true, "/h", []string{"export"}, false},
		{`/search "wait loop"`, true, "/search", []string{"wait loop"}, false},
		{`/search 'it\'s'`, true, "/search", []string{"it's"}, false},
		{`/search ""`, true, "/search", []string{""}, false},
		{"/bogus", true, "/bogus", nil, true},
		{"/switch", true, "/switch", nil, true},
		{"/export pdf", true, "/export", []string{"pdf"}, true},
		{"/export HTML", true, "/export", []string{"HTML"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := p.Parse(tt.input)
			assert.Equal(t, tt.isCommand, res.IsCommand)
			assert.Equal(t, tt.name, res.CommandName)
			assert.Equal(t, tt.args, res.Args)
			if tt.wantErr {
				assert.Error(t, res.Error)
			} else {
				assert.NoError(t, res.Error)
			}
		})
	}
}

func TestParseUnknownCommand(t *testing.T) {
	res := NewParser(NewRegistry()).Parse("/nope now")
	require.ErrorIs(t, res.Error, ErrUnknownCommand)
	assert.Equal(t, "now", res.RawArgs)
}

func TestValidationErrorMessage(t *testing.T) {
	res := NewParser(NewRegistry()).Parse("/export pdf")
	var verr *ValidationError
	require.True(t, errors.As(res.Error, &verr))
	assert.Equal(t, "format", verr.Arg)
	assert.Equal(t, "pdf", verr.Got)
	assert.Contains(t, verr.Error(), "/export")
}

func TestExecuteParseErrorBecomesErrorMsg(t *testing.T) {
	reg := NewRegistry()
	cmd := reg.Execute(&Context{}, NewParser(reg).Parse("/bogus"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(ErrorMsg)
	require.True(t, ok)
	assert.ErrorIs(t, msg.Err, ErrUnknownCommand)
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestRegistryAliases(t *testing.T) {
	reg := NewRegistry()
	for alias, name := range map[string]string{"/q": "/quit", "/ls": "/sessions", "/t": "/template", "/cp": "/copy"} {
		cmd := reg.Get(alias)
		require.NotNil(t, cmd, alias)
		assert.Equal(t, name, cmd.Name)
	}
	assert.Nil(t, reg.Get("/missing"))
}

func TestRegistryAllSorted(t *testing.T) {
	all := NewRegistry().All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Name, all[i].Name)
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

func TestHelp(t *testing.T) {
	f := newFixture(t)

	msg, ok := f.run(t, "/help").(HelpMsg)
	require.True(t, ok)
	for _, want := range []string{"Navigation:", "Sessions:", "Tools:", "/export", "/template"} {
		assert.Contains(t, msg.Text, want)
	}

	one, ok := f.run(t, "/help switch").(HelpMsg)
	require.True(t, ok)
	assert.Contains(t, one.Text, "/switch <id|number>")
	assert.Contains(t, one.Text, "/s")

	_, isErr := f.run(t, "/help nothing").(ErrorMsg)
	assert.True(t, isErr)
}

func TestQuitAndClear(t *testing.T) {
	f := newFixture(t)
	assert.IsType(t, tea.QuitMsg{}, f.run(t, "/quit"))
	assert.IsType(t, ClearScreenMsg{}, f.run(t, "/clear"))
}

func TestNewSession(t *testing.T) {
	f := newFixture(t)
	before := f.mgr.CurrentID()

	msg, ok := f.run(t, "/new").(StatusMsg)
	require.True(t, ok)
	assert.Contains(t, msg.Text, model.DefaultTitle)
	assert.NotEqual(t, before, f.mgr.CurrentID())
	assert.Len(t, f.mgr.Sessions(), 2)
}

func TestSessionsListsNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.converse(t, "first task", "ok")
	f.run(t, "/new")
	f.converse(t, "second task", "ok")

	msg, ok := f.run(t, "/sessions").(SessionListMsg)
	require.True(t, ok)
	require.Len(t, msg.Sessions, 2)
	assert.Equal(t, "second task", msg.Sessions[0].Title)
	assert.Equal(t, "first task", msg.Sessions[1].Title)
	assert.Equal(t, f.mgr.CurrentID(), msg.Current)
}

func TestSwitchByNumberAndPrefix(t *testing.T) {
	f := newFixture(t)
	f.converse(t, "first task", "ok")
	first := f.mgr.CurrentID()
	f.run(t, "/new")
	f.converse(t, "second task", "ok")

	_, ok := f.run(t, "/switch 2").(StatusMsg)
	require.True(t, ok)
	assert.Equal(t, first, f.mgr.CurrentID())

	second := f.mgr.DisplaySessions()[0].ID
	_, ok = f.run(t, "/switch "+second[:8]).(StatusMsg)
	require.True(t, ok)
	assert.Equal(t, second, f.mgr.CurrentID())

	_, isErr := f.run(t, "/switch 9").(ErrorMsg)
	assert.True(t, isErr)
	_, isErr = f.run(t, "/switch zzzz-not-an-id").(ErrorMsg)
	assert.True(t, isErr)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	f.converse(t, "keep me", "ok")
	keep := f.mgr.CurrentID()
	f.run(t, "/new")
	f.converse(t, "drop me", "ok")

	msg, ok := f.run(t, "/delete").(StatusMsg)
	require.True(t, ok)
	assert.Contains(t, msg.Text, "drop me")
	require.Len(t, f.mgr.Sessions(), 1)
	assert.Equal(t, keep, f.mgr.CurrentID())

	_, isErr := f.run(t, "/delete 5").(ErrorMsg)
	assert.True(t, isErr)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.converse(t, "tween a door", "use TweenService")
	f.run(t, "/new")
	f.converse(t, "datastore retries", "use pcall")

	msg, ok := f.run(t, `/search "tweenservice"`).(SessionListMsg)
	require.True(t, ok)
	require.Len(t, msg.Sessions, 1)
	assert.Equal(t, "tween a door", msg.Sessions[0].Title)
}

func TestTemplate(t *testing.T) {
	f := newFixture(t)

	list, ok := f.run(t, "/template").(HelpMsg)
	require.True(t, ok)
	for _, tmpl := range prompts.Templates {
		assert.Contains(t, list.Text, tmpl.ID)
	}

	ins, ok := f.run(t, "/template security-audit").(InsertTextMsg)
	require.True(t, ok)
	assert.Contains(t, ins.Text, "RemoteEvent")

	byName, ok := f.run(t, `/t "refactor core"`).(InsertTextMsg)
	require.True(t, ok)
	assert.Contains(t, byName.Text, "task library")

	_, isErr := f.run(t, "/template nope").(ErrorMsg)
	assert.True(t, isErr)
}

func TestCopy(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"last code block", "a\n```lua\nprint(1)\n```\nb\n```luau\nprint(2)\n```\n", "print(2)"},
		{"whole reply", "no code here", "no code here"},
		{"unterminated fence", "x\n```lua\nlocal y = 1", "local y = 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.converse(t, "q", tt.reply)
			_, ok := f.run(t, "/copy").(StatusMsg)
			require.True(t, ok)
			require.Len(t, f.copied, 1)
			assert.Equal(t, tt.want, f.copied[0])
		})
	}
}

func TestCopyFailures(t *testing.T) {
	f := newFixture(t)
	f.mgr.CreateSession()
	// The welcome message is the only assistant content.
	_, ok := f.run(t, "/copy").(StatusMsg)
	assert.True(t, ok)

	f.copyErr = errors.New("no display")
	msg, ok := f.run(t, "/copy").(ErrorMsg)
	require.True(t, ok)
	assert.Contains(t, msg.Err.Error(), "no display")

	f.ctx.Clipboard = nil
	msg, ok = f.run(t, "/copy").(ErrorMsg)
	require.True(t, ok)
	assert.ErrorIs(t, msg.Err, ErrNoClipboard)
}

func TestCopyTargetEmpty(t *testing.T) {
	_, _, err := CopyTarget(nil)
	assert.ErrorIs(t, err, ErrNothingToCopy)

	s := &model.Session{Messages: []*model.Message{{Role: model.RoleUser, Content: "hi"}}}
	_, _, err = CopyTarget(s)
	assert.ErrorIs(t, err, ErrNothingToCopy)
}

func TestExport(t *testing.T) {
	for _, format := range []string{"markdown", "html", "json"} {
		t.Run(format, func(t *testing.T) {
			f := newFixture(t)
			f.converse(t, "make a part spin", "```lua\nlocal p = script.Parent\n```")

			msg, ok := f.run(t, "/export "+format).(StatusMsg)
			require.True(t, ok)
			path := strings.TrimPrefix(msg.Text, "Exported to ")
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Contains(t, string(data), "make a part spin")
		})
	}
}

// =============================================================================
// COMPLETION
// =============================================================================

func TestCompleteCommands(t *testing.T) {
	c := NewCompleter(NewRegistry())

	got := c.Complete("/se", 3)
	require.NotEmpty(t, got)
	values := make([]string, len(got))
	for i, comp := range got {
		values[i] = comp.Value
	}
	assert.Contains(t, values, "/search")
	assert.Contains(t, values, "/sessions")

	assert.Nil(t, c.Complete("plain text", 10))
}

func TestCompleteArguments(t *testing.T) {
	f := newFixture(t)
	c := NewCompleter(f.reg)
	c.SessionsFn = f.mgr.DisplaySessions

	exp := c.Complete("/export h", 9)
	require.Len(t, exp, 1)
	assert.Equal(t, "html", exp[0].Value)

	tmpl := c.Complete("/template sec", 13)
	require.Len(t, tmpl, 1)
	assert.Equal(t, "security-audit", tmpl[0].Value)

	id := f.mgr.CurrentID()
	sess := c.Complete("/switch ", 8)
	require.Len(t, sess, 1)
	assert.Equal(t, id[:8], sess[0].Value)

	assert.Nil(t, c.Complete("/quit x", 7))
}

func TestCompleteLines(t *testing.T) {
	c := NewCompleter(NewRegistry())
	assert.Equal(t, []string{"/export json"}, c.Lines("/export j"))
	assert.Contains(t, c.Lines("/tem"), "/template")
}

func TestCompletionState(t *testing.T) {
	cs := NewCompletionState()
	assert.Nil(t, cs.Selection())

	cs.Update("/e", []Completion{{Value: "/exit"}, {Value: "/export"}})
	require.NotNil(t, cs.Selection())
	assert.Equal(t, "/exit", cs.Selection().Value)

	cs.Next()
	assert.Equal(t, "/export", cs.Selection().Value)
	cs.Next()
	assert.Equal(t, "/exit", cs.Selection().Value)
	cs.Prev()
	assert.Equal(t, "/export", cs.Selection().Value)

	cs.Clear()
	assert.False(t, cs.Visible)
	assert.Nil(t, cs.Selection())
}
