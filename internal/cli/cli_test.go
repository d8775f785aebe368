// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tublox/tublox-tui/internal/config"
	"github.com/tublox/tublox-tui/internal/gemini"
	"github.com/tublox/tublox-tui/internal/logging"
	"github.com/tublox/tublox-tui/internal/model"
	"github.com/tublox/tublox-tui/internal/prompts"
	"github.com/tublox/tublox-tui/internal/session"
	"github.com/tublox/tublox-tui/internal/storage"
	"github.com/tublox/tublox-tui/internal/voice"
)

// =============================================================================
// FIXTURES
// =============================================================================

type fakeStreamer struct {
	fragments []string
	sources   []model.Source
	err       error
}

func (f *fakeStreamer) StreamMessage(_ context.Context, _ []*model.Message, onFragment func(string), onComplete func([]model.Source)) error {
	for _, frag := range f.fragments {
		onFragment(frag)
	}
	if f.err != nil {
		return f.err
	}
	if onComplete != nil {
		onComplete(f.sources)
	}
	return nil
}

func newTestApp(t *testing.T, streamer session.Streamer) *App {
	t.Helper()
	app := &App{
		Config:  config.Default(),
		Logger:  logging.Discard(),
		Manager: session.NewManager(nil, session.Options{Logger: logging.Discard()}),
	}
	if streamer != nil {
		app.Streamer = streamer
	}
	return app
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TUBLOX_HOME", dir)
	for _, name := range []string{"TUBLOX_API_KEY", "GEMINI_API_KEY", "API_KEY", "TUBLOX_MODEL", "TUBLOX_STORAGE", "TUBLOX_LOG_LEVEL"} {
		t.Setenv(name, "")
	}
	return dir
}

// =============================================================================
// ARG PARSER
// =============================================================================

func TestArgParser(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		bools     []string
		wantSub   string
		wantPos   []string
		wantFlags map[string]string
		wantBools []string
	}{
		{
			name:      "flag with value",
			args:      []string{"export", "1", "--format", "html"},
			wantSub:   "export",
			wantPos:   []string{"export", "1"},
			wantFlags: map[string]string{"format": "html"},
		},
		{
			name:      "inline value",
			args:      []string{"export", "--output=/tmp/x"},
			wantSub:   "export",
			wantPos:   []string{"export"},
			wantFlags: map[string]string{"output": "/tmp/x"},
		},
		{
			name:      "declared bool does not take a value",
			args:      []string{"ask", "--no-save", "hello", "world"},
			bools:     []string{"no-save"},
			wantSub:   "ask",
			wantPos:   []string{"ask", "hello", "world"},
			wantBools: []string{"no-save"},
		},
		{
			name:      "undeclared flag takes the next word",
			args:      []string{"ask", "--mode", "hello"},
			wantSub:   "ask",
			wantPos:   []string{"ask"},
			wantFlags: map[string]string{"mode": "hello"},
		},
		{
			name:      "trailing flag is boolean",
			args:      []string{"list", "--json"},
			wantSub:   "list",
			wantPos:   []string{"list"},
			wantBools: []string{"json"},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"ask", "--", "--not-a-flag", "-x"},
			wantSub: "ask",
			wantPos: []string{"ask", "--not-a-flag", "-x"},
		},
		{
			name:      "explicit bool value",
			args:      []string{"--render=false", "--json=true"},
			bools:     []string{"render"},
			wantPos:   []string{},
			wantBools: []string{"json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.bools...)
			assert.Equal(t, tt.wantSub, p.Subcommand())
			assert.Equal(t, len(tt.wantPos), p.PositionalCount())
			for i, want := range tt.wantPos {
				assert.Equal(t, want, p.Positional(i))
			}
			for name, want := range tt.wantFlags {
				assert.Equal(t, want, p.Flag(name), "flag %s", name)
			}
			for _, name := range tt.wantBools {
				assert.True(t, p.BoolFlag(name), "bool %s", name)
			}
		})
	}
}

func TestArgParser_Helpers(t *testing.T) {
	p := NewArgParser([]string{"-n", "7", "--bad", "x", "search", "a", "b"})
	assert.Equal(t, 7, p.FlagIntOrDefault("n", 1))
	assert.Equal(t, 3, p.FlagIntOrDefault("bad", 3))
	assert.Equal(t, "dflt", p.FlagOrDefault("missing", "dflt"))
	assert.Equal(t, "a b", JoinPositionalArgs(p, 1))
	assert.Empty(t, p.PositionalFrom(9))
	assert.True(t, p.HasFlag("--n"))

	for in, want := range map[string]bool{"yes": true, "ON": true, "0": false, "n": false} {
		got, err := ParseBoolString(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

// =============================================================================
// PARSE
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		want    Command
		check   func(t *testing.T, a Args)
		wantErr bool
	}{
		{name: "no args starts the TUI", argv: nil, want: CmdTUI},
		{name: "tui", argv: []string{"tui"}, want: CmdTUI},
		{name: "chat", argv: []string{"chat", "-m", "gemini-x"}, want: CmdChat, check: func(t *testing.T, a Args) {
			assert.Equal(t, "gemini-x", a.Model)
		}},
		{name: "ask joins words", argv: []string{"ask", "how", "do", "I", "tween?"}, want: CmdAsk, check: func(t *testing.T, a Args) {
			assert.Equal(t, "how do I tween?", a.Query)
			assert.False(t, a.NoSave)
		}},
		{name: "ask no-save before the question", argv: []string{"ask", "--no-save", "spin", "a", "part"}, want: CmdAsk, check: func(t *testing.T, a Args) {
			assert.Equal(t, "spin a part", a.Query)
			assert.True(t, a.NoSave)
		}},
		{name: "ask render short flag", argv: []string{"a", "-r", "hi"}, want: CmdAsk, check: func(t *testing.T, a Args) {
			assert.True(t, a.Render)
			assert.Equal(t, "hi", a.Query)
		}},
		{name: "ask without a question", argv: []string{"ask"}, want: CmdAsk, wantErr: true},
		{name: "sessions defaults to list", argv: []string{"sessions"}, want: CmdSessions, check: func(t *testing.T, a Args) {
			assert.Equal(t, "list", a.Subcommand)
		}},
		{name: "sessions rm alias", argv: []string{"s", "rm", "3"}, want: CmdSessions, check: func(t *testing.T, a Args) {
			assert.Equal(t, "delete", a.Subcommand)
			assert.Equal(t, []string{"3"}, a.Positional)
		}},
		{name: "sessions export flags", argv: []string{"sessions", "export", "ab12", "-f", "html", "-o", "/tmp/out"}, want: CmdSessions, check: func(t *testing.T, a Args) {
			assert.Equal(t, "html", a.Format)
			assert.Equal(t, "/tmp/out", a.Output)
			assert.Equal(t, []string{"ab12"}, a.Positional)
		}},
		{name: "sessions search", argv: []string{"sessions", "search", "tower", "defense"}, want: CmdSessions, check: func(t *testing.T, a Args) {
			assert.Equal(t, "tower defense", a.Query)
		}},
		{name: "sessions show needs an id", argv: []string{"sessions", "show"}, want: CmdSessions, wantErr: true},
		{name: "sessions unknown subcommand", argv: []string{"sessions", "frobnicate"}, want: CmdSessions, wantErr: true},
		{name: "voice", argv: []string{"voice", "--config", "/etc/t.toml"}, want: CmdVoice, check: func(t *testing.T, a Args) {
			assert.Equal(t, "/etc/t.toml", a.ConfigPath)
		}},
		{name: "config defaults to show", argv: []string{"config"}, want: CmdConfig, check: func(t *testing.T, a Args) {
			assert.Equal(t, "show", a.Subcommand)
		}},
		{name: "config set", argv: []string{"config", "set", "ui.theme", "light"}, want: CmdConfig, check: func(t *testing.T, a Args) {
			assert.Equal(t, []string{"ui.theme", "light"}, a.Positional)
		}},
		{name: "config set missing value", argv: []string{"config", "set", "ui.theme"}, want: CmdConfig, wantErr: true},
		{name: "version command", argv: []string{"version"}, want: CmdVersion},
		{name: "version flag", argv: []string{"--version"}, want: CmdVersion},
		{name: "help flag wins", argv: []string{"ask", "x", "-h"}, want: CmdHelp},
		{name: "global flags", argv: []string{"--storage", "sqlite", "-v", "--json", "sessions"}, want: CmdSessions, check: func(t *testing.T, a Args) {
			assert.Equal(t, "sqlite", a.Storage)
			assert.True(t, a.Verbose)
			assert.True(t, a.JSON)
		}},
		{name: "unknown command", argv: []string{"deploy"}, want: CmdHelp, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := Parse(tt.argv)
			assert.Equal(t, tt.want, cmd)
			if tt.wantErr {
				var ue *UsageError
				require.ErrorAs(t, err, &ue)
				assert.Equal(t, ExitUsageError, ExitCode(err))
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestUsageAndVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	assert.Contains(t, buf.String(), "tublox ask")
	assert.Contains(t, buf.String(), Version)

	buf.Reset()
	PrintVersion(&buf)
	assert.Contains(t, buf.String(), "tublox version "+Version)
	assert.Equal(t, "sessions", CmdSessions.String())
}

// =============================================================================
// ERRORS
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", usageErr("ask", "x"), ExitUsageError},
		{"no key", fmt.Errorf("connect: %w", gemini.ErrNotConfigured), ExitConfigError},
		{"auth", gemini.ErrAuthFailed, ExitAuthError},
		{"mic", fmt.Errorf("voice: %w", voice.ErrPermissionDenied), ExitAuthError},
		{"not found", fmt.Errorf("session 9: %w", storage.ErrSessionNotFound), ExitNotFoundError},
		{"stream", &gemini.StreamError{Fragments: 2, Err: errors.New("reset")}, ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestDisplayError_JSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, fmt.Errorf("session 9: %w", storage.ErrSessionNotFound), true)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "not_found_error", out["error_type"])
}

// =============================================================================
// ASK
// =============================================================================

func TestRunAsk_StreamsAndSaves(t *testing.T) {
	streamer := &fakeStreamer{
		fragments: []string{"Use ", "TweenService."},
		sources:   []model.Source{{Title: "Docs", URI: "https://create.roblox.com/docs"}},
	}
	app := newTestApp(t, streamer)

	var out bytes.Buffer
	err := RunAsk(context.Background(), app, Args{Query: "how do I tween a part?"}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Use TweenService.")
	assert.Contains(t, out.String(), sourcesTitle)
	assert.Contains(t, out.String(), "https://create.roblox.com/docs")

	sessions := app.Manager.Sessions()
	require.Len(t, sessions, 2)
	cur := app.Manager.Current()
	assert.Equal(t, "how do I tween a part?", cur.Title)
	assert.Equal(t, "Use TweenService.", cur.LastMessage().Content)
}

func TestRunAsk_NoSave(t *testing.T) {
	app := newTestApp(t, &fakeStreamer{fragments: []string{"ok"}})

	var out bytes.Buffer
	require.NoError(t, RunAsk(context.Background(), app, Args{Query: "hi", NoSave: true}, &out))
	assert.Contains(t, out.String(), "ok")
	require.Len(t, app.Manager.Sessions(), 1)
	assert.False(t, app.Manager.Current().HasUserMessage())
}

func TestRunAsk_JSON(t *testing.T) {
	app := newTestApp(t, &fakeStreamer{
		fragments: []string{"answer"},
		sources:   []model.Source{{Title: "A", URI: "https://a"}},
	})

	var out bytes.Buffer
	require.NoError(t, RunAsk(context.Background(), app, Args{Query: "q", JSON: true}, &out))

	var resp struct {
		Success bool    `json:"success"`
		Data    askData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "answer", resp.Data.Answer)
	assert.Equal(t, app.Manager.CurrentID(), resp.Data.SessionID)
	assert.Equal(t, []sourceData{{Title: "A", URI: "https://a"}}, resp.Data.Sources)
}

func TestRunAsk_Failure(t *testing.T) {
	boom := &gemini.StreamError{Fragments: 1, Err: errors.New("connection reset")}
	app := newTestApp(t, &fakeStreamer{fragments: []string{"par"}, err: boom})

	var out bytes.Buffer
	err := RunAsk(context.Background(), app, Args{Query: "q"}, &out)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, ExitNetworkError, ExitCode(err))
	assert.Equal(t, prompts.StreamErrorText, app.Manager.Current().LastMessage().Content)
	assert.False(t, app.Manager.Awaiting())
}

func TestRunAsk_NoStreamer(t *testing.T) {
	app := newTestApp(t, nil)
	err := RunAsk(context.Background(), app, Args{Query: "q"}, &bytes.Buffer{})
	require.ErrorIs(t, err, gemini.ErrNotConfigured)
}

// =============================================================================
// CHAT REPL
// =============================================================================

func TestChatSession_Process(t *testing.T) {
	app := newTestApp(t, &fakeStreamer{
		fragments: []string{"local part = ", "Instance.new(\"Part\")"},
		sources:   []model.Source{{Title: "Part", URI: "https://create.roblox.com/docs/reference/engine/classes/Part"}},
	})
	var out, errOut bytes.Buffer
	cs := NewChatSession(app, &out, &errOut)
	ctx := context.Background()

	assert.False(t, cs.Process(ctx, "   "))
	assert.False(t, cs.Process(ctx, "make a part"))
	assert.Contains(t, out.String(), `local part = Instance.new("Part")`)
	assert.Contains(t, out.String(), sourcesTitle)
	assert.Empty(t, errOut.String())
	assert.Equal(t, "make a part", app.Manager.Current().Title)

	out.Reset()
	assert.False(t, cs.Process(ctx, "/new"))
	assert.Contains(t, out.String(), "Started "+model.DefaultTitle)
	assert.Len(t, app.Manager.Sessions(), 2)

	out.Reset()
	assert.False(t, cs.Process(ctx, "/sessions"))
	assert.Contains(t, out.String(), "make a part")

	assert.False(t, cs.Process(ctx, "/template asset-source"))
	tpl, ok := prompts.FindTemplate("asset-source")
	require.True(t, ok)
	assert.Equal(t, tpl.Prompt, cs.takePending())
	assert.Empty(t, cs.takePending())

	assert.False(t, cs.Process(ctx, "/nonsense"))
	assert.Contains(t, errOut.String(), "[Error]")

	assert.True(t, cs.Process(ctx, "/quit"))
	assert.True(t, cs.Process(ctx, "exit"))
}

func TestChatSession_StreamFailure(t *testing.T) {
	app := newTestApp(t, &fakeStreamer{err: errors.New("quota")})
	var out, errOut bytes.Buffer
	cs := NewChatSession(app, &out, &errOut)

	assert.False(t, cs.Process(context.Background(), "hello"))
	assert.Contains(t, out.String(), prompts.StreamErrorText)
	assert.Contains(t, errOut.String(), "quota")
	assert.False(t, cs.cancelStream(), "stream slot should be released")
}

// interruptStreamer emits one fragment, runs interrupt, then reports the
// context error.
type interruptStreamer struct {
	interrupt func()
}

func (s *interruptStreamer) StreamMessage(ctx context.Context, _ []*model.Message, onFragment func(string), _ func([]model.Source)) error {
	onFragment("local tower = ")
	s.interrupt()
	<-ctx.Done()
	return ctx.Err()
}

func TestChatSession_CancelKeepsPartialReply(t *testing.T) {
	streamer := &interruptStreamer{}
	app := newTestApp(t, streamer)
	var out, errOut bytes.Buffer
	cs := NewChatSession(app, &out, &errOut)
	streamer.interrupt = func() { cs.cancelStream() }

	assert.False(t, cs.Process(context.Background(), "build a tower"))
	assert.Contains(t, out.String(), "[cancelled]")
	assert.NotContains(t, out.String(), prompts.StreamErrorText)
	assert.Empty(t, errOut.String())
	assert.Equal(t, "local tower = ", app.Manager.Current().LastMessage().Content)
	assert.False(t, app.Manager.Awaiting())
}

func TestChatSession_NoClient(t *testing.T) {
	app := newTestApp(t, nil)
	var out, errOut bytes.Buffer
	cs := NewChatSession(app, &out, &errOut)

	cs.Process(context.Background(), "hello")
	assert.Contains(t, errOut.String(), errNoClient.Error())
	assert.Equal(t, prompts.StreamErrorText, app.Manager.Current().LastMessage().Content)
}

// =============================================================================
// SESSIONS
// =============================================================================

func seedSessions(t *testing.T, app *App, texts ...string) {
	t.Helper()
	for i, p := range texts {
		if i > 0 {
			app.Manager.CreateSession()
		}
		turn, ok := app.Manager.SendUserMessage(p)
		require.True(t, ok)
		require.NoError(t, app.Manager.Respond(context.Background(), &fakeStreamer{fragments: []string{"reply to " + p}}, turn))
	}
}

func TestRunSessions(t *testing.T) {
	app := newTestApp(t, nil)
	seedSessions(t, app, "build a tower defense game", "make a part spin")

	t.Run("list json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunSessions(app, Args{Subcommand: "list", JSON: true}, &out))
		var resp struct {
			Data []sessionData `json:"data"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
		require.Len(t, resp.Data, 2)
		assert.Equal(t, "make a part spin", resp.Data[0].Title)
		assert.True(t, resp.Data[0].Current)
		assert.Equal(t, 1, resp.Data[0].Number)
	})

	t.Run("list text", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunSessions(app, Args{Subcommand: "list"}, &out))
		assert.Contains(t, out.String(), "build a tower defense game")
		assert.Contains(t, out.String(), "make a part spin")
	})

	t.Run("search", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunSessions(app, Args{Subcommand: "search", Query: "tower"}, &out))
		assert.Contains(t, out.String(), "build a tower defense game")
		assert.NotContains(t, out.String(), "make a part spin")
	})

	t.Run("show by number", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunSessions(app, Args{Subcommand: "show", Positional: []string{"2"}, JSON: true}, &out))
		assert.Contains(t, out.String(), "reply to build a tower defense game")
	})

	t.Run("show by prefix", func(t *testing.T) {
		id := app.Manager.CurrentID()
		var out bytes.Buffer
		require.NoError(t, RunSessions(app, Args{Subcommand: "show", Positional: []string{id[:8]}, JSON: true}, &out))
		assert.Contains(t, out.String(), "reply to make a part spin")
	})

	t.Run("unknown number", func(t *testing.T) {
		err := RunSessions(app, Args{Subcommand: "show", Positional: []string{"9"}}, &bytes.Buffer{})
		require.ErrorIs(t, err, storage.ErrSessionNotFound)
		assert.Equal(t, ExitNotFoundError, ExitCode(err))
	})

	t.Run("missing id", func(t *testing.T) {
		err := RunSessions(app, Args{Subcommand: "delete"}, &bytes.Buffer{})
		var ue *UsageError
		require.ErrorAs(t, err, &ue)
	})

	t.Run("export", func(t *testing.T) {
		dir := t.TempDir()
		var out bytes.Buffer
		require.NoError(t, RunSessions(app, Args{Subcommand: "export", Positional: []string{"1"}, Format: "json", Output: dir}, &out))
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, ".json", filepath.Ext(entries[0].Name()))
		assert.Contains(t, out.String(), "Exported to")
	})

	t.Run("export bad format", func(t *testing.T) {
		err := RunSessions(app, Args{Subcommand: "export", Positional: []string{"1"}, Format: "pdf", Output: t.TempDir()}, &bytes.Buffer{})
		var ue *UsageError
		require.ErrorAs(t, err, &ue)
	})

	t.Run("delete", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunSessions(app, Args{Subcommand: "delete", Positional: []string{"1"}}, &out))
		assert.Contains(t, out.String(), "make a part spin")
		require.Len(t, app.Manager.Sessions(), 1)
		assert.Equal(t, "build a tower defense game", app.Manager.Current().Title)
	})
}

// =============================================================================
// CONFIG
// =============================================================================

func TestRunConfig(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	base := Args{ConfigPath: path}

	run := func(sub string, pos ...string) (string, error) {
		a := base
		a.Subcommand = sub
		a.Positional = pos
		var out bytes.Buffer
		err := RunConfig(a, &out)
		return out.String(), err
	}

	out, err := run("path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	_, err = run("init")
	require.NoError(t, err)
	_, err = run("init")
	require.Error(t, err, "init must not overwrite")

	_, err = run("set", "ui.theme", "light")
	require.NoError(t, err)
	out, err = run("get", "ui.theme")
	require.NoError(t, err)
	assert.Equal(t, "light\n", out)

	out, err = run("set", "gemini.api_key", "AIzaSecretKey1234")
	require.NoError(t, err)
	assert.NotContains(t, out, "AIzaSecretKey1234")
	out, err = run("get", "gemini.api_key")
	require.NoError(t, err)
	assert.Equal(t, "AIza...1234\n", out)

	out, err = run("show")
	require.NoError(t, err)
	assert.Contains(t, out, `theme = "light"`)
	assert.NotContains(t, out, "AIzaSecretKey1234")

	_, err = run("set", "ui.nope", "1")
	var ue *UsageError
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Reason, "ui.theme")

	_, err = run("set", "ui.word_wrap", "wide")
	require.ErrorAs(t, err, &ue)

	_, err = run("get")
	require.ErrorAs(t, err, &ue)
}

func TestLoadConfig_Overrides(t *testing.T) {
	isolate(t)
	cfg, err := LoadConfig(Args{Model: "gemini-test", Storage: "sqlite", Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, "gemini-test", cfg.Gemini.Model)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestBootstrap_FileStore(t *testing.T) {
	dir := isolate(t)

	app, err := Bootstrap(Args{})
	require.NoError(t, err)
	assert.Equal(t, storage.LoadEmpty, app.LoadStatus)
	seedSessions(t, app, "persist me")
	require.NoError(t, app.Close())

	app, err = Bootstrap(Args{})
	require.NoError(t, err)
	defer app.Close()
	assert.Equal(t, storage.LoadOK, app.LoadStatus)
	assert.Equal(t, "persist me", app.Manager.Current().Title)

	_, err = os.Stat(filepath.Join(dir, "tublox.log"))
	assert.NoError(t, err)
}

func TestBootstrap_CorruptStoreFallsBack(t *testing.T) {
	dir := isolate(t)
	backend, err := storage.NewFileBackend(dir)
	require.NoError(t, err)
	require.NoError(t, backend.Set(storage.SessionsKey, []byte("{not json")))

	app, err := Bootstrap(Args{})
	require.NoError(t, err)
	defer app.Close()
	assert.Equal(t, storage.LoadFallback, app.LoadStatus)
	require.Len(t, app.Manager.Sessions(), 1)
}

// =============================================================================
// VOICE
// =============================================================================

type fakePipeline struct {
	connectErr  error
	afterErr    error
	closeAfter  bool
	disconnects int
}

func (f *fakePipeline) Connect(_ context.Context, h voice.Handlers) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	h.OnStateChange(voice.StateStreaming)
	h.OnMessage("use task.wait")
	if f.afterErr != nil {
		go func() {
			h.OnError(f.afterErr)
			h.OnStateChange(voice.StateClosed)
		}()
	} else if f.closeAfter {
		go h.OnStateChange(voice.StateClosed)
	}
	return nil
}

func (f *fakePipeline) Disconnect() { f.disconnects++ }

func TestRunVoice(t *testing.T) {
	t.Run("permission denied", func(t *testing.T) {
		p := &fakePipeline{connectErr: fmt.Errorf("open microphone: %w", voice.ErrPermissionDenied)}
		var out, errOut bytes.Buffer
		err := RunVoice(context.Background(), p, &out, &errOut)
		require.ErrorIs(t, err, voice.ErrPermissionDenied)
		assert.Contains(t, errOut.String(), prompts.MicrophoneDeniedText)
		assert.Equal(t, 1, p.disconnects)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := &fakePipeline{}
		var out, errOut bytes.Buffer
		require.NoError(t, RunVoice(ctx, p, &out, &errOut))
		assert.Contains(t, out.String(), "use task.wait")
		assert.Contains(t, errOut.String(), "streaming")
		assert.Equal(t, 1, p.disconnects)
	})

	t.Run("session error", func(t *testing.T) {
		boom := errors.New("socket closed")
		p := &fakePipeline{afterErr: boom}
		err := RunVoice(context.Background(), p, &bytes.Buffer{}, &bytes.Buffer{})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, p.disconnects)
	})

	t.Run("remote close", func(t *testing.T) {
		p := &fakePipeline{closeAfter: true}
		var errOut bytes.Buffer
		require.NoError(t, RunVoice(context.Background(), p, &bytes.Buffer{}, &errOut))
		assert.Contains(t, errOut.String(), "closed")
		assert.Equal(t, 1, p.disconnects)
	})
}

func TestErrorHelpersMentionConfig(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, gemini.ErrNotConfigured, false)
	assert.True(t, strings.Contains(buf.String(), "TUBLOX_API_KEY"))
}
