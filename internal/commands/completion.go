// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"

	"github.com/tublox/tublox-tui/internal/model"
	"github.com/tublox/tublox-tui/internal/prompts"
)

// =============================================================================
// COMPLETER
// =============================================================================

// Completion is one candidate for the word under the cursor.
type Completion struct {
	Value       string
	Display     string
	Description string
	Score       int
}

// Completer handles tab completion for commands and arguments.
type Completer struct {
	registry *Registry

	// SessionsFn returns sessions in display order. Nil disables session
	// completion.
	SessionsFn func() []*model.Session
}

// NewCompleter creates a completer over the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns completions for the input up to cursorPos.
func (c *Completer) Complete(input string, cursorPos int) []Completion {
	if cursorPos >= 0 && cursorPos < len(input) {
		input = input[:cursorPos]
	}
	input = strings.TrimLeft(input, " \t")
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	parts := splitCommandLine(input)
	trailing := strings.HasSuffix(input, " ")
	if len(parts) == 0 {
		return c.completeCommands("")
	}
	if len(parts) == 1 && !trailing {
		return c.completeCommands(parts[0])
	}

	cmd := c.registry.Get(strings.ToLower(parts[0]))
	if cmd == nil {
		return nil
	}
	argIndex := len(parts) - 2
	partial := ""
	if trailing {
		argIndex++
	} else {
		partial = parts[len(parts)-1]
	}
	return c.completeArg(cmd, argIndex, partial)
}

// Lines completes a whole input line, returning full replacement lines.
// It matches the shape line editors expect for their completer hook.
func (c *Completer) Lines(line string) []string {
	comps := c.Complete(line, len(line))
	if len(comps) == 0 {
		return nil
	}
	head := line
	if i := strings.LastIndexByte(line, ' '); i >= 0 {
		head = line[:i+1]
	} else {
		head = ""
	}
	out := make([]string, len(comps))
	for i, comp := range comps {
		out[i] = head + comp.Value
	}
	return out
}

func (c *Completer) completeCommands(partial string) []Completion {
	partial = strings.ToLower(partial)
	var out []Completion
	for _, cmd := range c.registry.All() {
		if strings.HasPrefix(cmd.Name, partial) {
			out = append(out, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       calculateScore(cmd.Name, partial),
			})
		}
		for _, alias := range cmd.Aliases {
			if partial != "" && strings.HasPrefix(alias, partial) {
				out = append(out, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					Score:       calculateScore(alias, partial) - 10,
				})
			}
		}
	}
	sortCompletions(out)
	return out
}

// =============================================================================
// ARGUMENT COMPLETION
// =============================================================================

func (c *Completer) completeArg(cmd *Command, argIndex int, partial string) []Completion {
	if argIndex < 0 || argIndex >= len(cmd.Args) {
		return nil
	}
	arg := cmd.Args[argIndex]

	switch arg.Type {
	case ArgTypeSession:
		return c.completeSessions(partial)
	case ArgTypeEnum:
		return completeFromList(arg.Values, partial)
	case ArgTypeTemplate:
		var out []Completion
		for _, t := range prompts.Templates {
			if strings.HasPrefix(t.ID, partial) {
				out = append(out, Completion{
					Value:       t.ID,
					Display:     t.ID,
					Description: t.Name,
					Score:       calculateScore(t.ID, partial),
				})
			}
		}
		sortCompletions(out)
		return out
	}
	return nil
}

func (c *Completer) completeSessions(partial string) []Completion {
	if c.SessionsFn == nil {
		return nil
	}
	var out []Completion
	for _, s := range c.SessionsFn() {
		if !strings.HasPrefix(s.ID, partial) {
			continue
		}
		short := s.ID
		if len(short) > 8 {
			short = short[:8]
		}
		out = append(out, Completion{
			Value:       short,
			Display:     short,
			Description: s.Title,
			Score:       calculateScore(short, partial),
		})
	}
	sortCompletions(out)
	return out
}

func completeFromList(values []string, partial string) []Completion {
	partial = strings.ToLower(partial)
	var out []Completion
	for _, v := range values {
		if strings.HasPrefix(strings.ToLower(v), partial) {
			out = append(out, Completion{Value: v, Display: v, Score: calculateScore(v, partial)})
		}
	}
	sortCompletions(out)
	return out
}

// =============================================================================
// HELPERS
// =============================================================================

// calculateScore ranks a candidate; higher is better.
func calculateScore(value, partial string) int {
	value = strings.ToLower(value)
	partial = strings.ToLower(partial)

	score := 100
	if value == partial {
		return score + 100
	}
	if strings.HasPrefix(value, partial) {
		score += 50
		score += 20 - len(value)
	}
	return score - len(value)/2
}

func sortCompletions(completions []Completion) {
	sort.SliceStable(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}

// =============================================================================
// COMPLETION NAVIGATION
// =============================================================================

// CompletionState tracks cycling through completions in an input field.
type CompletionState struct {
	OriginalInput string
	Completions   []Completion

	// Selected is -1 when nothing is selected.
	Selected int
	Visible  bool
}

// NewCompletionState creates an empty state.
func NewCompletionState() *CompletionState {
	return &CompletionState{Selected: -1}
}

// Update replaces the candidates and selects the first.
func (cs *CompletionState) Update(input string, completions []Completion) {
	cs.OriginalInput = input
	cs.Completions = completions
	cs.Selected = 0
	cs.Visible = len(completions) > 0
}

// Next moves to the next candidate, wrapping.
func (cs *CompletionState) Next() {
	if len(cs.Completions) == 0 {
		return
	}
	cs.Selected = (cs.Selected + 1) % len(cs.Completions)
}

// Prev moves to the previous candidate, wrapping.
func (cs *CompletionState) Prev() {
	if len(cs.Completions) == 0 {
		return
	}
	cs.Selected--
	if cs.Selected < 0 {
		cs.Selected = len(cs.Completions) - 1
	}
}

// Selection returns the selected candidate, or nil.
func (cs *CompletionState) Selection() *Completion {
	if cs.Selected < 0 || cs.Selected >= len(cs.Completions) {
		return nil
	}
	return &cs.Completions[cs.Selected]
}

// Clear resets the state.
func (cs *CompletionState) Clear() {
	*cs = CompletionState{Selected: -1}
}
