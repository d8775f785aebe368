// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnknownCommand is set on a ParseResult whose name matched nothing.
var ErrUnknownCommand = errors.New("unknown command")

// =============================================================================
// PARSE RESULT
// =============================================================================

// ParseResult contains the result of parsing user input.
type ParseResult struct {
	// IsCommand is true if the input starts with /
	IsCommand bool

	// Command is the matched command, nil if not found.
	Command *Command

	// CommandName is the name as typed, lowercased (e.g. "/help").
	CommandName string

	Args []string

	// RawArgs is everything after the command name, trimmed.
	RawArgs string

	RawInput string

	Error error
}

// =============================================================================
// PARSER
// =============================================================================

// Parser splits input into a command and its arguments.
type Parser struct {
	registry *Registry
}

// NewParser creates a parser bound to registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Parse parses user input. Input that does not start with "/" is a plain
// chat message and yields IsCommand == false.
func (p *Parser) Parse(input string) ParseResult {
	input = strings.TrimSpace(input)
	result := ParseResult{RawInput: input}

	if !IsCommand(input) {
		return result
	}
	result.IsCommand = true

	name := ExtractCommandName(input)
	result.CommandName = strings.ToLower(name)
	result.RawArgs = strings.TrimSpace(input[len(name):])
	result.Args = splitCommandLine(result.RawArgs)

	result.Command = p.registry.Get(result.CommandName)
	if result.Command == nil {
		result.Error = fmt.Errorf("%w: %s", ErrUnknownCommand, name)
		return result
	}
	if err := ValidateArgs(result.Command, result.Args); err != nil {
		result.Error = err
	}
	return result
}

// ParseArgs splits a raw argument string, honoring quotes.
func ParseArgs(input string) []string {
	return splitCommandLine(input)
}

// =============================================================================
// ARGUMENT PARSING
// =============================================================================

// splitCommandLine splits on whitespace outside single or double quotes.
// Inside quotes a backslash escapes a quote or another backslash.
func splitCommandLine(input string) []string {
	var (
		tokens  []string
		current strings.Builder
		quote   rune
		started bool
	)

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
			started = true
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0 && r == '\\' && i+1 < len(runes) && strings.ContainsRune(`"'\`, runes[i+1]):
			current.WriteRune(runes[i+1])
			i++
		case quote == 0 && unicode.IsSpace(r):
			if started || current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
		}
	}
	if started || current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// IsCommand reports whether input is a slash command.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// ExtractCommandName returns the leading "/name" of input, or "".
func ExtractCommandName(input string) string {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return ""
	}
	if end := strings.IndexFunc(input, unicode.IsSpace); end >= 0 {
		return input[:end]
	}
	return input
}

// ValidateArgs checks required arguments and enum values.
func ValidateArgs(cmd *Command, args []string) error {
	if cmd == nil {
		return nil
	}
	for i, def := range cmd.Args {
		if i >= len(args) {
			if def.Required {
				return &ValidationError{Command: cmd.Name, Arg: def.Name, Message: "required argument missing", Expected: def.Description}
			}
			continue
		}
		if def.Type == ArgTypeEnum && len(def.Values) > 0 && !containsFold(def.Values, args[i]) {
			return &ValidationError{
				Command:  cmd.Name,
				Arg:      def.Name,
				Message:  "invalid value",
				Got:      args[i],
				Expected: strings.Join(def.Values, ", "),
			}
		}
	}
	return nil
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// =============================================================================
// VALIDATION ERROR
// =============================================================================

// ValidationError reports a bad or missing argument.
type ValidationError struct {
	Command  string
	Arg      string
	Message  string
	Got      string
	Expected string
}

func (e *ValidationError) Error() string {
	msg := e.Command + ": " + e.Message
	if e.Arg != "" {
		msg += " for argument '" + e.Arg + "'"
	}
	if e.Got != "" {
		msg += " (got: " + e.Got + ")"
	}
	if e.Expected != "" {
		msg += " - expected: " + e.Expected
	}
	return msg
}
