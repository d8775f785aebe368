// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output for scripting (--json).
package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the envelope every --json command prints.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// sessionData is the JSON shape of a session summary.
type sessionData struct {
	Number       int       `json:"number"`
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Messages     int       `json:"messages"`
	LastModified time.Time `json:"last_modified"`
	Current      bool      `json:"current"`
}

// askData is the JSON shape of an ask answer.
type askData struct {
	SessionID string       `json:"session_id,omitempty"`
	Model     string       `json:"model"`
	Answer    string       `json:"answer"`
	Sources   []sourceData `json:"sources"`
}

type sourceData struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}
