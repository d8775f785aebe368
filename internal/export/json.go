// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"

	"github.com/tublox/tublox-tui/internal/model"
	"github.com/tublox/tublox-tui/internal/storage"
)

// JSONExporter writes a session in the persisted schema: a one-element
// session array that storage.DecodeSessions accepts. Options are ignored.
type JSONExporter struct{}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(*Options) *JSONExporter {
	return &JSONExporter{}
}

// Export converts a session to indented JSON.
func (e *JSONExporter) Export(s *model.Session) ([]byte, error) {
	if err := validate(s); err != nil {
		return nil, err
	}
	raw, err := storage.EncodeSessions([]*model.Session{s})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string { return ".json" }

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string { return "application/json" }
