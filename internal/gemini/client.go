// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/tublox/tublox-tui/internal/logging"
	"github.com/tublox/tublox-tui/internal/model"
	"github.com/tublox/tublox-tui/internal/prompts"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("Gemini API key not configured")

	// ErrEmptyHistory indicates StreamMessage was called with nothing to send.
	ErrEmptyHistory = errors.New("no messages to send")

	// ErrAuthFailed indicates the key was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates the endpoint refused the request for quota reasons.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the configured model does not exist.
	ErrModelNotFound = errors.New("model not found")
)

// StreamError wraps a failure that ended a stream, recording how much text
// had already been delivered.
type StreamError struct {
	Fragments int
	Err       error
}

func (e *StreamError) Error() string {
	if e.Fragments > 0 {
		return fmt.Sprintf("stream error after %d fragments: %v", e.Fragments, e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// classify maps SDK API errors onto the package sentinels while keeping
// the original error in the chain.
func classify(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}

	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrAuthFailed, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrModelNotFound, err)
	default:
		return err
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// contentStreamer is the part of *genai.Models the client uses.
type contentStreamer interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Options configures a Client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string

	Temperature   float64
	DisableSearch bool

	// SystemInstruction overrides prompts.SystemInstruction when set.
	SystemInstruction string

	// RequestsPerMinute paces requests client-side. 0 means unlimited.
	RequestsPerMinute int

	Logger *slog.Logger
}

// Client streams replies from a Gemini text model.
type Client struct {
	sdk     *genai.Client
	models  contentStreamer
	model   string
	config  *genai.GenerateContentConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a client backed by the Gemini API.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, ErrNotConfigured
	}

	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	sdk, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	c := newClient(sdk.Models, opts)
	c.sdk = sdk
	return c, nil
}

func newClient(models contentStreamer, opts Options) *Client {
	sys := opts.SystemInstruction
	if sys == "" {
		sys = prompts.SystemInstruction
	}
	temp := float32(opts.Temperature)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(sys, genai.RoleUser),
		Temperature:       &temp,
	}
	if !opts.DisableSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &Client{
		models:  models,
		model:   opts.Model,
		config:  cfg,
		limiter: limiter,
		logger:  logging.OrDefault(opts.Logger),
	}
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// SDK returns the underlying genai client, or nil for test clients.
func (c *Client) SDK() *genai.Client {
	return c.sdk
}

// StreamMessage sends history and delivers the reply as it arrives.
// onFragment is called for every non-empty text chunk, in order. When the
// stream ends cleanly, onComplete (if non-nil) receives the deduplicated
// citations exactly once. Any failure is returned and onComplete is not called.
func (c *Client) StreamMessage(
	ctx context.Context,
	history []*model.Message,
	onFragment func(string),
	onComplete func([]model.Source),
) error {
	if len(history) == 0 {
		return ErrEmptyHistory
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for request slot: %w", err)
	}

	log := logging.FromContext(ctx, c.logger)
	start := time.Now()
	log.Debug("stream_started", "model", c.model, "messages", len(history))

	var (
		sources   []model.Source
		fragments int
	)
	for resp, err := range c.models.GenerateContentStream(ctx, c.model, toContents(history), c.config) {
		if err != nil {
			log.Warn("stream_failed", "model", c.model, "fragments", fragments, "err", err)
			return &StreamError{Fragments: fragments, Err: classify(err)}
		}
		if text := resp.Text(); text != "" {
			fragments++
			onFragment(text)
		}
		sources = append(sources, groundingSources(resp)...)
	}

	merged := model.MergeSources(sources)
	log.Debug("stream_completed", "fragments", fragments, "sources", len(merged), "elapsed", time.Since(start))
	if onComplete != nil {
		onComplete(merged)
	}
	return nil
}

// toContents maps the conversation onto SDK contents: assistant turns
// become the "model" role and everything else is a user turn.
func toContents(history []*model.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

// groundingSources extracts web citations from a chunk. A missing title
// becomes model.DefaultSourceTitle.
func groundingSources(resp *genai.GenerateContentResponse) []model.Source {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	gm := resp.Candidates[0].GroundingMetadata
	if gm == nil {
		return nil
	}

	var out []model.Source
	for _, chunk := range gm.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		title := chunk.Web.Title
		if title == "" {
			title = model.DefaultSourceTitle
		}
		out = append(out, model.Source{Title: title, URI: chunk.Web.URI})
	}
	return out
}
