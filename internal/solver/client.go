// Package solver is the REST client for the Solver backend. It maps
// transport and HTTP failures into the domain error taxonomy and returns
// parsed domain models; nothing above it sees raw HTTP.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"solver/internal/command/audit"
	"solver/internal/command/models"
	"solver/pkg/domain"
	dErrors "solver/pkg/domain-errors"
)

var tracer = otel.Tracer("solver/internal/solver")

// TokenSource supplies a fresh access token for outgoing requests. The
// session service implements it and refreshes silently when needed.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client talks to one Solver backend deployment.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests, custom timeouts).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New builds a client for the given backend base URL.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		tokens:  tokens,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Objects fetches the controllable objects scoped to the caller's account.
func (c *Client) Objects(ctx context.Context) ([]models.Object, error) {
	ctx, span := tracer.Start(ctx, "solver.Client.Objects")
	defer span.End()

	var payload struct {
		Objects []models.Object `json:"objects"`
	}
	if err := c.get(ctx, "/api/v1/objects", &payload); err != nil {
		return nil, err
	}
	return payload.Objects, nil
}

// Object fetches a single object by identifier.
func (c *Client) Object(ctx context.Context, id domain.ObjectID) (models.Object, error) {
	ctx, span := tracer.Start(ctx, "solver.Client.Object",
		trace.WithAttributes(attribute.String("object_id", id.String())))
	defer span.End()

	var obj models.Object
	if err := c.get(ctx, "/api/v1/objects/"+id.String(), &obj); err != nil {
		return models.Object{}, err
	}
	return obj, nil
}

// Location is an optional caller position attached to command execution.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ExecuteOptions carries the optional parts of a command execution request.
type ExecuteOptions struct {
	// Input is free-text input for commands that require it.
	Input string
	// Location is attached when the command is geofenced.
	Location *Location
}

// Execute runs a command against an object and returns the parsed result.
// A non-2xx response is an error; the middleware chain only ever sees
// results the backend produced deliberately.
func (c *Client) Execute(ctx context.Context, objectID domain.ObjectID, command string, opts ExecuteOptions) (models.ExecutionResult, error) {
	ctx, span := tracer.Start(ctx, "solver.Client.Execute",
		trace.WithAttributes(
			attribute.String("object_id", objectID.String()),
			attribute.String("command", command),
		))
	defer span.End()

	body := struct {
		Command  string    `json:"command"`
		Input    string    `json:"input,omitempty"`
		Location *Location `json:"location,omitempty"`
	}{Command: command, Input: opts.Input, Location: opts.Location}

	var result models.ExecutionResult
	if err := c.post(ctx, "/api/v1/objects/"+objectID.String()+"/execute", body, &result); err != nil {
		return models.ExecutionResult{}, err
	}
	return result, nil
}

// Record delivers one audit event. It satisfies the audit sink contract so
// the async publisher can forward execution notifications to the backend.
func (c *Client) Record(ctx context.Context, event audit.Event) error {
	return c.post(ctx, "/api/v1/audit", event, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode request body")
	}
	return c.do(ctx, http.MethodPost, path, data, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport-level failure: no connectivity, DNS, timeout. Distinct
		// from a server that answered with an error status.
		return dErrors.Wrap(err, dErrors.CodeNetworkError, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeServerError, "decode response body")
	}
	return nil
}

// statusError translates a non-2xx response into the closed error taxonomy.
func (c *Client) statusError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
	msg := payload.Message
	if msg == "" {
		msg = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return dErrors.New(dErrors.CodeUnauthorized, msg)
	case http.StatusNotFound:
		return dErrors.New(dErrors.CodeNotFound, msg)
	default:
		return dErrors.New(dErrors.CodeServerError, fmt.Sprintf("server returned %d: %s", resp.StatusCode, msg))
	}
}
