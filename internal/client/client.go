// Package client talks to the todo HTTP API. It satisfies store.Persistence
// so a Store can run in a separate process from the database.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"todolist/internal/model"
	"todolist/internal/validation"
)

// StatusError is returned for any response the client does not map to a
// domain error.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Msg    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Msg)
}

// Temporary reports whether retrying could succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) List(ctx context.Context, filters model.Filters) ([]model.Todo, error) {
	path := "/api/todos"
	if q := filters.Values().Encode(); q != "" {
		path += "?" + q
	}
	var todos []model.Todo
	if err := c.do(ctx, http.MethodGet, path, nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

func (c *Client) Get(ctx context.Context, id uint) (*model.Todo, error) {
	var todo model.Todo
	if err := c.do(ctx, http.MethodGet, todoPath(id), nil, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (c *Client) Create(ctx context.Context, draft model.Draft) (*model.Todo, error) {
	var todo model.Todo
	if err := c.do(ctx, http.MethodPost, "/api/todos", draft, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (c *Client) Update(ctx context.Context, id uint, patch model.Patch) (*model.Todo, error) {
	var todo model.Todo
	if err := c.do(ctx, http.MethodPatch, todoPath(id), patch, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (c *Client) SetCompleted(ctx context.Context, id uint, completed bool) (*model.Todo, error) {
	var todo model.Todo
	body := map[string]bool{"completed": completed}
	if err := c.do(ctx, http.MethodPut, todoPath(id)+"/completion", body, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (c *Client) Delete(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, todoPath(id), nil, nil)
}

func (c *Client) Reorder(ctx context.Context, ids []uint) error {
	return c.do(ctx, http.MethodPut, "/api/todos/order", map[string][]uint{"ids": ids}, nil)
}

// Move asks the server to drop activeID onto overID and returns the full reordered list.
func (c *Client) Move(ctx context.Context, activeID, overID uint) ([]model.Todo, error) {
	var todos []model.Todo
	body := map[string]uint{"activeId": activeID, "overId": overID}
	if err := c.do(ctx, http.MethodPost, "/api/todos/move", body, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats)
	return stats, err
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(method, path, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type errorBody struct {
	Error  string            `json:"error"`
	Errors validation.Errors `json:"errors"`
}

func decodeError(method, path string, resp *http.Response) error {
	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&eb)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, model.ErrNotFound)
	case resp.StatusCode == http.StatusUnprocessableEntity && len(eb.Errors) > 0:
		return eb.Errors
	}
	msg := eb.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Msg: msg}
}

// IsTemporary reports whether err is a StatusError worth retrying.
func IsTemporary(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Temporary()
}

func todoPath(id uint) string {
	return fmt.Sprintf("/api/todos/%d", id)
}
