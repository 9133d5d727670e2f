package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/estetica-academy/presenciales/internal/models"
)

// APIError is a non-2xx response carrying the server's message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client talks to the presenciales REST API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates an API client.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// CreatePollRequest is the body for creating a poll.
type CreatePollRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	DeadlineAt  string              `json:"deadline_at,omitempty"`
	Options     []OptionRequest     `json:"options"`
	Eligibility *models.Eligibility `json:"eligibility"`
}

// OptionRequest is a candidate slot.
type OptionRequest struct {
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// CloseResult is returned by ClosePoll.
type CloseResult struct {
	ID       uuid.UUID         `json:"id"`
	Status   models.PollStatus `json:"status"`
	ClosedAt *time.Time        `json:"closed_at"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Debug("api request failed", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode), zap.String("error", msg))
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// ListPolls returns every poll with option validity flags.
func (c *Client) ListPolls(ctx context.Context) ([]models.Poll, error) {
	var out []models.Poll
	if err := c.do(ctx, http.MethodGet, "/presenciales/polls", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePoll creates a poll (admin).
func (c *Client) CreatePoll(ctx context.Context, req CreatePollRequest) (*models.Poll, error) {
	var out models.Poll
	if err := c.do(ctx, http.MethodPost, "/presenciales/polls", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClosePoll closes an open poll (admin).
func (c *Client) ClosePoll(ctx context.Context, pollID uuid.UUID) (*CloseResult, error) {
	var out CloseResult
	if err := c.do(ctx, http.MethodPost, "/presenciales/polls/"+pollID.String()+"/close", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListVotes returns the votes recorded for a poll.
func (c *Client) ListVotes(ctx context.Context, pollID uuid.UUID) ([]models.Vote, error) {
	var out []models.Vote
	if err := c.do(ctx, http.MethodGet, "/presenciales/polls/"+pollID.String()+"/votes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Vote records or replaces the caller's vote.
func (c *Client) Vote(ctx context.Context, pollID, optionID uuid.UUID) (*models.Vote, error) {
	var out models.Vote
	body := map[string]string{"optionId": optionID.String()}
	if err := c.do(ctx, http.MethodPost, "/presenciales/polls/"+pollID.String()+"/vote", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Access reports whether the caller may vote in at least one open poll.
func (c *Client) Access(ctx context.Context) (bool, error) {
	var out struct {
		HasAccess bool `json:"has_access"`
	}
	if err := c.do(ctx, http.MethodGet, "/presenciales/access", nil, &out); err != nil {
		return false, err
	}
	return out.HasAccess, nil
}

// MyCourses returns the ids of the caller's active courses.
func (c *Client) MyCourses(ctx context.Context) ([]string, error) {
	var out struct {
		CourseIDs []string `json:"course_ids"`
	}
	if err := c.do(ctx, http.MethodGet, "/me/courses", nil, &out); err != nil {
		return nil, err
	}
	return out.CourseIDs, nil
}

// Categories returns the catalog grouped by category.
func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchUsers runs the admin typeahead search.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.UserPublic, error) {
	var out []models.UserPublic
	if err := c.do(ctx, http.MethodGet, "/users?search="+url.QueryEscape(query), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
