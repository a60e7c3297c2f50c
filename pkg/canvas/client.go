// Package canvas is a small client for the Canvas LMS REST API covering the
// course, assignment group, roster and submission endpoints.
package canvas

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Endpoint labels reported to the Observer.
const (
	EndpointAssignmentGroups = "assignment_groups"
	EndpointAssignments      = "assignments"
	EndpointUsers            = "users"
	EndpointSubmission       = "submission"
)

// ErrMissingToken is returned when a request is attempted without a bearer token.
var ErrMissingToken = errors.New("canvas: bearer token required")

// APIError is returned for any non-success response.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("canvas: %s returned %d: %s", e.URL, e.StatusCode, body)
}

// Observer receives timing for every upstream call.
type Observer interface {
	ObserveUpstreamRequest(endpoint string, status int, duration time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	PerPage    int
	Timeout    time.Duration
	HTTPClient *http.Client
	Observer   Observer
	Logger     *zap.Logger
}

// Client issues authenticated, sequential requests against one Canvas instance.
type Client struct {
	baseURL  string
	perPage  int
	http     *http.Client
	observer Observer
	logger   *zap.Logger
}

// NewClient builds a Client with defaults applied.
func NewClient(opts Options) *Client {
	if opts.PerPage <= 0 {
		opts.PerPage = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		perPage:  opts.PerPage,
		http:     opts.HTTPClient,
		observer: opts.Observer,
		logger:   opts.Logger,
	}
}

// PerPage returns the page size requested from paginated endpoints.
func (c *Client) PerPage() int {
	return c.perPage
}

func (c *Client) endpointURL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) pageQuery(extra url.Values) url.Values {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	q.Set("per_page", strconv.Itoa(c.perPage))
	return q
}

// get performs one GET and returns the body and headers of a 2xx response.
func (c *Client) get(ctx context.Context, endpoint, rawURL, token string) ([]byte, http.Header, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil, ErrMissingToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("canvas: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.observe(endpoint, 0, duration)
		return nil, nil, fmt.Errorf("canvas: GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	c.observe(endpoint, resp.StatusCode, duration)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("canvas: read %s: %w", rawURL, err)
	}

	c.logger.Debug("canvas request",
		zap.String("endpoint", endpoint),
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", duration),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &APIError{StatusCode: resp.StatusCode, URL: rawURL, Body: string(body)}
	}

	return body, resp.Header, nil
}

func (c *Client) observe(endpoint string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstreamRequest(endpoint, status, duration)
	}
}

// ListAssignmentGroups returns the course's grading categories. Canvas serves
// these in a single response.
func (c *Client) ListAssignmentGroups(ctx context.Context, courseID, token string) ([]AssignmentGroup, error) {
	path := fmt.Sprintf("/courses/%s/assignment_groups", url.PathEscape(courseID))
	body, _, err := c.get(ctx, EndpointAssignmentGroups, c.endpointURL(path, nil), token)
	if err != nil {
		return nil, err
	}
	var groups []AssignmentGroup
	if err := decodeJSON(body, &groups); err != nil {
		return nil, fmt.Errorf("canvas: decode assignment groups: %w", err)
	}
	return groups, nil
}

// ListAssignments returns every assignment in a group, following pagination.
func (c *Client) ListAssignments(ctx context.Context, courseID string, groupID int64, token string) ([]Assignment, error) {
	path := fmt.Sprintf("/courses/%s/assignment_groups/%d/assignments", url.PathEscape(courseID), groupID)
	return Paginate[Assignment](ctx, c, EndpointAssignments, c.endpointURL(path, c.pageQuery(nil)), token)
}

// ListStudents returns the course roster restricted to student enrollments.
func (c *Client) ListStudents(ctx context.Context, courseID, token string) ([]User, error) {
	path := fmt.Sprintf("/courses/%s/users", url.PathEscape(courseID))
	query := c.pageQuery(url.Values{"enrollment_type": []string{"student"}})
	return Paginate[User](ctx, c, EndpointUsers, c.endpointURL(path, query), token)
}

// GetSubmission returns one student's submission for an assignment.
func (c *Client) GetSubmission(ctx context.Context, courseID string, assignmentID int64, studentID, token string) (*Submission, error) {
	path := fmt.Sprintf("/courses/%s/assignments/%d/submissions/%s", url.PathEscape(courseID), assignmentID, url.PathEscape(studentID))
	body, _, err := c.get(ctx, EndpointSubmission, c.endpointURL(path, nil), token)
	if err != nil {
		return nil, err
	}
	var sub Submission
	if err := decodeJSON(body, &sub); err != nil {
		return nil, fmt.Errorf("canvas: decode submission: %w", err)
	}
	return &sub, nil
}
