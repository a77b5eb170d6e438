package joblinesdk

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
)

// Client is a minimal Jobline HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// Property represents the API property model (partial).
type Property struct {
	ID             string   `json:"id"`
	OwnerID        string   `json:"owner_id"`
	Address        string   `json:"address"`
	EstimatedValue *float64 `json:"estimated_value,omitempty"`
}

// Job represents the API job model (partial).
type Job struct {
	ID             string   `json:"id"`
	PropertyID     string   `json:"property_id"`
	ProfessionalID *string  `json:"professional_id,omitempty"`
	Title          string   `json:"title"`
	RiskLevel      string   `json:"risk_level"`
	TechnicalGrade int      `json:"technical_grade"`
	CostEstimate   float64  `json:"cost_estimate"`
	QuotedPrice    *float64 `json:"quoted_price,omitempty"`
	Status         string   `json:"status"`
	AcceptPath     *string  `json:"accept_path,omitempty"`
}

// RecommendInput creates a recommended job.
type RecommendInput struct {
	PropertyID     string  `json:"property_id"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	RiskLevel      string  `json:"risk_level,omitempty"`
	TechnicalGrade int     `json:"technical_grade,omitempty"`
	CostEstimate   float64 `json:"cost_estimate,omitempty"`
}

// ChecklistItem is one step of a job's work checklist.
type ChecklistItem struct {
	ID       string `json:"id"`
	Phase    string `json:"phase"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Checked  bool   `json:"checked"`
}

// Checklist is a job's checklist with derived progress.
type Checklist struct {
	JobID              string          `json:"job_id"`
	Items              []ChecklistItem `json:"items"`
	Progress           int             `json:"progress"`
	AllRequiredChecked bool            `json:"all_required_checked"`
}

// AccessLink is an issued magic link.
type AccessLink struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Kind      string    `json:"kind"`
	ContextID string    `json:"context_id"`
	ExpiresAt time.Time `json:"expires_at"`
	URL       string    `json:"url"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Code returns the error envelope code, if the body carries one.
func (e *APIError) Code() string {
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(e.Body), &env) != nil {
		return ""
	}
	return env.Error.Code
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// CreateProperty registers a property owned by the caller.
func (c *Client) CreateProperty(ctx context.Context, address string) (Property, error) {
	var resp Property
	err := c.do(ctx, http.MethodPost, c.apiPath("properties"), map[string]any{"address": address}, &resp)
	return resp, err
}

// Recommend creates a recommended job.
func (c *Client) Recommend(ctx context.Context, in RecommendInput) (Job, error) {
	var resp Job
	err := c.do(ctx, http.MethodPost, c.apiPath("jobs"), in, &resp)
	return resp, err
}

// Jobs lists jobs visible to the caller, optionally narrowed by status.
func (c *Client) Jobs(ctx context.Context, propertyID, status string) ([]Job, error) {
	q := url.Values{}
	if propertyID != "" {
		q.Set("property_id", propertyID)
	}
	if status != "" {
		q.Set("status", status)
	}
	endpoint := c.apiPath("jobs")
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Items []Job `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// Job fetches a job by id.
func (c *Client) Job(ctx context.Context, id string) (Job, error) {
	var resp Job
	err := c.do(ctx, http.MethodGet, c.jobPath(id, ""), nil, &resp)
	return resp, err
}

// Send publishes a recommended job to professionals.
func (c *Client) Send(ctx context.Context, jobID string) (Job, error) {
	return c.transition(ctx, jobID, "send", nil)
}

// Quote submits a price for a sent job.
func (c *Client) Quote(ctx context.Context, jobID string, price float64) (Job, error) {
	return c.transition(ctx, jobID, "quote", map[string]any{"price": price})
}

// RejectQuote returns a quoted job to sent.
func (c *Client) RejectQuote(ctx context.Context, jobID string) (Job, error) {
	return c.transition(ctx, jobID, "reject-quote", nil)
}

// Accept takes a lead (professional) or accepts a quote (owner).
func (c *Client) Accept(ctx context.Context, jobID string) (Job, error) {
	return c.transition(ctx, jobID, "accept", nil)
}

// Begin starts work on an accepted job.
func (c *Client) Begin(ctx context.Context, jobID string) (Job, error) {
	return c.transition(ctx, jobID, "begin", nil)
}

// Complete finishes a job; afterImages are optional.
func (c *Client) Complete(ctx context.Context, jobID string, afterImages ...string) (Job, error) {
	var body any
	if len(afterImages) > 0 {
		body = map[string]any{"after_images": afterImages}
	}
	return c.transition(ctx, jobID, "complete", body)
}

// Checklist returns a job's checklist.
func (c *Client) Checklist(ctx context.Context, jobID string) (Checklist, error) {
	var resp Checklist
	err := c.do(ctx, http.MethodGet, c.jobPath(jobID, "checklist"), nil, &resp)
	return resp, err
}

// ToggleChecklistItem flips one checklist item.
func (c *Client) ToggleChecklistItem(ctx context.Context, jobID, itemID string) (Checklist, error) {
	var resp Checklist
	endpoint := c.jobPath(jobID, fmt.Sprintf("checklist/%s/toggle", url.PathEscape(itemID)))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// IssueJobLink issues a read-only magic link for a job.
func (c *Client) IssueJobLink(ctx context.Context, jobID string) (AccessLink, error) {
	var resp AccessLink
	err := c.do(ctx, http.MethodPost, c.jobPath(jobID, "links"), nil, &resp)
	return resp, err
}

// Events returns recent events of one job or property.
func (c *Client) Events(ctx context.Context, entityKind, entityID string, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, entityKind, entityID, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, entityKind, entityID string, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if entityKind != "" {
		q.Set("entity_kind", entityKind)
	}
	if entityID != "" {
		q.Set("entity_id", entityID)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := c.apiPath("events")
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) transition(ctx context.Context, jobID, verb string, body any) (Job, error) {
	var resp Job
	err := c.do(ctx, http.MethodPost, c.jobPath(jobID, verb), body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
		reader = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) apiPath(p string) string {
	return strings.Trim(c.BasePath, "/") + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) jobPath(jobID, sub string) string {
	p := "jobs/" + url.PathEscape(jobID)
	if sub != "" {
		p += "/" + sub
	}
	return c.apiPath(p)
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
