// Package client provides an HTTP client for the sales hub REST API.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/agenda"
	"github.com/lmsales/sales-hub/internal/ingest"
	"github.com/lmsales/sales-hub/internal/note"
	"github.com/lmsales/sales-hub/internal/prospect"
	"github.com/lmsales/sales-hub/internal/visit"
)

// Client is an HTTP client for the sales hub API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Error is a non-2xx response from the server.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// Health is the derived state returned with an account.
type Health struct {
	Overdue   bool                  `json:"overdue"`
	Reason    account.OverdueReason `json:"reason"`
	Deadline  *time.Time            `json:"deadline,omitempty"`
	Stale     bool                  `json:"stale"`
	LastVisit *string               `json:"last_visit,omitempty"`
	Prospect  *prospect.Health      `json:"prospect,omitempty"`
}

// AccountDetail is the response from GET /api/accounts/{id}.
type AccountDetail struct {
	Account *account.Account `json:"account"`
	Visits  []*visit.Visit   `json:"visits"`
	Notes   []*note.Note     `json:"notes"`
	Health  Health           `json:"health"`
}

// AccountRequest creates or replaces an account. An empty ID creates a new one.
type AccountRequest struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name"`
	City           string `json:"city,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	Classification string `json:"classification,omitempty"`
	Frequency      string `json:"frequency,omitempty"`
}

// AccountSummary is one row of the account list.
type AccountSummary struct {
	account.Account
	LastVisit *string `json:"last_visit"` // YYYY-MM-DD of the latest completed visit
}

// ListAccounts returns all accounts, optionally filtered by classification.
func (c *Client) ListAccounts(classification string) ([]*AccountSummary, error) {
	path := "/api/accounts"
	if classification != "" {
		path += "?classification=" + url.QueryEscape(classification)
	}

	var accounts []*AccountSummary
	if err := c.get(path, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetAccount returns an account with its visits, notes and health.
func (c *Client) GetAccount(id string) (*AccountDetail, error) {
	var resp AccountDetail
	if err := c.get("/api/accounts/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveAccount creates or replaces an account.
func (c *Client) SaveAccount(req AccountRequest) (*account.Account, error) {
	var a account.Account
	if err := c.post("/api/accounts", req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAccount removes an account.
func (c *Client) DeleteAccount(id string) error {
	return c.doDelete("/api/accounts/" + url.PathEscape(id))
}

// MarkContacted records a contact with the account now.
func (c *Client) MarkContacted(id string) (*account.Account, error) {
	var a account.Account
	if err := c.post("/api/accounts/"+url.PathEscape(id)+"/contact", nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// AddNote adds a note to an account.
func (c *Client) AddNote(accountID, text string) (*note.Note, error) {
	body := map[string]string{"text": text}
	var n note.Note
	if err := c.post("/api/accounts/"+url.PathEscape(accountID)+"/notes", body, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNotes returns notes for an account.
func (c *Client) ListNotes(accountID string) ([]*note.Note, error) {
	var notes []*note.Note
	if err := c.get("/api/accounts/"+url.PathEscape(accountID)+"/notes", &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// VisitListOptions controls filtering for ListVisits.
type VisitListOptions struct {
	Status    string // pending, completed (empty = all)
	AccountID string
}

// ListVisits returns visits, optionally filtered.
func (c *Client) ListVisits(opts VisitListOptions) ([]*visit.Visit, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.AccountID != "" {
		params.Set("account_id", opts.AccountID)
	}
	path := "/api/visits"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var visits []*visit.Visit
	if err := c.get(path, &visits); err != nil {
		return nil, err
	}
	return visits, nil
}

// VisitRequest schedules a visit.
type VisitRequest struct {
	AccountID string `json:"account_id"`
	Date      string `json:"date"`
	Time      string `json:"time,omitempty"`
	Category  string `json:"category,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// AddVisit schedules a pending visit.
func (c *Client) AddVisit(req VisitRequest) (*visit.Visit, error) {
	var v visit.Visit
	if err := c.post("/api/visits", req, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// CompleteVisit marks a pending visit completed with outcome notes.
func (c *Client) CompleteVisit(id int64, notes string) (*visit.Visit, error) {
	body := map[string]string{"notes": notes}
	var v visit.Visit
	if err := c.post(fmt.Sprintf("/api/visits/%d/complete", id), body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// DeleteVisit removes a visit.
func (c *Client) DeleteVisit(id int64) error {
	return c.doDelete(fmt.Sprintf("/api/visits/%d", id))
}

// AgendaOptions selects the plan size and day. Zero values use server defaults.
type AgendaOptions struct {
	Capacity int    // 0 = server default
	Date     string // YYYY-MM-DD, empty = today
}

func (o AgendaOptions) query() string {
	params := url.Values{}
	if o.Capacity > 0 {
		params.Set("capacity", strconv.Itoa(o.Capacity))
	}
	if o.Date != "" {
		params.Set("date", o.Date)
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

// Agenda returns the daily plan.
func (c *Client) Agenda(opts AgendaOptions) (*agenda.Plan, error) {
	var p agenda.Plan
	if err := c.get("/api/agenda"+opts.query(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProspectBoard is the response from GET /api/prospects.
type ProspectBoard struct {
	Summary   prospect.Summary `json:"summary"`
	Prospects []prospect.Entry `json:"prospects"`
}

// Prospects returns the prospect board.
func (c *Client) Prospects() (*ProspectBoard, error) {
	var b ProspectBoard
	if err := c.get("/api/prospects", &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ImportReport is the server's answer to an import upload.
type ImportReport struct {
	DryRun   bool               `json:"dry_run"`
	Accounts int                `json:"accounts"`
	Visits   int                `json:"visits"`
	Rejected []ingest.Rejection `json:"rejected"`
	Stored   *ingest.Result     `json:"stored,omitempty"`
}

// Import uploads a JSON, YAML or CSV document. contentType selects the
// server-side parser.
func (c *Client) Import(doc io.Reader, contentType string, dryRun bool) (*ImportReport, error) {
	path := "/api/import"
	if dryRun {
		path += "?dry_run=true"
	}
	req, err := http.NewRequest("POST", c.baseURL+path, doc)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var rep ImportReport
	if err := c.do(req, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// StreamAgenda calls fn with every plan the server pushes until ctx is
// cancelled, the stream ends or fn returns an error. Error events from the
// server are returned as errors.
func (c *Client) StreamAgenda(ctx context.Context, capacity int, fn func(*agenda.Plan) error) error {
	req, err := http.NewRequestWithContext(ctx, "GET",
		c.baseURL+"/api/agenda/stream"+AgendaOptions{Capacity: capacity}.query(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	// The stream outlives the default request timeout.
	stream := &http.Client{Transport: c.httpClient.Transport}
	resp, err := stream.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Printf("warning: closing response body: %v\n", cerr)
		}
	}()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return responseError(resp.StatusCode, body)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var event, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && data != "":
			if event == "error" {
				return responseError(http.StatusInternalServerError, []byte(data))
			}
			var p agenda.Plan
			if err := json.Unmarshal([]byte(data), &p); err != nil {
				return fmt.Errorf("decoding plan: %w", err)
			}
			if err := fn(&p); err != nil {
				return err
			}
			event, data = "", ""
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

// get performs a GET request and decodes the response.
func (c *Client) get(path string, result interface{}) error {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

// post performs a POST request with a JSON body and decodes the response.
func (c *Client) post(path string, body interface{}, result interface{}) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest("POST", c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, result)
}

// doDelete performs a DELETE request.
func (c *Client) doDelete(path string) error {
	req, err := http.NewRequest("DELETE", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, nil)
}

// do executes an HTTP request with auth header and handles errors.
func (c *Client) do(req *http.Request, result interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Printf("warning: closing response body: %v\n", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return responseError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

func responseError(code int, body []byte) error {
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &Error{StatusCode: code, Message: errResp.Error}
	}
	return &Error{StatusCode: code, Message: fmt.Sprintf("server error: %s", http.StatusText(code))}
}
