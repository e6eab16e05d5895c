package tablestore

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

const (
	restPath        = "/rest/v1/"
	singleMediaType = "application/vnd.pgrst.object+json"
)

// APIError is the error payload returned by the hosted table API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// RESTStore talks to a PostgREST-compatible table API such as a hosted Supabase project.
type RESTStore struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	tables map[string]struct{}
}

// NewRESTStore returns a store for the project at baseURL serving the named
// tables. A nil client gets a client with a 30 second timeout.
func NewRESTStore(baseURL, apiKey string, client *http.Client, tables ...string) *RESTStore {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	s := &RESTStore{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: client,
		tables:     make(map[string]struct{}, len(tables)),
	}
	for _, t := range tables {
		s.tables[t] = struct{}{}
	}
	return s
}

func (s *RESTStore) checkTable(table string) error {
	if _, ok := s.tables[table]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return nil
}

func filterValue(v any) string {
	return "eq." + fmt.Sprint(v)
}

func (s *RESTStore) endpoint(table string, params url.Values) string {
	u := s.BaseURL + restPath + url.PathEscape(table)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (s *RESTStore) newRequest(ctx context.Context, method, table string, params url.Values, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.endpoint(table, params), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.APIKey)
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (s *RESTStore) do(req *http.Request, table string, single bool, out any) error {
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		if single && resp.StatusCode == http.StatusNotAcceptable {
			return fmt.Errorf("%w: %s", ErrNotSingle, apiErr.Error())
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", table, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

// Select loads rows of table into dest.
func (s *RESTStore) Select(ctx context.Context, table string, q Query, dest any) error {
	if err := s.checkTable(table); err != nil {
		return err
	}
	params := url.Values{}
	params.Set("select", "*")
	if q.Filter != nil {
		params.Set(q.Filter.Column, filterValue(q.Filter.Value))
	}
	if q.Order != nil {
		dir := "asc"
		if q.Order.Descending {
			dir = "desc"
		}
		params.Set("order", q.Order.Column+"."+dir)
	}

	req, err := s.newRequest(ctx, http.MethodGet, table, params, nil)
	if err != nil {
		return err
	}
	if q.Single {
		req.Header.Set("Accept", singleMediaType)
	}
	return s.do(req, table, q.Single, dest)
}

// Insert creates rows in table from field maps.
func (s *RESTStore) Insert(ctx context.Context, table string, rows ...Row) error {
	if err := s.checkTable(table); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	req, err := s.newRequest(ctx, http.MethodPost, table, nil, rows)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")
	return s.do(req, table, false, nil)
}

// Update applies changes to every row of table matching f.
func (s *RESTStore) Update(ctx context.Context, table string, changes Row, f Filter) error {
	if err := s.checkTable(table); err != nil {
		return err
	}
	if err := validFilter(f); err != nil {
		return err
	}
	req, err := s.newRequest(ctx, http.MethodPatch, table, url.Values{f.Column: {filterValue(f.Value)}}, changes)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")
	return s.do(req, table, false, nil)
}

// Delete removes every row of table matching f.
func (s *RESTStore) Delete(ctx context.Context, table string, f Filter) error {
	if err := s.checkTable(table); err != nil {
		return err
	}
	if err := validFilter(f); err != nil {
		return err
	}
	req, err := s.newRequest(ctx, http.MethodDelete, table, url.Values{f.Column: {filterValue(f.Value)}}, nil)
	if err != nil {
		return err
	}
	return s.do(req, table, false, nil)
}

// Ping checks that the API answers with the configured key.
func (s *RESTStore) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+restPath, nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.APIKey)
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	return s.do(req, "ping", false, nil)
}
