package problem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
)

const (
	sheetsScope   = "https://www.googleapis.com/auth/spreadsheets"
	sheetsBaseURL = "https://sheets.googleapis.com/v4"
)

type SheetConfig struct {
	SpreadsheetID    string
	ProblemsRange    string // e.g. "problems!A:N"
	SubmissionsRange string // e.g. "submissions!A:I"
	BaseURL          string
	RequestsPerSec   float64 // client-side throttle; the API allows ~1 req/s per user
	CacheTTL         time.Duration
	Retry            RetryConfig
}

func (c *SheetConfig) defaults() {
	if c.ProblemsRange == "" {
		c.ProblemsRange = "problems!A:N"
	}
	if c.SubmissionsRange == "" {
		c.SubmissionsRange = "submissions!A:I"
	}
	if c.BaseURL == "" {
		c.BaseURL = sheetsBaseURL
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.RequestsPerSec <= 0 {
		c.RequestsPerSec = 1
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = DefaultRetryConfig()
	}
}

// SheetStore reads and writes a spreadsheet through the Sheets v4 values API.
// Credentials, token refresh, throttling and retries all stay in here.
type SheetStore struct {
	cfg     SheetConfig
	client  *http.Client
	limiter *rate.Limiter

	mu           sync.Mutex
	cache        []Question
	cachedAt     time.Time
	headerLoaded bool
}

// NewSheetStore authenticates with a service-account (or other Google) JSON
// credential. The returned client refreshes access tokens on its own.
func NewSheetStore(ctx context.Context, cfg SheetConfig, credentialsJSON []byte) (*SheetStore, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id required")
	}
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, sheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheets: credentials: %w", err)
	}
	return NewSheetStoreWithClient(cfg, oauth2.NewClient(ctx, creds.TokenSource)), nil
}

// NewSheetStoreWithClient uses an already-authorized HTTP client.
func NewSheetStoreWithClient(cfg SheetConfig, client *http.Client) *SheetStore {
	cfg.defaults()
	if client == nil {
		client = http.DefaultClient
	}
	burst := int(cfg.RequestsPerSec)
	if burst < 1 {
		burst = 1
	}
	return &SheetStore{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst),
	}
}

func (s *SheetStore) ListProblems(ctx context.Context, f Filter) ([]Question, error) {
	all, err := s.problems(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Question, 0, len(all))
	for _, q := range all {
		if f.Match(q) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *SheetStore) GetProblem(ctx context.Context, id string) (Question, error) {
	all, err := s.problems(ctx)
	if err != nil {
		return Question{}, err
	}
	for _, q := range all {
		if q.ID == id {
			return q, nil
		}
	}
	return Question{}, fmt.Errorf("problem %q: %w", id, ErrNotFound)
}

// PutProblems rewrites the problems range in place. The merged rows are
// written first; only rows left over below them are cleared afterwards, so a
// failed write never loses what is already in the sheet.
func (s *SheetStore) PutProblems(ctx context.Context, qs ...Question) error {
	all, sheetRows, err := s.readProblems(ctx)
	if err != nil {
		return err
	}
	idx := make(map[string]int, len(all))
	for i, q := range all {
		idx[q.ID] = i
	}
	for _, q := range qs {
		if i, ok := idx[q.ID]; ok {
			all[i] = q
			continue
		}
		idx[q.ID] = len(all)
		all = append(all, q)
	}
	rows := [][]string{QuestionHeader}
	for _, q := range all {
		rows = append(rows, QuestionRecord(q))
	}
	body := valueRange{Range: s.cfg.ProblemsRange, MajorDimension: "ROWS", Values: rows}
	q := url.Values{"valueInputOption": {"RAW"}}
	if err := s.call(ctx, http.MethodPut, s.valuesURL(s.cfg.ProblemsRange, "", q), body, nil); err != nil {
		return fmt.Errorf("write problems: %w", err)
	}
	if sheetRows > len(rows) {
		stale := rowsFrom(s.cfg.ProblemsRange, len(rows)+1)
		if err := s.call(ctx, http.MethodPost, s.valuesURL(stale, ":clear", nil), struct{}{}, nil); err != nil {
			return fmt.Errorf("clear stale problem rows: %w", err)
		}
	}
	s.mu.Lock()
	s.cache, s.cachedAt = all, time.Now()
	s.mu.Unlock()
	return nil
}

func (s *SheetStore) AppendSubmission(ctx context.Context, sub Submission) error {
	rows := [][]string{}
	s.mu.Lock()
	needHeader := !s.headerLoaded
	s.mu.Unlock()
	if needHeader {
		existing, err := s.getValues(ctx, s.cfg.SubmissionsRange)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			rows = append(rows, SubmissionHeader)
		}
	}
	rows = append(rows, SubmissionRecord(sub))
	q := url.Values{"valueInputOption": {"RAW"}, "insertDataOption": {"INSERT_ROWS"}}
	body := valueRange{Range: s.cfg.SubmissionsRange, MajorDimension: "ROWS", Values: rows}
	if err := s.call(ctx, http.MethodPost, s.valuesURL(s.cfg.SubmissionsRange, ":append", q), body, nil); err != nil {
		return fmt.Errorf("append submission: %w", err)
	}
	s.mu.Lock()
	s.headerLoaded = true
	s.mu.Unlock()
	return nil
}

func (s *SheetStore) ListSubmissions(ctx context.Context, f SubmissionFilter) ([]Submission, error) {
	rows, err := s.getValues(ctx, s.cfg.SubmissionsRange)
	if err != nil {
		return nil, err
	}
	cols, rows := splitHeader(rows, SubmissionHeader)
	out := []Submission{}
	for _, rec := range rows {
		sub, err := SubmissionFromRecord(cols, rec)
		if err != nil {
			return nil, err
		}
		if sub.ID != "" && f.Match(sub) {
			out = append(out, sub)
		}
	}
	return newestFirst(out, f.Limit), nil
}

func (s *SheetStore) Close() error { return nil }

func (s *SheetStore) problems(ctx context.Context) ([]Question, error) {
	s.mu.Lock()
	if s.cache != nil && s.cfg.CacheTTL > 0 && time.Since(s.cachedAt) < s.cfg.CacheTTL {
		out := s.cache
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	all, _, err := s.readProblems(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache, s.cachedAt = all, time.Now()
	s.mu.Unlock()
	return all, nil
}

// readProblems also reports how many rows the range currently holds,
// header and blank rows included.
func (s *SheetStore) readProblems(ctx context.Context) ([]Question, int, error) {
	raw, err := s.getValues(ctx, s.cfg.ProblemsRange)
	if err != nil {
		return nil, 0, err
	}
	cols, rows := splitHeader(raw, QuestionHeader)
	out := make([]Question, 0, len(rows))
	for _, rec := range rows {
		if q := QuestionFromRecord(cols, rec); q.ID != "" {
			out = append(out, q)
		}
	}
	return out, len(raw), nil
}

// rowsFrom narrows a column range such as "problems!A:N" to start at row n,
// giving "problems!A5:N".
func rowsFrom(rng string, n int) string {
	tab, cols := "", rng
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		tab, cols = rng[:i+1], rng[i+1:]
	}
	first, last, ok := strings.Cut(cols, ":")
	first = strings.TrimRight(first, "0123456789")
	last = strings.TrimRight(last, "0123456789")
	if !ok || last == "" {
		last = first
	}
	return fmt.Sprintf("%s%s%d:%s", tab, first, n, last)
}

// splitHeader uses the first row as header when it names an id column,
// otherwise falls back to the standard layout.
func splitHeader(rows [][]string, def []string) (Columns, [][]string) {
	if len(rows) > 0 && len(rows[0]) > 0 && strings.EqualFold(strings.TrimSpace(rows[0][0]), "id") {
		return NewColumns(rows[0]), rows[1:]
	}
	return NewColumns(def), rows
}

type valueRange struct {
	Range          string     `json:"range,omitempty"`
	MajorDimension string     `json:"majorDimension,omitempty"`
	Values         [][]string `json:"values"`
}

func (s *SheetStore) getValues(ctx context.Context, rng string) ([][]string, error) {
	var vr valueRange
	if err := s.call(ctx, http.MethodGet, s.valuesURL(rng, "", nil), nil, &vr); err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return vr.Values, nil
}

func (s *SheetStore) valuesURL(rng, suffix string, q url.Values) string {
	u := s.cfg.BaseURL + "/spreadsheets/" + url.PathEscape(s.cfg.SpreadsheetID) +
		"/values/" + url.PathEscape(rng) + suffix
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// call performs one throttled, retried API request and decodes the reply into out.
func (s *SheetStore) call(ctx context.Context, method, u string, in, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		payload = b
	}
	return retry(ctx, s.cfg.Retry, func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, body)
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode/100 != 2 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			apiErr := &SheetAPIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
			if ra, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && ra > 0 {
				apiErr.RetryAfter = time.Duration(ra) * time.Second
			}
			return apiErr
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}
