// Package backend talks to the survey backend API: identity validation,
// survey persistence, and the read endpoints used by the report sync job.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/mbolis/barrio-survey/model"
)

const maxBody = 10 * 1024 * 1024

const (
	PathValidarDNI   = "/validar-dni"
	PathGuardar      = "/guardar"
	PathEstado       = "/estado/"
	PathTodas        = "/todas"
	PathEstadisticas = "/estadisticas"
	PathSalud        = "/salud"
)

const (
	defaultUserAgent   = "barrio-survey"
	defaultHTTPTimeout = 30 * time.Second
)

// StatusError is returned for any non-2xx answer. Message holds the
// backend's own explanation when the body carried one.
type StatusError struct {
	Code    int
	Message string
	Body    []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: http %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("backend: http %d", e.Code)
}

type Client struct {
	baseURL   string
	http      *http.Client
	UserAgent string
}

// New returns a client for the API rooted at baseURL. A nil httpClient gets
// a default client with a 30s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      httpClient,
		UserAgent: defaultUserAgent,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type IdentityCheck struct {
	CanContinue bool
	Message     string
}

type identityResponse struct {
	PuedeContinuar *bool  `json:"puedeContinuar"`
	CanContinue    *bool  `json:"canContinue"`
	Mensaje        string `json:"mensaje"`
	Message        string `json:"message"`
}

func (r identityResponse) check() (IdentityCheck, bool) {
	flag := r.PuedeContinuar
	if flag == nil {
		flag = r.CanContinue
	}
	if flag == nil {
		return IdentityCheck{}, false
	}
	msg := r.Mensaje
	if msg == "" {
		msg = r.Message
	}
	return IdentityCheck{CanContinue: *flag, Message: msg}, true
}

// CheckIdentity asks whether dni may still answer the survey. A rejection
// sent with an error status but an explicit continue flag is reported as a
// regular check result, not as an error.
func (c *Client) CheckIdentity(ctx context.Context, dni string) (IdentityCheck, error) {
	var body identityResponse
	err := c.do(ctx, http.MethodPost, PathValidarDNI, map[string]string{"dni": dni}, &body)

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		var rejected identityResponse
		if json.Unmarshal(statusErr.Body, &rejected) == nil {
			if check, ok := rejected.check(); ok && !check.CanContinue {
				return check, nil
			}
		}
	}
	if err != nil {
		return IdentityCheck{}, errors.Wrap(err, "validar dni")
	}

	check, ok := body.check()
	if !ok {
		return IdentityCheck{}, errors.New("validar dni: response without continue flag")
	}
	return check, nil
}

type Receipt struct {
	Success bool            `json:"success"`
	Message string          `json:"mensaje,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (c *Client) PersistSurvey(ctx context.Context, survey model.Survey) (Receipt, error) {
	var receipt Receipt
	if err := c.do(ctx, http.MethodPost, PathGuardar, survey, &receipt); err != nil {
		return Receipt{}, errors.Wrap(err, "guardar encuesta")
	}
	return receipt, nil
}

// SurveyStatus returns the backend's status document for a stored survey.
func (c *Client) SurveyStatus(ctx context.Context, id string) (map[string]any, error) {
	var status map[string]any
	if err := c.do(ctx, http.MethodGet, PathEstado+url.PathEscape(id), nil, &status); err != nil {
		return nil, errors.Wrap(err, "estado encuesta")
	}
	return status, nil
}

type Page struct {
	Success bool     `json:"success"`
	Data    PageData `json:"data"`
}

type PageData struct {
	Encuestas  []model.Record `json:"encuestas"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
}

func (c *Client) FetchAll(ctx context.Context) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodGet, PathTodas, nil, &page); err != nil {
		return nil, errors.Wrap(err, "todas")
	}
	return &page, nil
}

func (c *Client) FetchStats(ctx context.Context) (map[string]any, error) {
	var stats map[string]any
	if err := c.do(ctx, http.MethodGet, PathEstadisticas, nil, &stats); err != nil {
		return nil, errors.Wrap(err, "estadisticas")
	}
	return stats, nil
}

// Health succeeds on any 200 answer from the health endpoint.
func (c *Client) Health(ctx context.Context) error {
	status, _, err := c.Probe(ctx, PathSalud)
	if err != nil {
		return errors.Wrap(err, "salud")
	}
	if status != http.StatusOK {
		return errors.Wrap(&StatusError{Code: status}, "salud")
	}
	return nil
}

// Probe performs a bare GET and reports status and body without judging them.
func (c *Client) Probe(ctx context.Context, path string) (int, []byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "http")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, "read body")
	}
	return resp.StatusCode, body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, errors.Wrap(err, "json encode")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "http")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return errors.Wrap(err, "read body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Code:    resp.StatusCode,
			Message: errorMessage(body),
			Body:    body,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "json decode")
	}
	return nil
}

func errorMessage(body []byte) string {
	var msg struct {
		Mensaje string `json:"mensaje"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &msg) != nil {
		return ""
	}
	if msg.Mensaje != "" {
		return msg.Mensaje
	}
	return msg.Message
}
