// Package syncclient is the Go client of the RD API: report, employee and
// user storage over HTTP plus the websocket change feed.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/realtime"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gorilla/websocket"
)

// ErrPrivilegedOperation is returned when the server refuses an operation
// that needs its privileged admin functions.
var ErrPrivilegedOperation = errors.New("operação privilegiada não permitida ou não configurada no servidor")

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx answer of the API.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets callers test API failures with errors.Is against the shared
// sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.Code == utils.CodePrivilegedNotConfigured:
		return ErrPrivilegedOperation
	case e.StatusCode == http.StatusForbidden:
		return utils.ErrForbidden
	case e.StatusCode == http.StatusNotFound:
		return utils.ErrNotFound
	}
	return nil
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer

	mu    sync.RWMutex
	token string
}

// New returns a client for the API at baseURL. A nil httpClient gets a
// default one with a 30 s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login signs in with a registration number or email and keeps the token
// for later calls.
func (c *Client) Login(ctx context.Context, login, password string) (models.User, error) {
	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	body := map[string]string{"login": login, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", body, &out); err != nil {
		return models.User{}, err
	}
	c.SetToken(out.Token)
	return out.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/admin/logout", nil, nil)
	c.SetToken("")
	return err
}

// Ping reports whether the API and its database answer.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ping", nil, nil)
}

// List returns the reports visible to the signed-in user, newest first.
// Failures are logged and yield an empty list.
func (c *Client) List(ctx context.Context) []models.Report {
	reports, err := c.listReports(ctx)
	if err != nil {
		utils.ErrorLogger.Errorf("list reports: %v", err)
		return []models.Report{}
	}
	return reports
}

func (c *Client) listReports(ctx context.Context) ([]models.Report, error) {
	var out struct {
		Reports []models.Report `json:"reports"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/rds", nil, &out); err != nil {
		return nil, err
	}
	if out.Reports == nil {
		out.Reports = []models.Report{}
	}
	return out.Reports, nil
}

// Upsert submits r and replaces it with the stored version.
func (c *Client) Upsert(ctx context.Context, r *models.Report) error {
	return c.do(ctx, http.MethodPost, "/admin/rds", r, r)
}

func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/rds/"+url.PathEscape(id), nil, nil)
}

// UpdateStatus approves or rejects a report and returns it as stored.
func (c *Client) UpdateStatus(ctx context.Context, id string, status models.ReportStatus, note string) (models.Report, error) {
	var out models.Report
	body := map[string]string{"status": string(status), "note": note}
	err := c.do(ctx, http.MethodPatch, "/admin/rds/"+url.PathEscape(id)+"/status", body, &out)
	return out, err
}

// ListEmployees degrades to an empty list like List.
func (c *Client) ListEmployees(ctx context.Context) []models.Employee {
	out := []models.Employee{}
	if err := c.do(ctx, http.MethodGet, "/admin/employees", nil, &out); err != nil {
		utils.ErrorLogger.Errorf("list employees: %v", err)
		return []models.Employee{}
	}
	return out
}

// SaveEmployee creates e when it has no id and updates it otherwise.
func (c *Client) SaveEmployee(ctx context.Context, e *models.Employee) error {
	if e.ID == "" {
		return c.do(ctx, http.MethodPost, "/admin/employees", e, e)
	}
	return c.do(ctx, http.MethodPut, "/admin/employees/"+url.PathEscape(e.ID), e, e)
}

func (c *Client) DeleteEmployee(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/employees/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListUsers(ctx context.Context) []models.User {
	out := []models.User{}
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, &out); err != nil {
		utils.ErrorLogger.Errorf("list users: %v", err)
		return []models.User{}
	}
	return out
}

// SaveUser creates u with password when it has no id. Updates only touch
// name, role and team; password is ignored.
func (c *Client) SaveUser(ctx context.Context, u *models.User, password string) error {
	body := struct {
		Name         string          `json:"name"`
		Registration string          `json:"registration"`
		Email        string          `json:"email,omitempty"`
		Password     string          `json:"password,omitempty"`
		Role         models.UserRole `json:"role"`
		Team         string          `json:"team,omitempty"`
	}{u.Name, u.Registration, u.Email, password, u.Role, u.Team}

	if u.ID == "" {
		return c.do(ctx, http.MethodPost, "/admin/users", body, u)
	}
	body.Password = ""
	return c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(u.ID), body, u)
}

// DeleteUser fails with ErrPrivilegedOperation when the server has its
// admin functions disabled.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil, nil)
}

// Subscribe calls onChange for every change notice pushed by the server
// until ctx ends or the returned func is called. The func is idempotent
// and waits for the reader to stop.
func (c *Client) Subscribe(ctx context.Context, onChange func(realtime.ChangeNotice)) (func(), error) {
	u, err := url.Parse(c.baseURL + "/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", c.Token())
	u.RawQuery = q.Encode()

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg struct {
				Event string                `json:"event"`
				Data  realtime.ChangeNotice `json:"data"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			onChange(msg.Data)
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
			<-done
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-done:
		}
	}()
	return unsubscribe, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg, Code: env.Code}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}
