// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package backend is the HTTP client for the hostel management (HMS) CRUD API.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	pkgerrors "agentwardan/pkg/errors"
)

// Record is one JSON object returned by the backend.
type Record = map[string]any

// Config HMS 客户端配置
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Retries   int
	RetryWait time.Duration
}

// Client wraps a resty client bound to the HMS base URL. Safe for concurrent use.
type Client struct {
	rc *resty.Client
}

var (
	sharedOnce   sync.Once
	sharedClient *Client
)

// Shared returns the process-wide client, building it from cfg on first use.
// Later calls ignore cfg.
func Shared(cfg Config) *Client {
	sharedOnce.Do(func() {
		sharedClient = New(cfg)
	})
	return sharedClient
}

// New 创建 HMS 客户端
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(4 * cfg.RetryWait).
		AddRetryCondition(retryIdempotent).
		SetHeader("Accept", "application/json")
	return &Client{rc: rc}
}

// retryIdempotent retries transport failures on GET, PUT and DELETE only.
// A POST may already have created the row when the connection drops.
func retryIdempotent(r *resty.Response, err error) bool {
	if err == nil || r == nil || r.Request == nil {
		return false
	}
	switch r.Request.Method {
	case http.MethodGet, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// StatusError is a non-2xx reply from the backend.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Detail())
}

// Unwrap maps 404 onto pkg/errors.ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return pkgerrors.ErrNotFound
	}
	return nil
}

// Detail returns the FastAPI "detail" message when present, else the raw body.
func (e *StatusError) Detail() string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil && body.Detail != nil {
		if s, ok := body.Detail.(string); ok {
			return s
		}
		b, _ := json.Marshal(body.Detail)
		return string(b)
	}
	if e.Body == "" {
		return http.StatusText(e.Code)
	}
	return e.Body
}

// IsStatus reports whether err carries a backend status reply (as opposed to
// a transport failure).
func IsStatus(err error) bool {
	var se *StatusError
	return pkgerrors.As(err, &se)
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return pkgerrors.As(err, &se) && se.Code == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, out any) error {
	req := c.rc.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode(), Body: resp.String()}
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func (c *Client) record(ctx context.Context, method, path string, body any) (Record, error) {
	var out Record
	if err := c.do(ctx, method, path, nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) list(ctx context.Context, path string, query map[string]string) ([]Record, error) {
	var out []Record
	if err := c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

// SearchStudents GET /students/?name= (partial match on the backend side)
func (c *Client) SearchStudents(ctx context.Context, name string) ([]Record, error) {
	return c.list(ctx, "/students/", map[string]string{"name": name})
}

// ListStudents GET /students/, optionally filtered by room number.
func (c *Client) ListStudents(ctx context.Context, roomNo string) ([]Record, error) {
	var q map[string]string
	if roomNo != "" {
		q = map[string]string{"room_no": roomNo}
	}
	return c.list(ctx, "/students/", q)
}

// GetStudent GET /students/{id}
func (c *Client) GetStudent(ctx context.Context, id int) (Record, error) {
	return c.record(ctx, http.MethodGet, "/students/"+strconv.Itoa(id), nil)
}

// CreateStudent POST /students/
func (c *Client) CreateStudent(ctx context.Context, data Record) (Record, error) {
	return c.record(ctx, http.MethodPost, "/students/", data)
}

// UpdateStudent PUT /students/{id}
func (c *Client) UpdateStudent(ctx context.Context, id int, data Record) (Record, error) {
	return c.record(ctx, http.MethodPut, "/students/"+strconv.Itoa(id), data)
}

// DeleteStudent DELETE /students/{id}
func (c *Client) DeleteStudent(ctx context.Context, id int) (Record, error) {
	return c.record(ctx, http.MethodDelete, "/students/"+strconv.Itoa(id), nil)
}

// ListRooms GET /rooms/, optionally filtered by status.
func (c *Client) ListRooms(ctx context.Context, status string) ([]Record, error) {
	var q map[string]string
	if status != "" {
		q = map[string]string{"status": status}
	}
	return c.list(ctx, "/rooms/", q)
}

// GetRoom GET /rooms/{room_no}
func (c *Client) GetRoom(ctx context.Context, roomNo string) (Record, error) {
	return c.record(ctx, http.MethodGet, "/rooms/"+url.PathEscape(roomNo), nil)
}

// CreateRoom POST /rooms/
func (c *Client) CreateRoom(ctx context.Context, data Record) (Record, error) {
	return c.record(ctx, http.MethodPost, "/rooms/", data)
}

// UpdateRoom PUT /rooms/{room_no}
func (c *Client) UpdateRoom(ctx context.Context, roomNo string, data Record) (Record, error) {
	return c.record(ctx, http.MethodPut, "/rooms/"+url.PathEscape(roomNo), data)
}

// DeleteRoom DELETE /rooms/ with a {"room_no": ...} body.
func (c *Client) DeleteRoom(ctx context.Context, roomNo string) (Record, error) {
	return c.record(ctx, http.MethodDelete, "/rooms/", Record{"room_no": roomNo})
}

// StudentPayments GET /payments/student/{name} (exact name match).
func (c *Client) StudentPayments(ctx context.Context, name string) ([]Record, error) {
	return c.list(ctx, "/payments/student/"+url.PathEscape(name), nil)
}

// ListPayments GET /payments/ filtered by status and/or student id (0 = any).
func (c *Client) ListPayments(ctx context.Context, status string, studentID int) ([]Record, error) {
	q := map[string]string{}
	if status != "" {
		q["status"] = status
	}
	if studentID > 0 {
		q["student_id"] = strconv.Itoa(studentID)
	}
	return c.list(ctx, "/payments/", q)
}

// CreatePaymentByName POST /payments/by-name/{name}
func (c *Client) CreatePaymentByName(ctx context.Context, name string, data Record) (Record, error) {
	return c.record(ctx, http.MethodPost, "/payments/by-name/"+url.PathEscape(name), data)
}

// UpdatePayment PUT /payments/{id}
func (c *Client) UpdatePayment(ctx context.Context, id int, data Record) (Record, error) {
	return c.record(ctx, http.MethodPut, "/payments/"+strconv.Itoa(id), data)
}
