// Package invoker issues single outbound inference calls to cloud vision endpoints.
//
// An invocation is one HTTP round trip: validate, send, classify the outcome.
// Nothing is retried and no state survives between calls.
package invoker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultTimeout = 30 * time.Second

// errorBodyLimit caps how much of a failed response is kept for the fault message.
const errorBodyLimit = 4 << 10

// Outcome is reported to the observer after every attempted call.
type Outcome struct {
	RequestID  string
	Op         string
	Method     string
	Endpoint   string
	StatusCode int
	Kind       Kind
	Duration   time.Duration
	Err        error
}

type Client struct {
	httpc    *http.Client
	observer func(Outcome)
}

// New returns a client whose calls give up after timeout (DefaultTimeout when <= 0).
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{httpc: &http.Client{Timeout: timeout}}
}

// NewWithHTTPClient wraps an existing client, e.g. one with a stub transport.
func NewWithHTTPClient(c *http.Client) *Client {
	if c == nil {
		return New(0)
	}
	return &Client{httpc: c}
}

// WithObserver registers fn to receive an Outcome after each call. fn runs on the calling goroutine.
func (c *Client) WithObserver(fn func(Outcome)) *Client {
	c.observer = fn
	return c
}

// Response is a successful (2xx) reply. Body is the full, unmodified response body.
type Response struct {
	Op          string
	StatusCode  int
	ContentType string
	RequestID   string
	Body        []byte
}

// DecodeJSON unmarshals the body into v, reporting problems as a decode fault.
func (r *Response) DecodeJSON(v any) error {
	if len(r.Body) == 0 {
		return DecodeFault(r.Op, errors.New("empty response body"))
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return DecodeFault(r.Op, err)
	}
	return nil
}

// Invoke performs exactly one HTTP call described by req.
func (c *Client) Invoke(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	reqID := uuid.NewString()
	resp, err := c.invoke(ctx, req, reqID)
	if c.observer != nil {
		o := Outcome{
			RequestID: reqID,
			Op:        req.Op,
			Method:    req.method(),
			Endpoint:  req.Endpoint,
			Kind:      KindOf(err),
			Duration:  time.Since(start),
			Err:       err,
		}
		if resp != nil {
			o.StatusCode = resp.StatusCode
		} else {
			var f *Fault
			if errors.As(err, &f) {
				o.StatusCode = f.StatusCode
			}
		}
		c.observer(o)
	}
	return resp, err
}

func (c *Client) invoke(ctx context.Context, req Request, reqID string) (*Response, error) {
	if f := req.validate(); f != nil {
		return nil, f
	}
	body, err := req.body()
	if err != nil {
		return nil, &Fault{Kind: KindConfiguration, Op: req.Op, Err: err}
	}

	hr, err := http.NewRequestWithContext(ctx, req.method(), req.fullURL(), body)
	if err != nil {
		return nil, &Fault{Kind: KindConfiguration, Op: req.Op, Err: err}
	}
	if ct := req.Payload.ContentType(); ct != "" {
		hr.Header.Set("Content-Type", ct)
	}
	accept := req.Accept
	if accept == "" {
		accept = ContentTypeJSON
	}
	hr.Header.Set("Accept", accept)
	hr.Header.Set(req.AuthHeader, req.AuthValue)
	hr.Header.Set("x-ms-client-request-id", reqID)

	resp, err := c.httpc.Do(hr)
	if err != nil {
		return nil, &Fault{Kind: KindTransport, Op: req.Op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		x, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		f := &Fault{
			Kind:       KindService,
			Op:         req.Op,
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
		}
		f.Code, f.Message = vendorError(x)
		if f.Message == "" {
			f.Message = strings.TrimSpace(string(x))
		}
		return nil, f
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Fault{Kind: KindTransport, Op: req.Op, Err: fmt.Errorf("read body: %w", err)}
	}
	return &Response{
		Op:          req.Op,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		RequestID:   reqID,
		Body:        b,
	}, nil
}

func statusText(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

// vendorError pulls code and message out of the error envelopes the vision services use:
// {"error":{"code","message"}} (Azure AI services), {"code","message"} (Custom Vision),
// {"status":{"code","description"}} (Clarifai).
func vendorError(body []byte) (code, message string) {
	var env struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
		Status  *struct {
			Code        json.Number `json:"code"`
			Description string      `json:"description"`
			Details     string      `json:"details"`
		} `json:"status"`
	}
	if len(body) == 0 || json.Unmarshal(body, &env) != nil {
		return "", ""
	}
	switch {
	case env.Error != nil:
		return env.Error.Code, env.Error.Message
	case env.Message != "":
		return rawString(env.Code), env.Message
	case env.Status != nil:
		msg := env.Status.Description
		if env.Status.Details != "" {
			msg += ": " + env.Status.Details
		}
		return env.Status.Code.String(), msg
	}
	return "", ""
}

func rawString(m json.RawMessage) string {
	var s string
	if json.Unmarshal(m, &s) == nil {
		return s
	}
	return strings.Trim(string(m), `"`)
}
