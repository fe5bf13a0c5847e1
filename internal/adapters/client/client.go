// Package client talks to the identity and game services over HTTP.
package client

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/okian/arena/pkg/logger"
)

const (
	defaultTimeout = 3 * time.Second
	retryWait      = 100 * time.Millisecond
	retryMaxWait   = time.Second
)

type settings struct {
	timeout time.Duration
	retries int
	token   string
	log     logger.Logger
}

func newSettings(opts []Option) settings {
	s := settings{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func newResty(baseURL string, s settings) *resty.Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(s.timeout).
		SetHeader("Accept", "application/json")
	if s.token != "" {
		r.SetAuthToken(s.token)
	}
	return r
}

// apiError is the error body both services send.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps a failed call onto ErrNotFound or ErrUnavailable.
func classify(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	msg := resp.Status()
	if e, ok := resp.Error().(*apiError); ok && e.Message != "" {
		msg = e.Message
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s: %s", ErrUnavailable, op, msg)
	}
	return fmt.Errorf("%w: %s: %d %s", ErrRejected, op, resp.StatusCode(), msg)
}
