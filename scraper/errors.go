package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/aluiziolira/go-scrape-offers/parser"
	"github.com/aluiziolira/go-scrape-offers/pipeline"
)

// FetchError reports a failed HTTP fetch: a transport failure, a timeout,
// or a response outside the 2xx range.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return "timeout: " + e.Err.Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates the request never reached the server.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return "connection: " + e.Err.Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	StatusCode int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// Kind labels the status for logs and metrics.
func (e StatusError) Kind() string {
	switch e.StatusCode {
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	return "http_status"
}

// errorTypeLabel maps a contained failure to the "error_type" label.
func errorTypeLabel(err error) string {
	var (
		timeout     ErrTimeout
		conn        ErrConnection
		status      StatusError
		extraction  *parser.ExtractionError
		structure   *parser.PageStructureError
		persistence *pipeline.PersistenceError
	)
	switch {
	case err == nil:
		return "unknown"
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &conn):
		return "connection"
	case errors.As(err, &status):
		return status.Kind()
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &extraction):
		return "extraction"
	case errors.As(err, &structure):
		return "page_structure"
	case errors.As(err, &persistence):
		return "persistence"
	}
	return "other"
}

// classifyError wraps a transport error or a non-2xx status in its typed
// error. Anything else is returned unchanged.
func classifyError(err error, statusCode int) error {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout{Err: err}
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrTimeout{Err: err}
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return ErrConnection{Err: err}
		}
	}
	if statusCode != 0 && (statusCode < 200 || statusCode > 299) {
		if err == nil {
			return StatusError{StatusCode: statusCode}
		}
		return fmt.Errorf("%w: %w", StatusError{StatusCode: statusCode}, err)
	}
	return err
}
