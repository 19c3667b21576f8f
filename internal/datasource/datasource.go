// Package datasource provides quote sources: the Yahoo Finance chart endpoint
// and a synthetic generator used when the network is unavailable.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/seenimoa/marketpulse/pkg/models"
)

// QuoteSource is anything that can produce a live quote for a symbol.
type QuoteSource interface {
	// Name returns the human-readable name of this source.
	Name() string

	// Fetch returns a normalised quote. Failures are *NetworkError.
	Fetch(ctx context.Context, symbol string) (models.Quote, error)
}

// --- Errors ---

// ErrorKind classifies a failed fetch.
type ErrorKind int

const (
	KindTimeout ErrorKind = iota + 1
	KindHTTP
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	case KindMalformed:
		return "malformed"
	}
	return "unknown"
}

// ErrNoResult is returned inside a malformed NetworkError when the chart
// response carries no result entry or no metadata block.
var ErrNoResult = errors.New("no chart result")

// NetworkError is the only error type Fetch returns.
type NetworkError struct {
	Kind   ErrorKind
	Symbol string
	Status int // HTTP status, 0 when the request never got a response
	Err    error
}

func (e *NetworkError) Error() string {
	switch e.Kind {
	case KindHTTP:
		if e.Status > 0 {
			return fmt.Sprintf("fetch %s: HTTP %d: %v", e.Symbol, e.Status, e.Err)
		}
		return fmt.Sprintf("fetch %s: transport: %v", e.Symbol, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s: %v", e.Symbol, e.Kind, e.Err)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// KindOf returns the kind of a NetworkError anywhere in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Kind
	}
	return 0
}

// classify turns a transport-level error into a NetworkError.
func classify(symbol string, err error) *NetworkError {
	var ne *NetworkError
	if errors.As(err, &ne) {
		if ne.Symbol == "" {
			ne.Symbol = symbol
		}
		return ne
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &NetworkError{Kind: KindTimeout, Symbol: symbol, Err: err}
	}
	return &NetworkError{Kind: KindHTTP, Symbol: symbol, Err: err}
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// HTTPClient is shared by sources that are not given their own client.
// Deadlines come from the request context.
var HTTPClient = &http.Client{}

// doGet performs a GET request with the given URL and headers, returning the response body.
// The caller is responsible for closing the returned ReadCloser.
func doGet(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if client == nil {
		client = HTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &NetworkError{
			Kind:   KindHTTP,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s: %s", resp.Status, body),
		}
	}

	return resp.Body, nil
}
