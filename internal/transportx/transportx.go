// Package transportx performs the single HTTP GET at the bottom of
// every metadata operation. It owns the per-attempt timeout and the
// no-response retry policy and it classifies transport failures using
// the errorsx package, so the layers above only ever deal with a
// structured [*Response] or a classified error.
package transportx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/stephenplusplus/gcp-metadata/internal/errorsx"
	"github.com/stephenplusplus/gcp-metadata/internal/model"
)

// Request describes a single GET against the metadata service.
//
// The zero value is invalid; initialize the MANDATORY fields.
type Request struct {
	// URL is the MANDATORY URL to fetch.
	URL string

	// Headers contains the OPTIONAL request headers.
	Headers http.Header

	// Timeout is the MANDATORY per-attempt timeout.
	Timeout time.Duration

	// NoResponseRetries is the number of times we retry an attempt
	// for which we did not obtain any HTTP response. Zero means a
	// single attempt with no retries.
	NoResponseRetries int

	// Params contains OPTIONAL query parameters merged into the URL.
	Params map[string]string
}

// WithURL returns a copy of the [*Request] pointing at the given
// URL. Everything else (headers, params, timeout, retries) stays the
// same, so the copy is suitable as the sibling attempt in a race.
func (req *Request) WithURL(URL string) *Request {
	return &Request{
		URL:               URL,
		Headers:           req.Headers,
		Timeout:           req.Timeout,
		NoResponseRetries: req.NoResponseRetries,
		Params:            req.Params,
	}
}

// Response is a structured HTTP response.
type Response struct {
	// StatusCode is the response status code.
	StatusCode int

	// Headers contains the response headers.
	Headers http.Header

	// Body is the raw response body.
	Body []byte
}

// ErrRequestFailed indicates that the server replied with a non-2xx
// status code. The response is still attached, because the caller
// validates the response envelope even for failed requests.
type ErrRequestFailed struct {
	// Response is the failed response.
	Response *Response
}

// Error implements error.
func (e *ErrRequestFailed) Error() string {
	return fmt.Sprintf("transportx: request failed with status %d", e.Response.StatusCode)
}

// Client performs requests against the metadata service.
//
// The zero value is invalid; initialize the MANDATORY fields.
type Client struct {
	// HTTPClient is the MANDATORY [model.HTTPClient] to use.
	HTTPClient model.HTTPClient

	// Logger is the MANDATORY [model.Logger] to use.
	Logger model.Logger
}

// Get fetches the request's URL and returns a structured response.
//
// Failures for which no HTTP response arrived (timeouts, connection
// and DNS failures) are retried up to req.NoResponseRetries times; a
// non-2xx status is definitive and returned as [*ErrRequestFailed]
// without further attempts. All transport failures are classified
// through [errorsx.NewErrWrapper] before being returned.
func (c *Client) Get(ctx context.Context, req *Request) (*Response, error) {
	URL, err := urlWithParams(req.URL, req.Params)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= req.NoResponseRetries; attempt++ {
		resp, err := c.get(ctx, URL, req)
		if err == nil {
			return resp, nil
		}

		// a non-2xx status means the service responded, hence
		// retrying cannot possibly change the outcome
		var failed *ErrRequestFailed
		if errors.As(err, &failed) {
			return nil, err
		}

		lastErr = err

		// stop retrying when the caller is gone
		if ctx.Err() != nil {
			return nil, lastErr
		}

		if attempt < req.NoResponseRetries {
			c.Logger.Debugf("transportx: %s: %s (will retry)", URL, err.Error())
			continue
		}
	}
	return nil, lastErr
}

// get performs a single attempt.
func (c *Client) get(ctx context.Context, URL string, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, "GET", URL, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range req.Headers {
		httpReq.Header[http.CanonicalHeaderKey(key)] = values
	}

	c.Logger.Debugf("transportx: GET %s", URL)
	httpResp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, errorsx.NewErrWrapper("http_round_trip", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errorsx.NewErrWrapper("http_read_body", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ErrRequestFailed{Response: resp}
	}
	return resp, nil
}

// urlWithParams merges the given query parameters into the URL.
func urlWithParams(URL string, params map[string]string) (string, error) {
	if len(params) <= 0 {
		return URL, nil
	}
	parsed, err := url.Parse(URL)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	for key, value := range params {
		query.Set(key, value)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
