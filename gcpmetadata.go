// Package gcpmetadata implements a client for the GCE metadata
// service, the local-only HTTP endpoint exposing instance and project
// identity attributes.
//
// The service is reachable through two fixed addresses: an IP literal
// and, redundantly, a DNS name. Normal retrieval uses the IP-based
// address only. Availability detection instead races both addresses
// in fast-fail mode, so that a single flaky path cannot make a
// genuine cloud environment look absent.
//
// The client keeps no state between calls: no caching, no persistent
// connections, no discovery beyond the two fixed addresses.
package gcpmetadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stephenplusplus/gcp-metadata/internal/model"
	"github.com/stephenplusplus/gcp-metadata/internal/racex"
	"github.com/stephenplusplus/gcp-metadata/internal/transportx"
)

// Addressing constants for the metadata service.
const (
	// PrimaryHostAddress is the IP-based address of the metadata service.
	PrimaryHostAddress = "http://169.254.169.254"

	// SecondaryHostAddress is the DNS-based address of the metadata service.
	SecondaryHostAddress = "http://metadata.google.internal"

	// BasePath is the path prefix shared by all metadata resources.
	BasePath = "/computeMetadata/v1"

	// FlavorHeader is the header authenticating metadata responses.
	FlavorHeader = "Metadata-Flavor"

	// FlavorValue is the expected value of the [FlavorHeader] header.
	FlavorValue = "Google"

	// DefaultTimeout is the per-attempt request timeout.
	DefaultTimeout = 3 * time.Second

	// DefaultNoResponseRetries is the default number of times we
	// retry a request for which no HTTP response arrived.
	DefaultNoResponseRetries = 3
)

// Supported metadata resources.
const (
	// ResourceInstance names the instance metadata resource.
	ResourceInstance = "instance"

	// ResourceProject names the project metadata resource.
	ResourceProject = "project"

	// ResourceUniverse names the universe metadata resource.
	ResourceUniverse = "universe"
)

// isSupportedResource tells whether resource names a supported resource.
func isSupportedResource(resource string) bool {
	switch resource {
	case ResourceInstance, ResourceProject, ResourceUniverse:
		return true
	default:
		return false
	}
}

// Errors returned by [*Client.Get].
var (
	// ErrUnknownResource means the resource is not a supported one.
	ErrUnknownResource = errors.New("gcpmetadata: unknown metadata resource")

	// ErrInvalidResponse means the response lacked the expected
	// Metadata-Flavor header, regardless of its status code.
	ErrInvalidResponse = errors.New(
		"gcpmetadata: invalid response from metadata service: incorrect Metadata-Flavor header")

	// ErrEmptyResponse means the response body was empty.
	ErrEmptyResponse = errors.New(
		"gcpmetadata: invalid response from metadata service: empty response body")
)

// Client is a client for the metadata service.
//
// The zero value is valid and uses [http.DefaultClient], a logger
// that discards its input, and the process environment. Construct
// with [New] or fill the fields you need before the first call; do
// not mutate them afterwards.
type Client struct {
	// HTTPClient is the OPTIONAL http client to use.
	HTTPClient model.HTTPClient

	// Logger is the OPTIONAL logger to use. It is out of the box
	// compatible with log.Log in github.com/apex/log.
	Logger model.Logger

	// Environment is the OPTIONAL source of the two environment
	// knobs honored by [*Client.IsAvailable].
	Environment model.Environment

	// The following fields allow tests to point the client at
	// local servers and to shorten the per-attempt timeout.
	primaryAddress   string
	secondaryAddress string
	timeout          time.Duration
}

// New creates a new [*Client] with default settings.
func New() *Client {
	return &Client{}
}

func (c *Client) httpClient() model.HTTPClient {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) logger() model.Logger {
	return model.ValidLoggerOrDefault(c.Logger)
}

func (c *Client) environment() model.Environment {
	if c.Environment != nil {
		return c.Environment
	}
	return model.OSEnvironment
}

func (c *Client) primaryHostAddress() string {
	if c.primaryAddress != "" {
		return c.primaryAddress
	}
	return PrimaryHostAddress
}

func (c *Client) secondaryHostAddress() string {
	if c.secondaryAddress != "" {
		return c.secondaryAddress
	}
	return SecondaryHostAddress
}

func (c *Client) requestTimeout() time.Duration {
	if c.timeout > 0 {
		return c.timeout
	}
	return DefaultTimeout
}

// Get fetches the named metadata resource and returns its decoded
// value, which is either a structured value (for JSON bodies, parsed
// with big-integer-safe semantics) or the raw body text.
//
// The options argument may be nil, a string (shorthand for the
// property to fetch), an [*Options] value, or a map validated as
// documented in [ParseOptions]. Option validation always happens
// before any network activity.
//
// The Metadata-Flavor header is reserved: it is always sent with its
// expected value and caller-supplied headers cannot shadow it.
func (c *Client) Get(ctx context.Context, resource string, options any) (any, error) {
	opts, err := ParseOptions(options)
	if err != nil {
		return nil, err
	}
	if !isSupportedResource(resource) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, resource)
	}

	urlPath := BasePath + "/" + resource
	if opts.Property != "" {
		urlPath += "/" + opts.Property
	}

	// merge the caller headers first, then set the flavor header,
	// so that the reserved header always wins
	headers := http.Header{}
	for key, values := range opts.Headers {
		for _, value := range values {
			headers.Add(key, value)
		}
	}
	headers.Set(FlavorHeader, FlavorValue)

	txp := &transportx.Client{
		HTTPClient: c.httpClient(),
		Logger:     c.logger(),
	}
	req := &transportx.Request{
		URL:               c.primaryHostAddress() + urlPath,
		Headers:           headers,
		Timeout:           c.requestTimeout(),
		NoResponseRetries: opts.NoResponseRetries.UnwrapOr(DefaultNoResponseRetries),
		Params:            opts.Params,
	}

	var resp *transportx.Response
	if opts.FastFail {
		secondary := req.WithURL(c.secondaryHostAddress() + urlPath)
		resp, err = racex.Race(ctx,
			func(ctx context.Context) (*transportx.Response, error) {
				return txp.Get(ctx, req)
			},
			func(ctx context.Context) (*transportx.Response, error) {
				return txp.Get(ctx, secondary)
			},
		)
	} else {
		resp, err = txp.Get(ctx, req)
	}
	if err != nil {
		// disambiguate "service reachable but rejected" from
		// "service unreachable" in the error message
		var failed *transportx.ErrRequestFailed
		if errors.As(err, &failed) {
			return nil, fmt.Errorf("gcpmetadata: unsuccessful response status code: %w", err)
		}
		return nil, err
	}

	if resp.Headers.Get(FlavorHeader) != FlavorValue {
		return nil, ErrInvalidResponse
	}
	if len(resp.Body) <= 0 {
		return nil, ErrEmptyResponse
	}
	return decodeBody(resp.Body), nil
}
