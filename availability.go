package gcpmetadata

import (
	"context"
	"errors"
	"strconv"

	"github.com/stephenplusplus/gcp-metadata/internal/errorsx"
	"github.com/stephenplusplus/gcp-metadata/internal/optional"
)

// Environment variables honored by [*Client.IsAvailable].
const (
	// EnvDetectRetries overrides the availability-detection retry
	// count. The default is zero: unavailability should be detected
	// quickly, so we make no retries unless explicitly asked to.
	EnvDetectRetries = "DETECT_GCP_RETRIES"

	// EnvDebugAuth, when set, causes errors suppressed by
	// [*Client.IsAvailable] to be surfaced to the logger before
	// being converted to false.
	EnvDebugAuth = "DEBUG_AUTH"
)

// IsAvailable tells whether the metadata service is present.
//
// It probes the instance resource in fast-fail dual-path mode. On a
// genuine cloud environment the probe succeeds within milliseconds;
// outside of it, the probe manifests the absence of the service as a
// timeout or a known connection-level failure, which this method
// converts to false. Every other failure kind is unexpected and is
// returned rather than swallowed.
func (c *Client) IsAvailable(ctx context.Context) (bool, error) {
	opts := &Options{
		NoResponseRetries: optional.Some(c.detectRetries()),
		FastFail:          true,
	}
	_, err := c.Get(ctx, ResourceInstance, opts)
	if err == nil {
		return true, nil
	}

	if c.environment().Getenv(EnvDebugAuth) != "" {
		c.logger().Infof("gcpmetadata: availability probe failed: %s", err.Error())
	}

	var wrapper *errorsx.ErrWrapper
	if !errors.As(err, &wrapper) {
		// not a transport failure, hence unexpected
		return false, err
	}

	// absence of the service manifests as a timeout within
	// milliseconds in a genuine cloud environment
	if wrapper.Failure == errorsx.FailureGenericTimeoutError {
		return false, nil
	}

	switch wrapper.Failure {
	case errorsx.FailureDNSNXDOMAINError,
		errorsx.FailureNoSuchFile,
		errorsx.FailureNetworkUnreachable,
		errorsx.FailureHostUnreachable:
		return false, nil
	default:
		return false, err
	}
}

// detectRetries returns the availability-detection retry count,
// honoring the [EnvDetectRetries] override.
func (c *Client) detectRetries() int {
	value := c.environment().Getenv(EnvDetectRetries)
	if value == "" {
		return 0
	}
	retries, err := strconv.Atoi(value)
	if err != nil || retries < 0 {
		c.logger().Warnf("gcpmetadata: invalid %s value %q, using zero", EnvDetectRetries, value)
		return 0
	}
	return retries
}
