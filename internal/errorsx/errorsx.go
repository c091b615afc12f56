// Package errorsx maps Go transport errors to stable failure strings.
//
// The metadata client needs to tell apart "the service is absent"
// failures (timeouts, DNS not found, unreachable networks) from every
// other failure kind. Rather than sprinkling errors.Is checks across
// the codebase, we classify each transport error once, when it first
// crosses the transport boundary, and attach the resulting failure
// string using the [*ErrWrapper] type.
package errorsx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/stephenplusplus/gcp-metadata/internal/runtimex"
)

// Failure strings assigned by [Classify].
const (
	// FailureGenericTimeoutError means an operation timed out.
	FailureGenericTimeoutError = "generic_timeout_error"

	// FailureDNSNXDOMAINError means a hostname did not resolve.
	FailureDNSNXDOMAINError = "dns_nxdomain_error"

	// FailureNetworkUnreachable maps ENETUNREACH.
	FailureNetworkUnreachable = "network_unreachable"

	// FailureHostUnreachable maps EHOSTUNREACH.
	FailureHostUnreachable = "host_unreachable"

	// FailureConnectionRefused maps ECONNREFUSED.
	FailureConnectionRefused = "connection_refused"

	// FailureConnectionReset maps ECONNRESET.
	FailureConnectionReset = "connection_reset"

	// FailureNoSuchFile maps ENOENT.
	FailureNoSuchFile = "no_such_file"

	// FailureEOFError means we got an unexpected EOF.
	FailureEOFError = "eof_error"

	// FailureInterrupted means the caller canceled the operation.
	FailureInterrupted = "interrupted"
)

// ErrWrapper wraps a Go error and carries the failure string that
// [Classify] assigned to it. The Error method returns the failure
// string, and Unwrap returns the original error, so both errors.Is
// and failure-string matching keep working on wrapped errors.
type ErrWrapper struct {
	// Failure is one of the FailureXXX strings, or an
	// "unknown_failure: ..." string for unmapped errors.
	Failure string

	// Operation is the operation that failed.
	Operation string

	// WrappedErr is the error that we're wrapping.
	WrappedErr error
}

// Error returns the failure string for this error.
func (e *ErrWrapper) Error() string {
	return e.Failure
}

// Unwrap allows to access the underlying error.
func (e *ErrWrapper) Unwrap() error {
	return e.WrappedErr
}

// NewErrWrapper creates a new [*ErrWrapper] for the given operation
// and underlying error. If err has already been classified, the new
// wrapper reuses the existing classification.
//
// This function panics if op is empty or err is nil.
func NewErrWrapper(op string, err error) *ErrWrapper {
	runtimex.Assert(op != "", "errorsx: NewErrWrapper with empty op")
	runtimex.Assert(err != nil, "errorsx: NewErrWrapper with nil err")
	return &ErrWrapper{
		Failure:    Classify(err),
		Operation:  op,
		WrappedErr: err,
	}
}

// Classify maps an error occurred during an operation to a failure
// string. If the input error is already an [*ErrWrapper] we don't
// perform the classification again and we return its Failure.
func Classify(err error) string {
	var wrapper *ErrWrapper
	if errors.As(err, &wrapper) {
		return wrapper.Failure
	}

	// Classify system errors first: string matching on their
	// message would not be portable across platforms.
	if failure := classifySyscallError(err); failure != "" {
		return failure
	}

	if errors.Is(err, context.Canceled) {
		return FailureInterrupted
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureGenericTimeoutError
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return FailureDNSNXDOMAINError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureGenericTimeoutError
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return FailureEOFError
	}

	if failure := classifyWithStringSuffix(err); failure != "" {
		return failure
	}

	return fmt.Sprintf("unknown_failure: %s", err.Error())
}

// classifySyscallError maps system call errors to failure strings. It
// returns an empty string when err is not a system call error.
func classifySyscallError(err error) string {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return FailureConnectionRefused
	case errors.Is(err, syscall.ECONNRESET):
		return FailureConnectionReset
	case errors.Is(err, syscall.EHOSTUNREACH):
		return FailureHostUnreachable
	case errors.Is(err, syscall.ENETUNREACH):
		return FailureNetworkUnreachable
	case errors.Is(err, syscall.ENOENT):
		return FailureNoSuchFile
	case errors.Is(err, syscall.ETIMEDOUT):
		return FailureGenericTimeoutError
	default:
		return ""
	}
}

// classifyWithStringSuffix performs classification by looking at
// error suffixes. This function returns an empty string when it
// cannot classify the error.
func classifyWithStringSuffix(err error) string {
	s := err.Error()
	if strings.HasSuffix(s, "operation was canceled") {
		return FailureInterrupted
	}
	if strings.HasSuffix(s, "EOF") {
		return FailureEOFError
	}
	if strings.HasSuffix(s, "context deadline exceeded") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "i/o timeout") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "no such host") {
		return FailureDNSNXDOMAINError
	}
	return "" // not found
}
