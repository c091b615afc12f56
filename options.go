package gcpmetadata

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stephenplusplus/gcp-metadata/internal/optional"
)

// Errors returned by [ParseOptions].
var (
	// ErrUnknownOption means the options contained a key outside
	// the allowed set.
	ErrUnknownOption = errors.New("gcpmetadata: unknown configuration option")

	// ErrDeprecatedQS is the dedicated error for the long-gone "qs"
	// option key, pointing callers to its replacement.
	ErrDeprecatedQS = errors.New(
		"gcpmetadata: 'qs' is not a valid configuration option, please use 'params' instead")

	// ErrInvalidOptions means the options value had an unsupported
	// type or an option had a value of the wrong type.
	ErrInvalidOptions = errors.New("gcpmetadata: invalid configuration options")
)

// Options is the canonical request descriptor that every accepted
// form of caller options resolves to.
type Options struct {
	// Property is the OPTIONAL sub-property to fetch, appended to
	// the resource as an additional path segment.
	Property string

	// Params contains OPTIONAL query parameters.
	Params map[string]string

	// Headers contains OPTIONAL extra request headers. The
	// Metadata-Flavor header is reserved and cannot be shadowed.
	Headers http.Header

	// NoResponseRetries OPTIONALLY overrides the number of retries
	// for requests that obtained no HTTP response. When empty we
	// use [DefaultNoResponseRetries].
	NoResponseRetries optional.Value[int]

	// FastFail selects the dual-path racing request mode used for
	// quick availability checks.
	FastFail bool
}

// ParseOptions resolves the discriminated caller options to a
// canonical [*Options]. The accepted forms are:
//
// - nil: zero options;
//
// - string: shorthand for the property to fetch;
//
// - [Options] or [*Options]: used as is;
//
// - map[string]string or map[string]any: validated against the
// allowed key set {"params", "property", "headers"}; any other key
// fails with an error naming the key, and the deprecated "qs" key
// fails with [ErrDeprecatedQS].
//
// Parsing is pure: it never performs any network activity.
func ParseOptions(options any) (*Options, error) {
	switch value := options.(type) {
	case nil:
		return &Options{}, nil
	case string:
		return &Options{Property: value}, nil
	case *Options:
		if value == nil {
			return &Options{}, nil
		}
		return value, nil
	case Options:
		return &value, nil
	case map[string]string:
		anyMap := make(map[string]any, len(value))
		for key, entry := range value {
			anyMap[key] = entry
		}
		return optionsFromMap(anyMap)
	case map[string]any:
		return optionsFromMap(value)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidOptions, options)
	}
}

// optionsFromMap validates a dynamically-typed options map and
// converts it to the canonical [*Options].
func optionsFromMap(m map[string]any) (*Options, error) {
	opts := &Options{}
	for key, value := range m {
		switch key {
		case "property":
			property, good := value.(string)
			if !good {
				return nil, fmt.Errorf("%w: 'property' must be a string", ErrInvalidOptions)
			}
			opts.Property = property

		case "params":
			params, err := stringMap(key, value)
			if err != nil {
				return nil, err
			}
			opts.Params = params

		case "headers":
			entries, err := stringMap(key, value)
			if err != nil {
				return nil, err
			}
			opts.Headers = http.Header{}
			for name, entry := range entries {
				opts.Headers.Set(name, entry)
			}

		case "qs":
			return nil, ErrDeprecatedQS

		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownOption, key)
		}
	}
	return opts, nil
}

// stringMap converts an option value to a map[string]string.
func stringMap(key string, value any) (map[string]string, error) {
	switch entries := value.(type) {
	case map[string]string:
		return entries, nil
	case map[string]any:
		out := make(map[string]string, len(entries))
		for name, entry := range entries {
			s, good := entry.(string)
			if !good {
				return nil, fmt.Errorf(
					"%w: %q entries must be strings", ErrInvalidOptions, key)
			}
			out[name] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q must be a string map", ErrInvalidOptions, key)
	}
}
