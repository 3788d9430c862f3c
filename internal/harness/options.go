package harness

import (
	"time"

	"github.com/spf13/pflag"
)

const (
	DefaultJSONCompareDepth  = 4096
	DefaultAPIRequestTimeout = 1000 * time.Millisecond
	DefaultStartupTimeout    = 1000 * time.Millisecond
	DefaultStartupInterval   = 10 * time.Millisecond
)

// Options change how a request is executed and validated.
type Options struct {
	// JSONCompareDepth bounds how deep JSON bodies are compared.
	JSONCompareDepth int
	// APIRequestTimeout bounds the request to the API under test, including
	// reading its body.
	APIRequestTimeout time.Duration
	// ErrorSuppressCascading drops response errors whenever a canned response
	// reported errors of its own, since those are the likely cause.
	ErrorSuppressCascading bool
}

func DefaultOptions() Options {
	return Options{
		JSONCompareDepth:       DefaultJSONCompareDepth,
		APIRequestTimeout:      DefaultAPIRequestTimeout,
		ErrorSuppressCascading: true,
	}
}

// BindFlags registers the options on fs, using the current values as defaults.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.JSONCompareDepth, "json-compare-depth", o.JSONCompareDepth, "Maximum depth of JSON body comparisons")
	fs.DurationVar(&o.APIRequestTimeout, "api-request-timeout", o.APIRequestTimeout, "Timeout for each request to the API under test")
	fs.BoolVar(&o.ErrorSuppressCascading, "error-suppress-cascading", o.ErrorSuppressCascading, "Hide response errors when a canned response failed its own expectations")
}
