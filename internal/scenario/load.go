package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/Use-Tusk/tusk-harness/internal/codec"
	"github.com/Use-Tusk/tusk-harness/internal/mock"
	"github.com/Use-Tusk/tusk-harness/internal/utils"
	"github.com/Use-Tusk/tusk-harness/internal/version"
)

var ErrEmptyFile = errors.New("scenario file is empty")

// Load reads and validates a single scenario file. Unknown keys are rejected.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- scenario paths come from the user's project
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes data as a scenario file named path.
func Parse(path string, data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	f := &File{}
	if err := dec.Decode(f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", path, ErrEmptyFile)
		}
		return nil, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
	}
	f.Path = path

	if err := f.Validate(); err != nil {
		return nil, multierror.Prefix(err, path+":")
	}
	return f, nil
}

// LoadDir loads every .yaml and .yml file below dir. Errors of all files are
// returned together.
func LoadDir(dir string) ([]*File, error) {
	paths, err := utils.ListFiles(dir, ".yaml", ".yml")
	if err != nil {
		return nil, err
	}

	var files []*File
	var result *multierror.Error
	for _, path := range paths {
		f, err := Load(path)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		files = append(files, f)
	}
	return files, result.ErrorOrNil()
}

// Validate checks the file for errors that would only surface once its
// scenarios run.
func (f *File) Validate() error {
	var result *multierror.Error

	if ok, err := version.Supports(f.MinVersion); err != nil {
		result = multierror.Append(result, fmt.Errorf("min_harness_version: %w", err))
	} else if !ok {
		result = multierror.Append(result, fmt.Errorf("requires harness version %s or newer, running %s", f.MinVersion, version.Version))
	}

	for _, name := range slices.Sorted(maps.Keys(f.Endpoints)) {
		e := f.Endpoints[name]
		if e.Hostname == "" {
			result = multierror.Append(result, fmt.Errorf("endpoint %q: hostname is required", name))
		}
		if e.Port < 1 || e.Port > 65535 {
			result = multierror.Append(result, fmt.Errorf("endpoint %q: port must be between 1-65535, got %d", name, e.Port))
		}
	}

	if len(f.Scenarios) == 0 {
		result = multierror.Append(result, errors.New("no scenarios defined"))
	}

	seen := make(map[string]bool, len(f.Scenarios))
	for i := range f.Scenarios {
		s := &f.Scenarios[i]
		label := fmt.Sprintf("scenario %d", i+1)
		if s.Name != "" {
			label = fmt.Sprintf("scenario %q", s.Name)
			if seen[s.Name] {
				result = multierror.Append(result, fmt.Errorf("%s: duplicate name", label))
			}
			seen[s.Name] = true
		} else {
			result = multierror.Append(result, fmt.Errorf("%s: name is required", label))
		}

		for _, err := range s.validate(f.Endpoints) {
			result = multierror.Append(result, fmt.Errorf("%s: %w", label, err))
		}
	}

	return result.ErrorOrNil()
}

func (s *Scenario) validate(endpoints map[string]mock.Endpoint) []error {
	var errs []error

	errs = append(errs, validateRequestLine("request", s.Request.Method, s.Request.Path)...)
	errs = append(errs, validateQuery("request.query", s.Request.Query)...)
	if s.Request.Body != nil {
		errs = append(errs, s.Request.Body.validate("request.body")...)
	}

	if s.Expect.Status != 0 && (s.Expect.Status < 100 || s.Expect.Status > 599) {
		errs = append(errs, fmt.Errorf("expect.status: invalid status code %d", s.Expect.Status))
	}
	if s.Expect.Body != nil {
		errs = append(errs, s.Expect.Body.validate("expect.body")...)
	}

	for i, r := range s.Responses {
		ctx := fmt.Sprintf("responses[%d]", i)
		if r.Endpoint == "" {
			errs = append(errs, fmt.Errorf("%s: endpoint is required", ctx))
		} else if _, ok := endpoints[r.Endpoint]; !ok {
			errs = append(errs, fmt.Errorf("%s: unknown endpoint %q", ctx, r.Endpoint))
		}
		errs = append(errs, validateRequestLine(ctx, r.Method, r.Path)...)
		errs = append(errs, validateQuery(ctx+".query", r.Query)...)
		if r.Status != 0 && (r.Status < 100 || r.Status > 599) {
			errs = append(errs, fmt.Errorf("%s: invalid status code %d", ctx, r.Status))
		}
		if r.Error != "" && (r.Body != nil || r.Status != 0) {
			errs = append(errs, fmt.Errorf("%s: error cannot be combined with status or body", ctx))
		}
		if r.Body != nil {
			errs = append(errs, r.Body.validate(ctx+".body")...)
		}
		if r.Expect.Body != nil {
			errs = append(errs, r.Expect.Body.validate(ctx+".expect.body")...)
		}
		if r.Expect.Status != 0 || len(r.Expect.JSONPaths) > 0 {
			errs = append(errs, fmt.Errorf("%s.expect: only headers, absent_headers, body and exact_body apply to captured requests", ctx))
		}
		if r.JSONCompareDepth < 0 {
			errs = append(errs, fmt.Errorf("%s: json_compare_depth must not be negative", ctx))
		}
	}

	if o := s.Options; o != nil {
		if o.JSONCompareDepth != nil && *o.JSONCompareDepth < 0 {
			errs = append(errs, errors.New("options.json_compare_depth must not be negative"))
		}
		if o.APIRequestTimeout != nil {
			if d, err := time.ParseDuration(*o.APIRequestTimeout); err != nil {
				errs = append(errs, fmt.Errorf("options.api_request_timeout: invalid duration %q", *o.APIRequestTimeout))
			} else if d <= 0 {
				errs = append(errs, fmt.Errorf("options.api_request_timeout: must be positive, got %q", *o.APIRequestTimeout))
			}
		}
	}

	return errs
}

func validateRequestLine(ctx, method, path string) []error {
	var errs []error
	if method == "" {
		errs = append(errs, fmt.Errorf("%s: method is required", ctx))
	} else if strings.ContainsAny(method, " \t/") {
		errs = append(errs, fmt.Errorf("%s: invalid method %q", ctx, method))
	}
	if !strings.HasPrefix(path, "/") {
		errs = append(errs, fmt.Errorf("%s: path must start with '/', got %q", ctx, path))
	}
	return errs
}

func (b *BodySpec) validate(ctx string) []error {
	set := 0
	if b.JSON != nil {
		set++
	}
	if b.Text != nil {
		set++
	}
	if b.Form != nil {
		set++
	}
	if b.Raw != nil {
		set++
	}

	var errs []error
	if set != 1 {
		errs = append(errs, fmt.Errorf("%s: exactly one of json, text, form and raw must be set", ctx))
	}
	if b.Multipart && b.Form == nil {
		errs = append(errs, fmt.Errorf("%s: multipart only applies to form bodies", ctx))
	}
	errs = append(errs, validateFields(ctx+".form", b.Form)...)
	if len(errs) > 0 {
		return errs
	}

	body, err := b.Body()
	if err == nil {
		_, _, err = codec.Encode(body)
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", ctx, err))
	}
	return errs
}

func validateFields(ctx string, fields []FieldSpec) []error {
	var errs []error
	for i, field := range fields {
		if field.Name == "" {
			errs = append(errs, fmt.Errorf("%s[%d]: name is required", ctx, i))
		}
		set := 0
		if field.Value != nil {
			set++
		}
		if field.Values != nil {
			set++
		}
		if field.File != nil {
			set++
		}
		if set != 1 {
			errs = append(errs, fmt.Errorf("%s[%d]: exactly one of value, values and file must be set", ctx, i))
		}
	}
	return errs
}

func validateQuery(ctx string, fields []FieldSpec) []error {
	errs := validateFields(ctx, fields)
	for i, field := range fields {
		if field.File != nil {
			errs = append(errs, fmt.Errorf("%s[%d]: query fields cannot carry files", ctx, i))
		}
	}
	return errs
}
