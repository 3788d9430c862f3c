package scenario

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/Use-Tusk/tusk-harness/internal/codec"
	"github.com/Use-Tusk/tusk-harness/internal/harness"
	"github.com/Use-Tusk/tusk-harness/internal/mock"
)

// Entry is a scenario together with the file that declared it.
type Entry struct {
	File     *File
	Scenario *Scenario
}

// ID is the name shown in reports and matched by filters.
func (e Entry) ID() string {
	return e.File.Path + "::" + e.Scenario.Name
}

// Entries flattens files into their scenarios, keeping declaration order.
func Entries(files []*File) []Entry {
	var out []Entry
	for _, f := range files {
		for i := range f.Scenarios {
			out = append(out, Entry{File: f, Scenario: &f.Scenarios[i]})
		}
	}
	return out
}

// Build turns the scenario into a harness request against api. Options start
// from the harness defaults and are overridden by the scenario's own.
func (e Entry) Build(h *harness.Harness, api harness.API) (*harness.Request, error) {
	s := e.Scenario
	method := strings.ToUpper(s.Request.Method)

	query, err := fieldsOf(s.Request.Query)
	if err != nil {
		return nil, fmt.Errorf("request.query: %w", err)
	}
	r := h.Request(api, method, s.Request.Path)
	if len(query) > 0 {
		r.WithQuery(query...)
	}

	for _, name := range slices.Sorted(maps.Keys(s.Request.Headers)) {
		r.WithHeader(name, s.Request.Headers[name])
	}
	if s.Request.Body != nil {
		body, err := s.Request.Body.Body()
		if err != nil {
			return nil, fmt.Errorf("request.body: %w", err)
		}
		r.WithBody(body)
	}

	opts, err := s.options(h.Options)
	if err != nil {
		return nil, err
	}
	r.WithOptions(opts)

	if s.Expect.Status != 0 {
		r.ExpectStatus(s.Expect.Status)
	}
	for _, name := range slices.Sorted(maps.Keys(s.Expect.Headers)) {
		r.ExpectHeader(name, s.Expect.Headers[name])
	}
	for _, name := range s.Expect.AbsentHeaders {
		r.ExpectNoHeader(name)
	}
	if s.Expect.Body != nil {
		body, err := s.Expect.Body.Body()
		if err != nil {
			return nil, fmt.Errorf("expect.body: %w", err)
		}
		if s.Expect.ExactBody {
			r.ExpectExactBody(body)
		} else {
			r.ExpectBody(body)
		}
	}
	for _, path := range slices.Sorted(maps.Keys(s.Expect.JSONPaths)) {
		r.ExpectJSONPath(path, s.Expect.JSONPaths[path])
	}
	if s.Dump {
		r.Dump()
	}

	for i := range s.Responses {
		canned, err := s.Responses[i].canned(e.File.Endpoints)
		if err != nil {
			return nil, fmt.Errorf("responses[%d]: %w", i, err)
		}
		r.Provide(canned)
	}
	return r, nil
}

func (s *Scenario) options(base harness.Options) (harness.Options, error) {
	opts := base
	if s.Options == nil {
		return opts, nil
	}
	if s.Options.JSONCompareDepth != nil {
		opts.JSONCompareDepth = *s.Options.JSONCompareDepth
	}
	if s.Options.APIRequestTimeout != nil {
		d, err := time.ParseDuration(*s.Options.APIRequestTimeout)
		if err != nil {
			return opts, fmt.Errorf("options.api_request_timeout: %w", err)
		}
		opts.APIRequestTimeout = d
	}
	if s.Options.ErrorSuppressCascading != nil {
		opts.ErrorSuppressCascading = *s.Options.ErrorSuppressCascading
	}
	return opts, nil
}

func (r *ResponseSpec) canned(endpoints map[string]mock.Endpoint) (*mock.CannedResponse, error) {
	endpoint, ok := endpoints[r.Endpoint]
	if !ok {
		return nil, fmt.Errorf("unknown endpoint %q", r.Endpoint)
	}

	c := mock.Respond(endpoint, strings.ToUpper(r.Method), r.Path)
	query, err := fieldsOf(r.Query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if len(query) > 0 {
		c.WithQuery(query...)
	}

	if r.Error != "" {
		c.WithError(errors.New(r.Error))
	}
	if r.Status != 0 {
		c.WithStatus(r.Status)
	}
	for _, name := range slices.Sorted(maps.Keys(r.Headers)) {
		c.WithHeader(name, r.Headers[name])
	}
	if r.Body != nil {
		body, err := r.Body.Body()
		if err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
		c.WithBody(body)
	}

	for _, name := range slices.Sorted(maps.Keys(r.Expect.Headers)) {
		c.ExpectHeader(name, r.Expect.Headers[name])
	}
	for _, name := range r.Expect.AbsentHeaders {
		c.ExpectNoHeader(name)
	}
	if r.Expect.Body != nil {
		body, err := r.Expect.Body.Body()
		if err != nil {
			return nil, fmt.Errorf("expect.body: %w", err)
		}
		if r.Expect.ExactBody {
			c.ExpectExactBody(body)
		} else {
			c.ExpectBody(body)
		}
	}
	if r.JSONCompareDepth > 0 {
		c.WithCompareDepth(r.JSONCompareDepth)
	}
	if r.Dump {
		c.Dump()
	}
	return c, nil
}

// Body converts b into a codec body.
func (b *BodySpec) Body() (codec.Body, error) {
	switch {
	case b.JSON != nil:
		return codec.JSON(b.JSON), nil
	case b.Text != nil:
		body := codec.Text(*b.Text)
		body.ContentType = b.ContentType
		return body, nil
	case b.Raw != nil:
		return codec.Raw([]byte(*b.Raw), b.ContentType), nil
	case b.Form != nil:
		fields, err := fieldsOf(b.Form)
		if err != nil {
			return codec.Body{}, err
		}
		if b.Multipart {
			return codec.Multipart(fields...), nil
		}
		return codec.Form(fields...), nil
	default:
		return codec.Body{}, errors.New("empty body")
	}
}

func fieldsOf(specs []FieldSpec) ([]codec.Field, error) {
	fields := make([]codec.Field, 0, len(specs))
	for _, f := range specs {
		switch {
		case f.Value != nil:
			fields = append(fields, codec.Plain(f.Name, *f.Value))
		case f.Values != nil:
			fields = append(fields, codec.Array(f.Name, f.Values...))
		case f.File != nil:
			fields = append(fields, codec.Attachment(f.Name, f.File.Filename, f.File.ContentType, []byte(f.File.Content)))
		default:
			return nil, fmt.Errorf("field %q has no value", f.Name)
		}
	}
	return fields, nil
}
