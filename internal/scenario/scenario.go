// Package scenario loads test requests described in YAML files so the CLI can
// run them against a service without writing Go tests.
package scenario

import (
	"github.com/Use-Tusk/tusk-harness/internal/mock"
)

// File is one scenario file. Endpoints name the external hosts the canned
// responses of its scenarios refer to.
type File struct {
	Path       string                   `yaml:"-"`
	MinVersion string                   `yaml:"min_harness_version,omitempty"`
	Endpoints  map[string]mock.Endpoint `yaml:"endpoints,omitempty"`
	Scenarios  []Scenario               `yaml:"scenarios"`
}

// Scenario is a single test request with its expectations.
type Scenario struct {
	Name      string         `yaml:"name"`
	Request   RequestSpec    `yaml:"request"`
	Expect    ExpectSpec     `yaml:"expect,omitempty"`
	Responses []ResponseSpec `yaml:"responses,omitempty"`
	Options   *OptionsSpec   `yaml:"options,omitempty"`
	Dump      bool           `yaml:"dump,omitempty"`
}

type RequestSpec struct {
	Method  string            `yaml:"method"`
	Path    string            `yaml:"path"`
	Query   []FieldSpec       `yaml:"query,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Body    *BodySpec         `yaml:"body,omitempty"`
}

// ExpectSpec holds the expectations for a response or a captured request.
type ExpectSpec struct {
	Status        int               `yaml:"status,omitempty"`
	Headers       map[string]string `yaml:"headers,omitempty"`
	AbsentHeaders []string          `yaml:"absent_headers,omitempty"`
	Body          *BodySpec         `yaml:"body,omitempty"`
	ExactBody     bool              `yaml:"exact_body,omitempty"`
	JSONPaths     map[string]any    `yaml:"json_paths,omitempty"`
}

// ResponseSpec is a canned response for one outbound call of the service.
type ResponseSpec struct {
	Endpoint string            `yaml:"endpoint"`
	Method   string            `yaml:"method"`
	Path     string            `yaml:"path"`
	Query    []FieldSpec       `yaml:"query,omitempty"`
	Status   int               `yaml:"status,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Body     *BodySpec         `yaml:"body,omitempty"`
	Error    string            `yaml:"error,omitempty"`
	Expect   ExpectSpec        `yaml:"expect,omitempty"`
	Dump     bool              `yaml:"dump,omitempty"`
	// JSONCompareDepth overrides the depth used for the captured request body.
	JSONCompareDepth int `yaml:"json_compare_depth,omitempty"`
}

// BodySpec describes a body. Exactly one of JSON, Text, Form and Raw is set.
type BodySpec struct {
	JSON        any         `yaml:"json,omitempty"`
	Text        *string     `yaml:"text,omitempty"`
	Form        []FieldSpec `yaml:"form,omitempty"`
	Raw         *string     `yaml:"raw,omitempty"`
	Multipart   bool        `yaml:"multipart,omitempty"`
	ContentType string      `yaml:"content_type,omitempty"`
}

// FieldSpec is a form or query field. Values makes it an array field and File
// an attachment.
type FieldSpec struct {
	Name   string    `yaml:"name"`
	Value  *string   `yaml:"value,omitempty"`
	Values []string  `yaml:"values,omitempty"`
	File   *FileSpec `yaml:"file,omitempty"`
}

type FileSpec struct {
	Filename    string `yaml:"filename"`
	ContentType string `yaml:"content_type,omitempty"`
	Content     string `yaml:"content"`
}

type OptionsSpec struct {
	JSONCompareDepth       *int    `yaml:"json_compare_depth,omitempty"`
	APIRequestTimeout      *string `yaml:"api_request_timeout,omitempty"`
	ErrorSuppressCascading *bool   `yaml:"error_suppress_cascading,omitempty"`
}
