package scenario

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Use-Tusk/tusk-harness/internal/codec"
	"github.com/Use-Tusk/tusk-harness/internal/harness"
	"github.com/Use-Tusk/tusk-harness/internal/version"
)

const echoScenarios = `
endpoints:
  data:
    hostname: data.example.com
    port: 80
scenarios:
  - name: echo passes
    request:
      method: get
      path: /echo
    expect:
      status: 200
      headers:
        Content-Type: application/json
      body:
        json: {key: value}
      json_paths:
        $.key: value
    responses:
      - endpoint: data
        method: GET
        path: /echo
        body:
          json: {key: value, extra: 1}
  - name: wrong body
    request:
      method: GET
      path: /echo
    expect:
      body:
        json: {key: other}
    responses:
      - endpoint: data
        method: GET
        path: /echo
        body:
          json: {key: value}
`

func serve(t *testing.T, handler http.Handler) harness.External {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return harness.NewExternal(host, port)
}

func echoService(client *http.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			return
		}
		res, err := client.Get("http://data.example.com" + r.URL.Path)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		defer res.Body.Close()
		w.Header().Set("Content-Type", res.Header.Get("Content-Type"))
		w.WriteHeader(res.StatusCode)
		_, _ = io.Copy(w, res.Body)
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestParse_RunsScenarios(t *testing.T) {
	f, err := Parse("echo.yaml", []byte(echoScenarios))
	require.NoError(t, err)
	require.Len(t, f.Scenarios, 2)

	h := harness.New()
	api := serve(t, echoService(h.HTTPClient()))

	entries := Entries([]*File{f})
	require.Len(t, entries, 2)
	assert.Equal(t, "echo.yaml::echo passes", entries[0].ID())

	r, err := entries[0].Build(h, api)
	require.NoError(t, err)
	report, err := r.Collect()
	require.NoError(t, err)
	assert.True(t, report.Passed())

	r, err = entries[1].Build(h, api)
	require.NoError(t, err)
	report, err = r.Collect()
	require.Error(t, err)
	assert.Equal(t, 1, report.ErrorCount())
	assert.Contains(t, report.String(), "Response body JSON does not match:")
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse("bad.yaml", []byte(`
scenarios:
  - name: typo
    requets:
      method: GET
      path: /
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml: failed to parse YAML")
	assert.Contains(t, err.Error(), "requets")
}

func TestParse_EmptyFile(t *testing.T) {
	_, err := Parse("empty.yaml", nil)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestParse_RejectsBodiesThatCannotBeEncoded(t *testing.T) {
	_, err := Parse("keys.yaml", []byte(`
endpoints:
  data: {hostname: data.example.com, port: 80}
scenarios:
  - name: numeric keys
    request:
      method: POST
      path: /
      body:
        json: {1: a}
    responses:
      - endpoint: data
        method: GET
        path: /x
        body:
          json: {ok: {2: b}}
`))
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `scenario "numeric keys": request.body: failed to encode JSON body: json: unsupported type`)
	assert.Contains(t, msg, `scenario "numeric keys": responses[0].body: failed to encode JSON body: json: unsupported type`)
}

func TestParse_CollectsValidationErrors(t *testing.T) {
	_, err := Parse("invalid.yaml", []byte(`
endpoints:
  data:
    hostname: ""
    port: 0
scenarios:
  - name: first
    request:
      method: GET
      path: relative
    expect:
      body:
        json: {a: 1}
        text: also
    responses:
      - endpoint: missing
        method: GET
        path: /x
        error: reset
        status: 500
  - name: first
    request:
      method: GET
      path: /
    options:
      api_request_timeout: soon
`))
	require.Error(t, err)
	msg := err.Error()

	for _, want := range []string{
		`invalid.yaml: endpoint "data": hostname is required`,
		`invalid.yaml: endpoint "data": port must be between 1-65535, got 0`,
		`scenario "first": request: path must start with '/', got "relative"`,
		`scenario "first": expect.body: exactly one of json, text, form and raw must be set`,
		`scenario "first": responses[0]: unknown endpoint "missing"`,
		`scenario "first": responses[0]: error cannot be combined with status or body`,
		`scenario "first": duplicate name`,
		`scenario "first": options.api_request_timeout: invalid duration "soon"`,
	} {
		assert.Contains(t, msg, want)
	}
}

func TestParse_MinimumVersion(t *testing.T) {
	old := version.Version
	t.Cleanup(func() { version.Version = old })
	version.Version = "1.2.0"

	doc := `
min_harness_version: %s
scenarios:
  - name: ok
    request: {method: GET, path: /}
`
	_, err := Parse("v.yaml", []byte(fmt.Sprintf(doc, "1.1.0")))
	require.NoError(t, err)

	_, err = Parse("v.yaml", []byte(fmt.Sprintf(doc, "2.0.0")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires harness version 2.0.0 or newer, running 1.2.0")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), echoScenarios)
	writeFile(t, filepath.Join(dir, "nested", "b.yml"), "scenarios:\n  - name: b\n    request: {method: GET, path: /b}\n")
	writeFile(t, filepath.Join(dir, "broken.yaml"), "scenarios: []\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	files, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml: no scenarios defined")
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(dir, "a.yaml"), files[0].Path)
	assert.Equal(t, filepath.Join(dir, "nested", "b.yml"), files[1].Path)
}

func TestBody(t *testing.T) {
	text := "hello"
	value := "1"

	tests := []struct {
		name string
		spec BodySpec
		want codec.Kind
	}{
		{"json", BodySpec{JSON: map[string]any{"a": 1}}, codec.KindJSON},
		{"text", BodySpec{Text: &text}, codec.KindText},
		{"raw", BodySpec{Raw: &text, ContentType: "application/pdf"}, codec.KindRaw},
		{"form", BodySpec{Form: []FieldSpec{{Name: "a", Value: &value}}}, codec.KindForm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := tt.spec.Body()
			require.NoError(t, err)
			assert.Equal(t, tt.want, body.Kind)
		})
	}

	t.Run("multipart", func(t *testing.T) {
		body, err := (&BodySpec{Form: []FieldSpec{{Name: "tags", Values: []string{"a", "b"}}}, Multipart: true}).Body()
		require.NoError(t, err)
		assert.True(t, body.Multipart)
		assert.Equal(t, codec.Array("tags", "a", "b"), body.Fields[0])
	})

	t.Run("attachment makes multipart", func(t *testing.T) {
		body, err := (&BodySpec{Form: []FieldSpec{{Name: "doc", File: &FileSpec{Filename: "a.txt", Content: "hi"}}}}).Body()
		require.NoError(t, err)
		assert.True(t, body.Multipart)
		assert.Equal(t, []byte("hi"), body.Fields[0].File.Data)
	})
}

func TestScenarioOptions(t *testing.T) {
	depth := 2
	timeout := "250ms"
	suppress := false
	s := &Scenario{Options: &OptionsSpec{
		JSONCompareDepth:       &depth,
		APIRequestTimeout:      &timeout,
		ErrorSuppressCascading: &suppress,
	}}

	opts, err := s.options(harness.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, harness.Options{
		JSONCompareDepth:       2,
		APIRequestTimeout:      250 * time.Millisecond,
		ErrorSuppressCascading: false,
	}, opts)

	opts, err = (&Scenario{}).options(harness.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, harness.DefaultOptions(), opts)
}
