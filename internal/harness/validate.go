package harness

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/Use-Tusk/tusk-harness/internal/codec"
	"github.com/Use-Tusk/tusk-harness/internal/diff"
	"github.com/Use-Tusk/tusk-harness/internal/mock"
)

const (
	contextResponse = "Response"
	contextRequest  = "Request"
)

// jsonPathExpectation is a value expected at a JSONPath expression of the
// response body.
type jsonPathExpectation struct {
	path  string
	value any
}

func statusText(code int) string {
	return strings.TrimSpace(fmt.Sprintf("%d %s", code, http.StatusText(code)))
}

func validateStatus(expected, actual int) []Failure {
	if expected == 0 || expected == actual {
		return nil
	}
	return []Failure{{
		Kind:     KindValidationMismatch,
		Context:  contextResponse,
		Message:  fmt.Sprintf("Response status code does not match value, expected: %q but got: %q", statusText(expected), statusText(actual)),
		Expected: statusText(expected),
		Actual:   statusText(actual),
	}}
}

// validateHeaders checks expected headers in sorted name order, then the
// headers that must be absent.
func validateHeaders(context string, expected http.Header, unexpected []string, actual mock.Header) []Failure {
	var failures []Failure

	names := make([]string, 0, len(expected))
	for name := range expected {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		want := expected.Get(name)
		if !actual.Has(name) {
			failures = append(failures, Failure{
				Kind:     KindValidationMismatch,
				Context:  context,
				Message:  fmt.Sprintf("%s header %q was expected to be present, but is missing.", context, name),
				Expected: want,
			})
			continue
		}
		if got := actual.Get(name); got != want {
			failures = append(failures, Failure{
				Kind:     KindValidationMismatch,
				Context:  context,
				Message:  fmt.Sprintf("%s header %q does not match, expected: %q but got: %q", context, name, want, got),
				Expected: want,
				Actual:   got,
				Diff:     diff.TextDiff(want, got),
			})
		}
	}

	for _, name := range unexpected {
		if actual.Has(name) {
			failures = append(failures, Failure{
				Kind:    KindValidationMismatch,
				Context: context,
				Message: fmt.Sprintf("%s header %q was expected to be absent, but is present.", context, http.CanonicalHeaderKey(name)),
				Actual:  actual.Get(name),
			})
		}
	}
	return failures
}

// validateBody diffs actual against the expected body, interpreting both by
// the content type actual arrived with.
func validateBody(context string, expected *codec.Body, exact bool, depth int, contentType string, actual []byte) []Failure {
	if expected == nil {
		return nil
	}

	wantType, want, err := codec.Encode(*expected)
	if err != nil {
		return []Failure{{
			Kind:    KindCodec,
			Context: context,
			Message: fmt.Sprintf("%s expected body could not be encoded: %v", context, err),
			Err:     err,
		}}
	}

	kind, records, err := diff.CompareBody(
		diff.Payload{ContentType: wantType, Data: want},
		diff.Payload{ContentType: contentType, Data: actual},
		depth, exact,
	)
	if err != nil {
		return []Failure{{
			Kind:    KindCodec,
			Context: context,
			Message: fmt.Sprintf("%s body could not be decoded: %v", context, err),
			Err:     err,
		}}
	}
	if len(records) == 0 {
		return nil
	}

	f := Failure{Kind: KindValidationMismatch, Context: context}
	switch kind {
	case codec.KindText:
		rec := records[0]
		if rec.Diff != "" {
			f.Message = fmt.Sprintf("%s text body does not match", context)
			f.Diff = rec.Diff
		} else {
			f.Message = fmt.Sprintf("%s text body does not match, expected: %q but got: %q", context, rec.Expected, rec.Actual)
		}
		f.Expected = rec.Expected
		f.Actual = rec.Actual
	case codec.KindJSON:
		f.Message = fmt.Sprintf("%s body JSON does not match:", context)
		f.Subject = "json"
		f.Records = records
	case codec.KindForm:
		f.Message = fmt.Sprintf("%s body form data does not match:", context)
		f.Subject = "form"
		f.Records = records
	default:
		f.Message = fmt.Sprintf("%s raw body data does not match, expected %d byte(s) but got %d byte(s)", context, len(want), len(actual))
		f.Expected = strconv.Itoa(len(want))
		f.Actual = strconv.Itoa(len(actual))
	}
	return []Failure{f}
}

// validateJSONPaths evaluates each expression against the decoded response
// body and diffs the result against the expected value.
func validateJSONPaths(expectations []jsonPathExpectation, depth int, contentType string, actual []byte) []Failure {
	if len(expectations) == 0 {
		return nil
	}

	body, err := codec.Decode(actual, contentType)
	if err != nil {
		return []Failure{{
			Kind:    KindCodec,
			Context: contextResponse,
			Message: fmt.Sprintf("Response body could not be decoded: %v", err),
			Err:     err,
		}}
	}
	if body.Kind != codec.KindJSON {
		return []Failure{{
			Kind:     KindValidationMismatch,
			Context:  contextResponse,
			Message:  fmt.Sprintf("Response body is %s, JSON paths can only be checked against JSON bodies.", body.Kind),
			Expected: codec.KindJSON.String(),
			Actual:   body.Kind.String(),
		}}
	}

	var failures []Failure
	for _, e := range expectations {
		got, err := jsonpath.Get(e.path, body.Tree)
		if err != nil {
			failures = append(failures, Failure{
				Kind:    KindValidationMismatch,
				Context: contextResponse,
				Message: fmt.Sprintf("Response body JSON path %q could not be evaluated: %v", e.path, err),
				Err:     err,
			})
			continue
		}
		want, err := normalizeJSON(e.value)
		if err != nil {
			failures = append(failures, Failure{
				Kind:    KindCodec,
				Context: contextResponse,
				Message: fmt.Sprintf("Expected value for JSON path %q could not be encoded: %v", e.path, err),
				Err:     err,
			})
			continue
		}
		if records := diff.CompareJSON(want, got, depth, true); len(records) > 0 {
			failures = append(failures, Failure{
				Kind:    KindValidationMismatch,
				Context: contextResponse,
				Message: fmt.Sprintf("Response body JSON path %q does not match:", e.path),
				Subject: e.path,
				Records: records,
			})
		}
	}
	return failures
}

// normalizeJSON round-trips v through encoding/json so it has the same shape
// as a decoded document.
func normalizeJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func dumpFailure(context string, header mock.Header, contentType string, body []byte) Failure {
	return Failure{
		Kind:    KindDump,
		Context: context,
		Message: fmt.Sprintf("%s headers dump", context),
		Dump: &Dump{
			Header:      header.Sorted(),
			ContentType: contentType,
			Body:        body,
		},
	}
}

// validateProvided checks one drained canned response against the request it
// captured.
func validateProvided(p mock.Provided, defaultDepth int) []Failure {
	resp := p.Response
	if !p.Fetched() {
		return []Failure{{
			Kind:    KindMissingRequest,
			Context: contextRequest,
			Message: "Expected a request for the response, but got none.",
		}}
	}

	var failures []Failure

	req := p.Request
	if resp.DumpRequest {
		failures = append(failures, dumpFailure(contextRequest, req.Header, req.ContentType(), req.Body))
	}
	if p.OutOfOrder() {
		failures = append(failures, Failure{
			Kind:     KindOutOfOrderFetch,
			Context:  contextRequest,
			Message:  fmt.Sprintf("Response fetched out of order, provided for request %d, fetched by request %d.", p.ProvisionIndex+1, p.FetchIndex+1),
			Expected: strconv.Itoa(p.ProvisionIndex + 1),
			Actual:   strconv.Itoa(p.FetchIndex + 1),
		})
	}

	if p.EncodeErr != nil {
		failures = append(failures, Failure{
			Kind:    KindCodec,
			Context: contextRequest,
			Message: fmt.Sprintf("Provided response could not be encoded: %v", p.EncodeErr),
			Err:     p.EncodeErr,
		})
	}

	failures = append(failures, validateHeaders(contextRequest, resp.ExpectedHeader, resp.UnexpectedHeaders, req.Header)...)

	depth := defaultDepth
	if resp.JSONCompareDepth > 0 {
		depth = resp.JSONCompareDepth
	}
	failures = append(failures, validateBody(contextRequest, resp.ExpectedBody, resp.ExactBody, depth, req.ContentType(), req.Body)...)
	return failures
}

func responseGroup(p mock.Provided, failures []Failure) Failure {
	resp := p.Response
	return Failure{
		Kind:    KindResponse,
		Context: contextRequest,
		Message: fmt.Sprintf("Request Failure: %s response provided for %q returned %d error(s)", resp.Method, resp.URL(), len(failures)),
		Group: &ResponseFailure{
			Method:   resp.Method,
			URL:      resp.URL(),
			Failures: failures,
		},
	}
}

func unmatchedFailure(req *mock.CapturedRequest, closest *mock.CannedResponse) Failure {
	f := Failure{
		Kind:    KindNoResponseProvided,
		Context: contextRequest,
		Message: fmt.Sprintf("Request Failure: Unexpected %s request to %q, no response was provided.", req.Method, req.URL()),
		Actual:  req.String(),
		Err:     mock.ErrNoResponseProvided,
	}
	if closest != nil {
		f.Hint = fmt.Sprintf("Did you mean the response provided for %s?", closest)
	}
	return f
}
