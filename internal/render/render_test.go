package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Use-Tusk/tusk-harness/internal/diff"
	"github.com/Use-Tusk/tusk-harness/internal/harness"
	"github.com/Use-Tusk/tusk-harness/internal/mock"
)

func failingReport() *harness.Report {
	return &harness.Report{
		ID:     "r1",
		Method: "POST",
		URL:    "http://127.0.0.1:3000/orders",
		Failures: []harness.Failure{
			{
				Kind:    harness.KindValidationMismatch,
				Message: "Response body JSON does not match:",
				Subject: "json",
				Records: []diff.Record{{
					Path:    diff.Path{diff.Key("total")},
					Kind:    diff.ValueMismatch,
					Message: "number value does not match, expected 3 but got 4",
				}},
			},
			{
				Kind:    harness.KindResponse,
				Message: `Request Failure: POST response provided for "http://payments.example.com/charges" returned 1 error(s)`,
				Group: &harness.ResponseFailure{
					Index:  2,
					Method: "POST",
					URL:    "http://payments.example.com/charges",
					Failures: []harness.Failure{{
						Kind:    harness.KindDump,
						Message: "Request headers dump",
						Dump: &harness.Dump{
							Header: mock.Header{{Name: "Content-Type", Value: "text/plain"}, {Name: "Host", Value: "payments.example.com"}},
							Body:   []byte("hello"),
						},
					}},
				},
			},
			{
				Kind:    harness.KindNoResponseProvided,
				Message: `Request Failure: Unexpected GET request to "http://payments.example.com/charge", no response was provided.`,
				Hint:    `Did you mean the response provided for POST "http://payments.example.com/charges"?`,
			},
		},
		Suppressed: 2,
	}
}

func TestReport_MatchesPlainTextWithoutColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	r := failingReport()
	assert.Equal(t, strings.TrimRight(r.String(), "\n"), Report(r, 500))
}

func TestReport_WrapsLongMessages(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	r := &harness.Report{
		Method:   "GET",
		URL:      "http://127.0.0.1:3000/",
		Failures: []harness.Failure{{Message: strings.Repeat("word ", 30)}},
	}
	for _, line := range strings.Split(Report(r, 40), "\n") {
		assert.LessOrEqual(t, len(line), 40, line)
	}
}

func TestDiff_PlainWithoutColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	d := "--- Expected\n+++ Actual\n@@ -1 +1 @@\n-a\n+b\n"
	assert.Equal(t, strings.TrimRight(d, "\n"), Diff(d))
}

func TestText(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	results := []Result{
		{ID: "orders.yaml::creates order", Passed: true, Duration: 12},
		{ID: "orders.yaml::rejects total", Passed: false, Duration: 30, Report: failingReport()},
		{ID: "orders.yaml::broken", Passed: false, Error: "request.body: empty body"},
	}

	var buf bytes.Buffer
	Text(&buf, results, false, 120)
	out := buf.String()
	assert.Contains(t, out, "✓ PASS - orders.yaml::creates order (12ms)")
	assert.Contains(t, out, "✗ FAIL - orders.yaml::rejects total (30ms)")
	assert.Contains(t, out, "  Response Failure: POST request to \"http://127.0.0.1:3000/orders\" returned 3 error(s)")
	assert.Contains(t, out, "  Error: request.body: empty body")
	assert.Contains(t, out, "Scenarios: 3 total, 1 passed, 2 failed")

	buf.Reset()
	Text(&buf, results, true, 120)
	assert.NotContains(t, buf.String(), "creates order")
}

func TestOutput_JSON(t *testing.T) {
	results := []Result{
		{ID: "a", Passed: true, Duration: 1},
		{ID: "b", Passed: false, Duration: 2, Report: failingReport()},
	}

	var buf bytes.Buffer
	err := Output(&buf, results, "json", false)
	require.Error(t, err)
	assert.Equal(t, "1 of 2 scenarios failed", err.Error())

	var decoded struct {
		Summary Summary `json:"summary"`
		Results []struct {
			ID     string `json:"id"`
			Passed bool   `json:"passed"`
			Report *struct {
				Failures []struct {
					Kind string `json:"kind"`
				} `json:"failures"`
				Suppressed int `json:"suppressed"`
			} `json:"report"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, Summary{Total: 2, Passed: 1, Failed: 1}, decoded.Summary)
	require.Len(t, decoded.Results, 2)
	assert.Nil(t, decoded.Results[0].Report)
	require.NotNil(t, decoded.Results[1].Report)
	assert.Equal(t, "validation_mismatch", decoded.Results[1].Report.Failures[0].Kind)
	assert.Equal(t, 2, decoded.Results[1].Report.Suppressed)
}

func TestOutput_AllPassed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Output(&buf, []Result{{ID: "a", Passed: true}}, "json", false))
}
