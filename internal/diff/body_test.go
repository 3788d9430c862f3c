package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Use-Tusk/tusk-harness/internal/codec"
)

func payload(t *testing.T, body codec.Body) Payload {
	t.Helper()
	contentType, data, err := codec.Encode(body)
	require.NoError(t, err)
	return Payload{ContentType: contentType, Data: data}
}

func TestCompareBody_IdenticalBytesSkipDecoding(t *testing.T) {
	broken := Payload{ContentType: "application/json", Data: []byte(`{broken`)}
	_, records, err := CompareBody(broken, broken, 4096, true)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCompareBody_JSONIgnoresFormatting(t *testing.T) {
	expected := Payload{ContentType: "application/json", Data: []byte(`{"key": "value"}`)}
	actual := Payload{ContentType: "application/json; charset=utf-8", Data: []byte(`{"key":"value"}`)}

	kind, records, err := CompareBody(expected, actual, 4096, false)
	require.NoError(t, err)
	assert.Equal(t, codec.KindJSON, kind)
	assert.Empty(t, records)
}

func TestCompareBody_JSONExtraKeyWithExactCompare(t *testing.T) {
	expected := payload(t, codec.JSON(map[string]any{"key": "value"}))
	actual := Payload{ContentType: "application/json", Data: []byte(`{"key":"value","extra":1}`)}

	_, records, err := CompareBody(expected, actual, 4096, true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Path)
	assert.Equal(t, "Object has 1 additional unexpected key(s) (extra)", records[0].Message)
}

func TestCompareBody_TextDiff(t *testing.T) {
	expected := payload(t, codec.Text("line one\nline two\n"))
	actual := Payload{ContentType: "text/plain", Data: []byte("line one\nline 2\n")}

	kind, records, err := CompareBody(expected, actual, 4096, false)
	require.NoError(t, err)
	assert.Equal(t, codec.KindText, kind)
	require.Len(t, records, 1)
	assert.True(t, strings.Contains(records[0].Diff, "-line two"))
	assert.True(t, strings.Contains(records[0].Diff, "+line 2"))
}

func TestCompareBody_Form(t *testing.T) {
	expected := payload(t, codec.Form(codec.Plain("a", "1")))
	actual := Payload{ContentType: codec.ContentTypeForm, Data: []byte("a=2")}

	kind, records, err := CompareBody(expected, actual, 4096, false)
	require.NoError(t, err)
	assert.Equal(t, codec.KindForm, kind)
	assert.Equal(t, []string{`.a: Field value does not match, expected "1" but got "2"`}, messages(records))
}

func TestCompareBody_FormAgainstNonFormExpectation(t *testing.T) {
	expected := payload(t, codec.Text("a=1"))
	actual := Payload{ContentType: codec.ContentTypeForm, Data: []byte("a=2")}

	_, records, err := CompareBody(expected, actual, 4096, false)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, TypeMismatch, records[0].Kind)
}

func TestCompareBody_Raw(t *testing.T) {
	expected := Payload{Data: []byte{1, 2, 3}}
	actual := Payload{Data: []byte{1, 2}}

	kind, records, err := CompareBody(expected, actual, 4096, false)
	require.NoError(t, err)
	assert.Equal(t, codec.KindRaw, kind)
	require.Len(t, records, 1)
	assert.Equal(t, "Raw data with 2 byte(s) does not match the expected 3 byte(s)", records[0].Message)
}

func TestCompareBody_CodecErrors(t *testing.T) {
	_, _, err := CompareBody(
		Payload{ContentType: "application/json", Data: []byte(`{}`)},
		Payload{ContentType: "application/json", Data: []byte(`{`)},
		4096, false,
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrInvalidJSON)
	assert.Contains(t, err.Error(), "actual body")

	_, _, err = CompareBody(
		Payload{ContentType: "application/json", Data: []byte(`nope`)},
		Payload{ContentType: "application/json", Data: []byte(`{}`)},
		4096, false,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected body")
}
