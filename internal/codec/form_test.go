package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLEncoded_ScalarAndArrayNormalization(t *testing.T) {
	body, err := Decode([]byte("name=Alice&tag=a&tag=b&city=New+York"), ContentTypeForm)
	require.NoError(t, err)

	assert.Equal(t, []Field{
		Plain("name", "Alice"),
		Array("tag", "a", "b"),
		Plain("city", "New York"),
	}, body.Fields)
}

func TestURLEncoded_RoundTripIsStable(t *testing.T) {
	original := Form(Plain("q", "a&b"), Array("id", "1", "2", "3"))

	contentType, data, err := Encode(original)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeForm, contentType)
	assert.Equal(t, "q=a%26b&id=1&id=2&id=3", string(data))

	decoded, err := Decode(data, contentType)
	require.NoError(t, err)
	assert.Equal(t, original.Fields, decoded.Fields)

	_, again, err := Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestMultipart_EncodeFormat(t *testing.T) {
	body := Multipart(Plain("field", "value"), Attachment("upload", "a.txt", "text/plain", []byte("Data")))
	body.Boundary = "boundary12"

	contentType, data, err := Encode(body)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data; boundary=boundary12", contentType)

	expected := "\r\n--boundary12\r\nContent-Disposition: form-data; name=\"field\"\r\n\r\nvalue" +
		"\r\n--boundary12\r\nContent-Disposition: form-data; name=\"upload\"; filename=\"a.txt\"\r\nContent-Type: text/plain\r\n\r\nData" +
		"\r\n--boundary12--\r\n"
	assert.Equal(t, expected, string(data))
}

func TestMultipart_RoundTripPreservesOrderAndContent(t *testing.T) {
	payload := []byte{0x00, 0xff, '\r', '\n', '-', '-', 0x10}
	original := Form(
		Plain("title", "report"),
		Attachment("file", "data.bin", "application/octet-stream", payload),
	)
	require.True(t, original.Multipart)
	require.True(t, strings.HasPrefix(original.Boundary, "boundary"))

	contentType, data, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(data, contentType)
	require.NoError(t, err)
	require.Len(t, decoded.Fields, 2)

	assert.Equal(t, "title", decoded.Fields[0].Name)
	assert.Equal(t, FieldPlain, decoded.Fields[0].Kind)
	assert.Equal(t, "report", decoded.Fields[0].Value)

	file := decoded.Fields[1]
	assert.Equal(t, "file", file.Name)
	assert.Equal(t, FieldFile, file.Kind)
	require.NotNil(t, file.File)
	assert.Equal(t, "data.bin", file.File.Filename)
	assert.Equal(t, "application/octet-stream", file.File.ContentType)
	assert.Equal(t, payload, file.File.Data)
}

func TestMultipart_RepeatedNamesBecomeArray(t *testing.T) {
	body := Multipart(Array("tag", "a", "b"), Plain("single", "x"))
	contentType, data, err := Encode(body)
	require.NoError(t, err)

	decoded, err := Decode(data, contentType)
	require.NoError(t, err)
	assert.Equal(t, []Field{Array("tag", "a", "b"), Plain("single", "x")}, decoded.Fields)
}

func TestMultipart_DefaultsFileContentType(t *testing.T) {
	data := "\r\n--b\r\nContent-Disposition: form-data; name=\"f\"; filename=\"x\"\r\n\r\nabc\r\n--b--\r\n"
	decoded, err := Decode([]byte(data), "multipart/form-data; boundary=b")
	require.NoError(t, err)
	require.Len(t, decoded.Fields, 1)
	assert.Equal(t, ContentTypeOctet, decoded.Fields[0].File.ContentType)
}

func TestMultipart_Errors(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		data        string
		want        error
	}{
		{
			name:        "missing disposition",
			contentType: "multipart/form-data; boundary=b",
			data:        "\r\n--b\r\nContent-Type: text/plain\r\n\r\nabc\r\n--b--\r\n",
			want:        ErrMissingDisposition,
		},
		{
			name:        "malformed header line",
			contentType: "multipart/form-data; boundary=b",
			data:        "\r\n--b\r\nthis is not a header\r\n\r\nabc\r\n--b--\r\n",
			want:        ErrMalformedHeader,
		},
		{
			name:        "missing boundary",
			contentType: "multipart/form-data",
			data:        "",
			want:        ErrMalformedHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), tt.contentType)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMultipart_LegacyMediaTypeAlias(t *testing.T) {
	data := "\r\n--b\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\n1\r\n--b--\r\n"
	decoded, err := Decode([]byte(data), "application/form-data; boundary=b")
	require.NoError(t, err)
	assert.Equal(t, KindForm, decoded.Kind)
	assert.Equal(t, []Field{Plain("a", "1")}, decoded.Fields)
}

func TestNewBoundary_Format(t *testing.T) {
	b := NewBoundary()
	assert.True(t, strings.HasPrefix(b, "boundary"))
	assert.NotEqual(t, b, NewBoundary())
}
