package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withVersion(t *testing.T, v string) {
	t.Helper()
	old := Version
	Version = v
	t.Cleanup(func() { Version = old })
}

func TestSupports(t *testing.T) {
	withVersion(t, "v0.4.2")

	tests := []struct {
		minimum string
		want    bool
	}{
		{"", true},
		{"0.4.0", true},
		{"v0.4.2", true},
		{"0.5", false},
		{"1.0.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.minimum, func(t *testing.T) {
			got, err := Supports(tt.minimum)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Supports("latest")
	assert.Error(t, err)
}

func TestSupports_DevBuild(t *testing.T) {
	withVersion(t, "dev")
	ok, err := Supports("9.9.9")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPrintVersion(t *testing.T) {
	withVersion(t, "v1.2.3")
	var buf bytes.Buffer
	PrintVersion(&buf)
	assert.Contains(t, buf.String(), "Tusk Harness (version: v1.2.3)")
}
