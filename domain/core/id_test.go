package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobID_RoundTripsThroughParse(t *testing.T) {
	id := NewJobID()

	parsed, err := ParseJobID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseJobID_RejectsUnsafeValues(t *testing.T) {
	for _, raw := range []string{"", "   ", "../../etc/passwd", "abc", "0123456789abcdef", "*",
		"urn:uuid:0190f4c2-8d1e-7a3b-9c4d-5e6f7a8b9c0d", "{0190f4c2-8d1e-7a3b-9c4d-5e6f7a8b9c0d}",
		"0190f4c28d1e7a3b9c4d5e6f7a8b9c0d"} {
		_, err := ParseJobID(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestParseJobID_NormalisesCase(t *testing.T) {
	parsed, err := ParseJobID(" 0190F4C2-8D1E-7A3B-9C4D-5E6F7A8B9C0D ")
	require.NoError(t, err)
	assert.Equal(t, JobID("0190f4c2-8d1e-7a3b-9c4d-5e6f7a8b9c0d"), parsed)
}

func TestShortSuffix(t *testing.T) {
	assert.Len(t, ShortSuffix(), 8)
}
