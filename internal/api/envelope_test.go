package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshalEnvelope(t *testing.T, status string, v any) map[string]any {
	t.Helper()

	result, err := EnvelopeTransformer(nil, status, v)
	require.NoError(t, err)

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestEnvelopeTransformer_Success(t *testing.T) {
	out := marshalEnvelope(t, "200", map[string]string{"id": "rcp-123"})

	assert.Equal(t, float64(EnvelopeVersion), out["v"])
	assert.Equal(t, true, out["success"])
	assert.Contains(t, out, "data")
	assert.NotContains(t, out, "error")
}

func TestEnvelopeTransformer_SuccessNilData(t *testing.T) {
	out := marshalEnvelope(t, "204", nil)

	assert.Equal(t, true, out["success"])
	assert.NotContains(t, out, "data")
}

func TestEnvelopeTransformer_SimpleError(t *testing.T) {
	out := marshalEnvelope(t, "404", &APIError{Message: "recipe not found"})

	assert.Equal(t, false, out["success"])
	assert.Equal(t, "recipe not found", out["error"])
	assert.NotContains(t, out, "code")
}

func TestEnvelopeTransformer_DetailedError(t *testing.T) {
	out := marshalEnvelope(t, "409", &APIError{
		Code:    "CONFLICT",
		Message: "tag name already in use",
		Details: map[string]string{"existing_id": "tag-123"},
	})

	assert.Equal(t, false, out["success"])
	assert.Equal(t, "CONFLICT", out["code"])
	assert.Equal(t, "tag name already in use", out["message"])
	assert.Contains(t, out, "details")
}

// The version field is named exactly "v"; clients parse it by that name.
func TestEnvelopeTransformer_VersionFieldName(t *testing.T) {
	out := marshalEnvelope(t, "200", nil)

	assert.Contains(t, out, "v")
	assert.NotContains(t, out, "version")
}
