package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCodes(t *testing.T) {
	got := NormalizeCodes([]string{" 11 ", "", "21", "11", "  ", "31"})
	assert.Equal(t, []string{"11", "21", "31"}, got)
	assert.Empty(t, NormalizeCodes(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...(truncated)", Truncate("abcdef", 3))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
}

func TestFlexDecoding(t *testing.T) {
	var payload struct {
		ID    FlexString `json:"id"`
		State FlexInt    `json:"state"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"id":12345,"state":"11"}`), &payload))
	assert.Equal(t, FlexString("12345"), payload.ID)
	assert.Equal(t, FlexInt(11), payload.State)

	require.NoError(t, json.Unmarshal([]byte(`{"id":" R9 ","state":40}`), &payload))
	assert.Equal(t, FlexString("R9"), payload.ID)
	assert.Equal(t, FlexInt(40), payload.State)

	assert.Error(t, json.Unmarshal([]byte(`{"state":"eleven"}`), &payload))
	assert.Error(t, json.Unmarshal([]byte(`{"id":true}`), &payload))
}

func TestSeoulLocation(t *testing.T) {
	_, offset := UTCNow().In(SeoulLocation()).Zone()
	assert.Equal(t, seoulOffset, offset)
}
