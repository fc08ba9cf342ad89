package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAfterDecode(t *testing.T) {
	var s State
	require.NoError(t, json.Unmarshal([]byte(`{"last_update_id":42}`), &s))
	s.Normalize()

	assert.Equal(t, int64(42), s.LastUpdateID)
	assert.NotNil(t, s.NotifiedPayments)
	assert.NotNil(t, s.NotifiedMedia)
	assert.NotNil(t, s.NotifiedExpired)
	assert.NotNil(t, s.PendingSelections)
	assert.NotNil(t, s.PaymentMessages)
	assert.NotNil(t, s.MediaMessages)
}

func TestStateRoundTrip(t *testing.T) {
	s := NewState()
	s.LastUpdateID = 7
	s.NotifiedPayments["p1"] = true
	s.PendingSelections["m1"] = RootFolderSelection{
		RequestID:   "m1",
		RootFolders: []string{"/movies", "/movies-4k"},
		ProfileID:   4,
	}
	s.MediaMessages["m1"] = []MessageRef{{ChatID: 10, MessageID: 20, Caption: true}}

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var back State
	require.NoError(t, json.Unmarshal(raw, &back))
	back.Normalize()

	assert.True(t, back.NotifiedPayments["p1"])
	assert.Equal(t, s.PendingSelections["m1"], back.PendingSelections["m1"])
	assert.Equal(t, s.MediaMessages["m1"], back.MediaMessages["m1"])
}

func TestClearMediaDropsSelection(t *testing.T) {
	s := NewState()
	s.PendingSelections["m1"] = RootFolderSelection{RequestID: "m1"}
	s.MediaMessages["m1"] = []MessageRef{{ChatID: 1, MessageID: 2}}
	s.NotifiedMedia["m1"] = true

	s.ClearMedia("m1")

	assert.NotContains(t, s.PendingSelections, "m1")
	assert.NotContains(t, s.MediaMessages, "m1")
	assert.True(t, s.NotifiedMedia["m1"], "dedup marks survive clearing")
}
