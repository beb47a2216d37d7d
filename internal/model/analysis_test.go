package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvidenceJSONShapes(t *testing.T) {
	tests := []struct {
		name string
		ev   Evidence
		want string
	}{
		{"absent", NoEvidence(), `null`},
		{"empty list is absent", EvidenceList(nil), `null`},
		{"single", SingleEvidence("GET /admin"), `"GET /admin"`},
		{"list", EvidenceList([]string{"a", "b"}), `["a","b"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.ev)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestEvidenceUnmarshal(t *testing.T) {
	var a SessionAnalysis
	require.NoError(t, json.Unmarshal([]byte(`{"Evidence":"one"}`), &a))
	assert.True(t, a.Evidence.IsSingle())
	assert.Equal(t, []string{"one"}, a.Evidence.Items())

	require.NoError(t, json.Unmarshal([]byte(`{"Evidence":["x","y"]}`), &a))
	assert.False(t, a.Evidence.IsSingle())
	assert.Equal(t, []string{"x", "y"}, a.Evidence.Items())

	require.NoError(t, json.Unmarshal([]byte(`{"Evidence":null}`), &a))
	assert.True(t, a.Evidence.IsAbsent())
}

func TestEvidenceItemsIsACopy(t *testing.T) {
	src := []string{"a"}
	ev := EvidenceList(src)
	src[0] = "mutated"
	items := ev.Items()
	items[0] = "changed"
	assert.Equal(t, []string{"a"}, ev.Items())
}

func TestSessionDuration(t *testing.T) {
	s := Session{Records: []LogRecord{
		{Timestamp: mustTime(t, "2025-03-02T10:00:00Z")},
		{Timestamp: mustTime(t, "2025-03-02T10:02:00Z")},
	}}
	assert.Equal(t, 120.0, s.Duration().Seconds())

	single := Session{Records: s.Records[:1]}
	assert.Zero(t, single.Duration())
}
