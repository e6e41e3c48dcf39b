package jsonstore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextID(t *testing.T) {
	tests := []struct {
		name      string
		partition map[string]int
		want      string
	}{
		{"empty", map[string]int{}, "alice_1"},
		{"dense", map[string]int{"alice_1": 0, "alice_2": 0}, "alice_3"},
		{"gap after delete", map[string]int{"alice_2": 0}, "alice_3"},
		{"foreign ids count toward size", map[string]int{"imported": 0, "alice_1": 0}, "alice_3"},
		{"non-numeric suffix ignored", map[string]int{"alice_x": 0}, "alice_2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextID(tt.partition, "alice_"))
		})
	}
}

func TestISOTime_RoundTripAndLegacyForms(t *testing.T) {
	want := time.Date(2025, 1, 2, 3, 4, 5, 600000000, time.UTC)

	data, err := json.Marshal(newISOTime(want))
	require.NoError(t, err)
	assert.JSONEq(t, `"2025-01-02T03:04:05.6Z"`, string(data))

	for _, raw := range []string{
		`"2025-01-02T03:04:05.6Z"`,
		`"2025-01-02T05:04:05.6+02:00"`,
		`"2025-01-02T03:04:05.600000"`,
		`"2025-01-02 03:04:05.6"`,
	} {
		var got isoTime
		require.NoError(t, json.Unmarshal([]byte(raw), &got), raw)
		assert.True(t, want.Equal(got.Time), raw)
	}

	var bad isoTime
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}
