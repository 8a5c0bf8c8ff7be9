package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_AddMonths(t *testing.T) {
	tests := []struct {
		name  string
		start Date
		n     int
		want  Date
	}{
		{"same day next month", NewDate(2025, time.January, 1), 1, NewDate(2025, time.February, 1)},
		{"clamps to february", NewDate(2025, time.January, 31), 1, NewDate(2025, time.February, 28)},
		{"clamps to leap february", NewDate(2024, time.January, 31), 1, NewDate(2024, time.February, 29)},
		{"clamps to thirty-day month", NewDate(2025, time.March, 31), 1, NewDate(2025, time.April, 30)},
		{"crosses year", NewDate(2025, time.November, 15), 3, NewDate(2026, time.February, 15)},
		{"twelve months", NewDate(2025, time.June, 10), 12, NewDate(2026, time.June, 10)},
		{"negative months", NewDate(2025, time.March, 31), -1, NewDate(2025, time.February, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.start.AddMonths(tt.n))
		})
	}
}

func TestDate_Ordering(t *testing.T) {
	a := NewDate(2025, time.January, 1)
	b := NewDate(2025, time.January, 2)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.After(a))
	assert.False(t, a.Before(a))
	assert.Equal(t, b, a.AddDays(1))
}

func TestDateOf_UsesUTCDay(t *testing.T) {
	zone := time.FixedZone("UTC+9", 9*60*60)
	local := time.Date(2025, time.January, 1, 3, 0, 0, 0, zone)

	assert.Equal(t, NewDate(2024, time.December, 31), DateOf(local))
	assert.Equal(t, time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), DateOf(local).StartOfDayUTC())
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		Due Date `json:"due"`
	}

	raw, err := json.Marshal(wrapper{Due: NewDate(2025, time.February, 1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2025-02-01"}`, string(raw))

	var decoded wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2025-03-15"}`), &decoded))
	assert.Equal(t, NewDate(2025, time.March, 15), decoded.Due)

	err = json.Unmarshal([]byte(`{"due":"15/03/2025"}`), &decoded)
	assert.Error(t, err)
}

func TestDate_Scan(t *testing.T) {
	t.Run("time value keeps its calendar day", func(t *testing.T) {
		zone := time.FixedZone("UTC-5", -5*60*60)
		var d Date
		require.NoError(t, d.Scan(time.Date(2025, time.May, 4, 0, 0, 0, 0, zone)))
		assert.Equal(t, NewDate(2025, time.May, 4), d)
	})

	t.Run("text", func(t *testing.T) {
		var d Date
		require.NoError(t, d.Scan([]byte("2025-05-04")))
		assert.Equal(t, NewDate(2025, time.May, 4), d)
	})

	t.Run("null", func(t *testing.T) {
		d := NewDate(2025, time.May, 4)
		require.NoError(t, d.Scan(nil))
		assert.True(t, d.IsZero())
	})

	t.Run("unsupported type", func(t *testing.T) {
		var d Date
		assert.Error(t, d.Scan(42))
	})

	t.Run("value round trip", func(t *testing.T) {
		v, err := NewDate(2025, time.May, 4).Value()
		require.NoError(t, err)
		assert.Equal(t, "2025-05-04", v)
	})
}
