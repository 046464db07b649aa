package aitime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func fixedNormalizer(now time.Time) *Normalizer {
	return NewNormalizer("UTC").WithClock(func() time.Time { return now })
}

func TestNormalize_Shapes(t *testing.T) {
	now := time.Date(2026, 1, 27, 10, 0, 0, 0, time.UTC)
	want := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	n := fixedNormalizer(now)

	tests := []struct {
		name string
		raw  any
	}{
		{"native time", want},
		{"time pointer", &want},
		{"provider timestamp", timestamppb.New(want)},
		{"document map", map[string]any{"seconds": want.Unix(), "nanoseconds": 0}},
		{"underscored document map", map[string]any{"_seconds": float64(want.Unix()), "_nanoseconds": float64(0)}},
		{"RFC3339", "2024-03-01T09:00:00Z"},
		{"RFC3339 offset", "2024-03-01T10:00:00+01:00"},
		{"RFC3339 nano", "2024-03-01T09:00:00.000000000Z"},
		{"local datetime", "2024-03-01T09:00:00"},
		{"space datetime", "2024-03-01 09:00:00"},
		{"epoch millis", want.UnixMilli()},
		{"epoch millis float", float64(want.UnixMilli())},
		{"json number", json.Number("1709283600000")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := n.TryNormalize(tt.raw)
			require.True(t, ok)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}
}

func TestNormalize_FallsBackToNow(t *testing.T) {
	now := time.Date(2026, 1, 27, 10, 0, 0, 0, time.UTC)
	n := fixedNormalizer(now)
	var nilTime *time.Time
	var nilTS *timestamppb.Timestamp

	for _, raw := range []any{
		nil,
		"",
		"not a date",
		nilTime,
		nilTS,
		map[string]any{"foo": 1},
		struct{}{},
		time.Time{},
	} {
		assert.Equal(t, now, n.Normalize(raw), "raw=%#v", raw)
	}
}

func TestParser_DateOnlyUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	p := NewParser(loc)

	got, err := p.Parse("2026-01-28")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-28 00:00 +0800", got.Format("2006-01-02 15:04 -0700"))

	_, err = p.Parse("yesterday")
	assert.Error(t, err)
}

func TestNormalizer_UnknownTimezone(t *testing.T) {
	n := NewNormalizer("Nowhere/Invalid")
	assert.Equal(t, time.UTC, n.Location())
}
