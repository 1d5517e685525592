package recency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ref = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestCountWithinBoundaries(t *testing.T) {
	f := New(30, zap.NewNop())

	tests := []struct {
		name       string
		timestamps []string
		want       int
	}{
		{
			name: "exactly thirty days old counts",
			timestamps: []string{
				ref.AddDate(0, 0, -30).Format(time.RFC3339),
			},
			want: 1,
		},
		{
			name: "thirty one days old does not",
			timestamps: []string{
				ref.AddDate(0, 0, -31).Format(time.RFC3339),
			},
			want: 0,
		},
		{
			name: "reference instant itself counts",
			timestamps: []string{
				ref.Format(time.RFC3339),
			},
			want: 1,
		},
		{
			name: "future timestamps do not",
			timestamps: []string{
				ref.AddDate(0, 0, 1).Format(time.RFC3339),
			},
			want: 0,
		},
		{
			name: "mixed set",
			timestamps: []string{
				ref.AddDate(0, 0, -5).Format(time.RFC3339),
				ref.AddDate(0, 0, -29).Format(time.RFC3339),
				ref.AddDate(0, 0, -45).Format(time.RFC3339),
			},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.CountWithin(ref, tt.timestamps))
		})
	}
}

func TestCountWithinSkipsMalformed(t *testing.T) {
	f := New(30, zap.NewNop())
	timestamps := []string{
		"not a date",
		"",
		"soon",
		ref.AddDate(0, 0, -3).Format(time.RFC3339),
	}
	assert.Equal(t, 1, f.CountWithin(ref, timestamps))
}

func TestParseTimestampRelative(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"3 days ago", ref.AddDate(0, 0, -3)},
		{"a day ago", ref.AddDate(0, 0, -1)},
		{"an hour ago", ref.Add(-time.Hour)},
		{"2 weeks ago", ref.AddDate(0, 0, -14)},
		{"a month ago", ref.AddDate(0, 0, -30)},
		{"4 months ago", ref.AddDate(0, 0, -120)},
		{"a year ago", ref.AddDate(0, 0, -365)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTimestamp(tt.raw, ref)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestParseTimestampAbsolute(t *testing.T) {
	got, err := ParseTimestamp("2025-06-01", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseTimestamp("2025-06-01 08:30:00", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC), got)
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "tomorrow", "ago", "-3 days ago", "three days ago"} {
		_, err := ParseTimestamp(raw, ref)
		assert.Error(t, err, "raw=%q", raw)
	}
}
