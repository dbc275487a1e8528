package equity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jan(d int) time.Time {
	return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestWindowsCoverEachDayOnce(t *testing.T) {
	day40 := jan(1).AddDate(0, 0, 39)
	windows := Windows(jan(1), day40, DefaultWindowDays, DefaultStrideDays)

	require.Len(t, windows, 2)
	assert.Equal(t, Window{Start: jan(1), End: jan(21)}, windows[0])
	assert.Equal(t, Window{Start: jan(22), End: day40}, windows[1])

	seen := make(map[time.Time]int)
	for _, w := range windows {
		for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
			seen[d]++
		}
	}

	assert.Len(t, seen, 40)
	for d := jan(1); !d.After(day40); d = d.AddDate(0, 0, 1) {
		assert.Equal(t, 1, seen[d], "day %s", d.Format("2006-01-02"))
	}
}

func TestWindows(t *testing.T) {
	tests := []struct {
		name         string
		start, end   time.Time
		size, stride int
		want         int
		lastEnd      time.Time
	}{
		{"single day", jan(5), jan(5), 20, 21, 1, jan(5)},
		{"shorter than window", jan(1), jan(10), 20, 21, 1, jan(10)},
		{"exact window", jan(1), jan(21), 20, 21, 1, jan(21)},
		{"one past window", jan(1), jan(22), 20, 21, 2, jan(22)},
		{"small windows", jan(1), jan(10), 2, 3, 4, jan(10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Windows(tt.start, tt.end, tt.size, tt.stride)
			require.Len(t, got, tt.want)
			assert.Equal(t, tt.start, got[0].Start)
			assert.Equal(t, tt.lastEnd, got[len(got)-1].End)
		})
	}
}

func TestWindowsInvalid(t *testing.T) {
	assert.Nil(t, Windows(jan(10), jan(1), 20, 21))
	assert.Nil(t, Windows(jan(1), jan(10), 20, 0))
	assert.Nil(t, Windows(jan(1), jan(10), -1, 21))
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: jan(1), End: jan(21)}

	assert.True(t, w.Contains(jan(1)))
	assert.True(t, w.Contains(jan(21)))
	assert.True(t, w.Contains(jan(21).Add(15*time.Hour)))
	assert.False(t, w.Contains(jan(22)))
	assert.False(t, w.Contains(jan(1).Add(-time.Second)))
	assert.Equal(t, "20200101-20200121", w.String())
}
