package components

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgress(t *testing.T) {
	progress := NewProgress(DefaultProgressConfig())

	require.NotNil(t, progress)
	assert.NotNil(t, progress.GetPrimitive())
	assert.Equal(t, 30, progress.width)
	assert.Equal(t, 0.0, progress.Fraction())
	assert.False(t, progress.IsComplete())
	assert.Contains(t, progress.Text(), "0 of 0 rounds played")
}

func TestNewProgressWithCustomConfig(t *testing.T) {
	progress := NewProgress(ProgressConfig{
		Title:         "Battle",
		Width:         10,
		ProgressColor: "red",
		CompleteColor: "yellow",
		BorderColor:   tcell.ColorGreen,
	})

	assert.Equal(t, 10, progress.width)
	assert.Equal(t, "red", progress.progressColor)
	assert.Equal(t, "yellow", progress.completeColor)

	defaults := NewProgress(ProgressConfig{})
	assert.Equal(t, 30, defaults.width)
	assert.Equal(t, "blue", defaults.progressColor)
}

func TestProgressUpdate(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		total     int
		fraction  float64
		complete  bool
		filled    int
	}{
		{"not started", 0, 4, 0, false, 0},
		{"halfway", 2, 4, 0.5, false, 5},
		{"done", 4, 4, 1, true, 10},
		{"clamped above total", 7, 4, 1, true, 10},
		{"negative values", -1, -3, 0, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProgress(ProgressConfig{Width: 10})
			p.Update(tt.completed, tt.total)

			assert.Equal(t, tt.fraction, p.Fraction())
			assert.Equal(t, tt.complete, p.IsComplete())
			assert.Equal(t, tt.filled, strings.Count(p.Text(), "█"))
			assert.Equal(t, 10-tt.filled, strings.Count(p.Text(), "░"))
		})
	}
}

func TestProgressCompleteColor(t *testing.T) {
	p := NewProgress(ProgressConfig{Width: 4})

	p.Update(1, 2)
	assert.True(t, strings.HasPrefix(p.Text(), "[blue]"))

	p.Update(2, 2)
	assert.True(t, strings.HasPrefix(p.Text(), "[green]"))
	assert.Contains(t, p.Text(), "2 of 2 rounds played")
}
