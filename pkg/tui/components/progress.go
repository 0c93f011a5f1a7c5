// Package components provides reusable widgets for the arena screens.
package components

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Progress displays how many rounds of a battle have been played
type Progress struct {
	bar *tview.TextView

	completed int
	total     int

	width         int
	progressColor string
	completeColor string
}

// ProgressConfig holds configuration options for the progress bar
type ProgressConfig struct {
	Title         string
	Width         int
	ProgressColor string // tview color tag name, e.g. "blue"
	CompleteColor string
	BorderColor   tcell.Color
}

// DefaultProgressConfig returns sensible defaults for the round progress bar
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{
		Title:         "Rounds",
		Width:         30,
		ProgressColor: "blue",
		CompleteColor: "green",
		BorderColor:   tcell.ColorDarkGray,
	}
}

// NewProgress creates a new round progress bar
func NewProgress(config ProgressConfig) *Progress {
	p := &Progress{
		bar:           tview.NewTextView(),
		width:         config.Width,
		progressColor: config.ProgressColor,
		completeColor: config.CompleteColor,
	}

	// Set default values if not specified
	if p.width <= 0 {
		p.width = 30
	}
	if p.progressColor == "" {
		p.progressColor = "blue"
	}
	if p.completeColor == "" {
		p.completeColor = "green"
	}

	p.bar.SetBorder(true).SetTitle(config.Title)
	if config.BorderColor != 0 {
		p.bar.SetBorderColor(config.BorderColor)
	}
	p.bar.SetDynamicColors(true)
	p.bar.SetTextAlign(tview.AlignCenter)

	p.render()
	return p
}

// Update sets the number of completed rounds out of total
func (p *Progress) Update(completed, total int) {
	if total < 0 {
		total = 0
	}
	if completed < 0 {
		completed = 0
	}
	if completed > total {
		completed = total
	}
	p.completed = completed
	p.total = total
	p.render()
}

// Fraction returns the completed share in [0, 1]
func (p *Progress) Fraction() float64 {
	if p.total == 0 {
		return 0
	}
	return float64(p.completed) / float64(p.total)
}

// IsComplete reports whether every round has been played
func (p *Progress) IsComplete() bool {
	return p.total > 0 && p.completed == p.total
}

// Text returns the rendered bar including color tags
func (p *Progress) Text() string {
	return p.bar.GetText(false)
}

// GetPrimitive returns the widget to embed in a layout
func (p *Progress) GetPrimitive() tview.Primitive {
	return p.bar
}

func (p *Progress) render() {
	text := p.createProgressBar(p.Fraction(), p.IsComplete())
	text += fmt.Sprintf("\n[white]%d of %d rounds played", p.completed, p.total)
	p.bar.SetText(text)
}

// createProgressBar creates a visual progress bar using text characters
func (p *Progress) createProgressBar(progress float64, isComplete bool) string {
	filledWidth := int(progress * float64(p.width))

	color := "[" + p.progressColor + "]"
	if isComplete {
		color = "[" + p.completeColor + "]"
	}

	return color + strings.Repeat("█", filledWidth) + "[gray]" + strings.Repeat("░", p.width-filledWidth) + "[white]"
}
