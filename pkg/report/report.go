// Package report renders roster, leaderboard, arena and flashcard listings
// for the terminal and for export. Tables are colored when the output is a
// terminal; CSV and JSON are meant for files and pipes.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Format is an output format
type Format string

// Supported output formats
const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ErrUnknownFormat is returned for formats other than table, csv and json
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat accepts a format name in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("%w: %q (use table, csv or json)", ErrUnknownFormat, s)
	}
}

// Printer writes listings in one format
type Printer struct {
	w        io.Writer
	format   Format
	plain    bool
	collator *collate.Collator
}

// PrinterOption customizes a Printer
type PrinterOption func(*Printer)

// WithPlain disables colors regardless of the terminal
func WithPlain() PrinterOption {
	return func(p *Printer) { p.plain = true }
}

// WithLanguage sets the collation used to sort names
func WithLanguage(tag language.Tag) PrinterOption {
	return func(p *Printer) { p.collator = collate.New(tag, collate.IgnoreCase) }
}

// NewPrinter creates a printer writing to w
func NewPrinter(w io.Writer, format Format, opts ...PrinterOption) *Printer {
	p := &Printer{
		w:        w,
		format:   format,
		collator: collate.New(language.English, collate.IgnoreCase),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format returns the printer's output format
func (p *Printer) Format() Format {
	return p.format
}

// cell is one table value with an optional color
type cell struct {
	text  string
	color *color.Color
}

func plain(text string) cell {
	return cell{text: text}
}

func colored(text string, attrs ...color.Attribute) cell {
	return cell{text: text, color: color.New(attrs...)}
}

// sheet is the tabular form of a listing
type sheet struct {
	title   string
	headers []string
	rows    [][]cell
	empty   string // shown instead of an empty table
}

// emit renders v as JSON or the sheet as CSV or a table
func (p *Printer) emit(v any, s sheet) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case FormatCSV:
		return p.writeCSV(s)
	case FormatTable, "":
		return p.writeTable(s)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, p.format)
	}
}

func (p *Printer) writeCSV(s sheet) error {
	w := csv.NewWriter(p.w)
	if err := w.Write(s.headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, row := range s.rows {
		record := make([]string, len(row))
		for j, c := range row {
			record[j] = c.text
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}
	w.Flush()
	return w.Error()
}

func (p *Printer) writeTable(s sheet) error {
	bold := color.New(color.Bold)
	p.paint(bold)

	if s.title != "" {
		if _, err := fmt.Fprintln(p.w, bold.Sprint(s.title)); err != nil {
			return err
		}
	}
	if len(s.rows) == 0 {
		msg := s.empty
		if msg == "" {
			msg = "Nothing to show"
		}
		_, err := fmt.Fprintln(p.w, msg)
		return err
	}

	widths := make([]int, len(s.headers))
	for i, h := range s.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range s.rows {
		for i, c := range row {
			if w := runewidth.StringWidth(c.text); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}

	header := make([]cell, len(s.headers))
	for i, h := range s.headers {
		header[i] = cell{text: h, color: bold}
	}
	if err := p.writeRow(header, widths); err != nil {
		return err
	}
	rule := make([]cell, len(widths))
	for i, w := range widths {
		rule[i] = plain(strings.Repeat("-", w))
	}
	if err := p.writeRow(rule, widths); err != nil {
		return err
	}
	for _, row := range s.rows {
		if err := p.writeRow(row, widths); err != nil {
			return err
		}
	}
	return nil
}

// writeRow pads by display width before coloring so escape codes do not
// break alignment
func (p *Printer) writeRow(row []cell, widths []int) error {
	var sb strings.Builder
	for i, c := range row {
		if i > 0 {
			sb.WriteString("  ")
		}
		text := c.text
		if i < len(row)-1 && i < len(widths) {
			text = runewidth.FillRight(text, widths[i])
		}
		if c.color != nil {
			p.paint(c.color)
			text = c.color.Sprint(text)
		}
		sb.WriteString(text)
	}
	_, err := fmt.Fprintln(p.w, strings.TrimRight(sb.String(), " "))
	return err
}

func (p *Printer) paint(c *color.Color) {
	if p.plain {
		c.DisableColor()
	}
}

// Truncate shortens s to at most max display columns, adding an ellipsis
func Truncate(s string, max int) string {
	if max <= 0 || runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max, "…")
}
