package data

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrCSVParsing reports a CSV document that cannot be read at all
var ErrCSVParsing = errors.New("CSV parsing error")

// Column names used by flashcard import and export documents
const (
	ColumnQuestion     = "question"
	ColumnAnswer       = "answer"
	ColumnDifficulty   = "difficulty"
	ColumnPackID       = "pack_id"
	ColumnTimesUsed    = "times_used"
	ColumnTimesCorrect = "times_correct"
)

// TemplateFilename is the suggested name of the import template
const TemplateFilename = "flashcard_template.csv"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVParseResult contains the result of parsing a flashcard CSV document
type CSVParseResult struct {
	Cards          []FlashcardInput `json:"cards"`
	ParseErrors    []CSVParseError  `json:"parse_errors,omitempty"`
	TotalRows      int              `json:"total_rows"`
	SuccessfulRows int              `json:"successful_rows"`
	Headers        []string         `json:"headers"`
	ParsedAt       time.Time        `json:"parsed_at"`
}

// CSVParseError represents an error encountered while parsing a CSV row
type CSVParseError struct {
	RowNumber int    `json:"row_number"`
	Field     string `json:"field"`
	Value     string `json:"value"`
	Message   string `json:"error"`
}

// Error implements the error interface
func (e CSVParseError) Error() string {
	return fmt.Sprintf("row %d, field '%s' (value: '%s'): %s", e.RowNumber, e.Field, e.Value, e.Message)
}

// ErrorMessages renders parse errors the way the backend reports import failures
func (r *CSVParseResult) ErrorMessages() []string {
	msgs := make([]string, 0, len(r.ParseErrors))
	for _, e := range r.ParseErrors {
		msgs = append(msgs, fmt.Sprintf("Row %d: %s", e.RowNumber, e.Message))
	}
	return msgs
}

// ImportResult converts the parse outcome into a bulk import summary
func (r *CSVParseResult) ImportResult() BulkImportResult {
	return BulkImportResult{
		Total:      r.TotalRows,
		Successful: r.SuccessfulRows,
		Failed:     r.TotalRows - r.SuccessfulRows,
		Errors:     r.ErrorMessages(),
	}
}

// ParseFlashcardCSV reads a header-first flashcard document. Rows without a
// pack_id column value fall back to defaultPackID. Row numbers count data rows
// starting at 1.
func ParseFlashcardCSV(reader io.Reader, defaultPackID string) (*CSVParseResult, error) {
	br := bufio.NewReader(reader)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	csvReader := csv.NewReader(br)
	csvReader.FieldsPerRecord = -1

	result := &CSVParseResult{
		Cards:       make([]FlashcardInput, 0),
		ParseErrors: make([]CSVParseError, 0),
		ParsedAt:    time.Now().UTC(),
	}

	headers, err := csvReader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: document is empty", ErrCSVParsing)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrCSVParsing, err)
	}
	result.Headers = headers

	columnMap := buildColumnMap(headers)
	for _, required := range []string{ColumnQuestion, ColumnAnswer} {
		if _, ok := columnMap[required]; !ok {
			return nil, fmt.Errorf("%w: missing required column %q", ErrCSVParsing, required)
		}
	}
	if _, ok := columnMap[ColumnPackID]; !ok && defaultPackID == "" {
		return nil, fmt.Errorf("%w: missing %q column and no pack selected", ErrCSVParsing, ColumnPackID)
	}

	rowNumber := 0
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read CSV: %v", ErrCSVParsing, err)
		}
		if isEmptyRow(record) {
			continue
		}

		rowNumber++
		result.TotalRows++

		card, parseErr := parseCSVRow(record, columnMap, defaultPackID, rowNumber)
		if parseErr != nil {
			result.ParseErrors = append(result.ParseErrors, *parseErr)
			continue
		}
		result.Cards = append(result.Cards, *card)
		result.SuccessfulRows++
	}

	return result, nil
}

// buildColumnMap maps known column names (case-insensitive) to their indices
func buildColumnMap(headers []string) map[string]int {
	columnMap := make(map[string]int)
	for i, header := range headers {
		name := strings.ToLower(strings.TrimSpace(header))
		switch name {
		case ColumnQuestion, ColumnAnswer, ColumnDifficulty, ColumnPackID:
			if _, dup := columnMap[name]; !dup {
				columnMap[name] = i
			}
		}
	}
	return columnMap
}

func isEmptyRow(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseCSVRow parses a single CSV row into a validated FlashcardInput
func parseCSVRow(record []string, columnMap map[string]int, defaultPackID string, rowNumber int) (*FlashcardInput, *CSVParseError) {
	getColumn := func(field string) string {
		if index, exists := columnMap[field]; exists && index < len(record) {
			return strings.TrimSpace(record[index])
		}
		return ""
	}

	packID := getColumn(ColumnPackID)
	if packID == "" {
		packID = defaultPackID
	}

	difficulty, err := ParseDifficulty(getColumn(ColumnDifficulty))
	if err != nil {
		return nil, &CSVParseError{
			RowNumber: rowNumber,
			Field:     ColumnDifficulty,
			Value:     getColumn(ColumnDifficulty),
			Message:   err.Error(),
		}
	}

	card := &FlashcardInput{
		PackID:     packID,
		Question:   getColumn(ColumnQuestion),
		Answer:     getColumn(ColumnAnswer),
		Difficulty: difficulty,
	}
	if err := card.Validate(); err != nil {
		return nil, &CSVParseError{
			RowNumber: rowNumber,
			Field:     "validation",
			Message:   err.Error(),
		}
	}

	return card, nil
}

// WriteFlashcardCSV writes cards in the export layout
func WriteFlashcardCSV(w io.Writer, cards []Flashcard) error {
	writer := csv.NewWriter(w)

	header := []string{ColumnQuestion, ColumnAnswer, ColumnDifficulty, ColumnPackID, ColumnTimesUsed, ColumnTimesCorrect}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, card := range cards {
		row := []string{
			card.Question,
			card.Answer,
			strings.ToUpper(string(card.Difficulty)),
			card.PackID,
			strconv.Itoa(card.TimesUsed),
			strconv.Itoa(card.TimesCorrect),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for card %s: %w", card.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteTemplateCSV writes an import template with one example row
func WriteTemplateCSV(w io.Writer, packID string) error {
	if packID == "" {
		packID = "pack-uuid-here"
	}
	writer := csv.NewWriter(w)
	records := [][]string{
		{ColumnQuestion, ColumnAnswer, ColumnDifficulty, ColumnPackID},
		{"What is 2+2?", "4", "EASY", packID},
	}
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	return nil
}
