package data

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Error types for flashcard content validation
var (
	ErrInvalidFlashcard  = errors.New("invalid flashcard")
	ErrInvalidPack       = errors.New("invalid flashcard pack")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)

// MaxCardTextLength mirrors the backend limit on question and answer text
const MaxCardTextLength = 1000

// Difficulty grades a flashcard
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty accepts any casing and defaults empty input to medium
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DifficultyMedium, nil
	case "easy":
		return DifficultyEasy, nil
	case "medium":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	}
	return "", fmt.Errorf("%w: %q must be one of easy, medium, hard", ErrInvalidDifficulty, s)
}

// Flashcard is a single question/answer card belonging to a pack
type Flashcard struct {
	ID           string     `json:"id"`
	PackID       string     `json:"pack_id"`
	Question     string     `json:"question"`
	Answer       string     `json:"answer"`
	Difficulty   Difficulty `json:"difficulty"`
	TimesUsed    int        `json:"times_used"`
	TimesCorrect int        `json:"times_correct"`
	SuccessRate  float64    `json:"success_rate"`
	CreatedAt    Timestamp  `json:"created_at"`
	UpdatedAt    Timestamp  `json:"updated_at"`
}

// FlashcardPack groups flashcards
type FlashcardPack struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

// PackInput is the create/update payload for a pack
type PackInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Validate trims and checks the pack payload
func (in *PackInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return fmt.Errorf("%w: %w: name cannot be empty", ErrInvalidPack, ErrRequiredField)
	}
	if utf8.RuneCountInString(in.Name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidPack, MaxNameLength)
	}
	return nil
}

// FlashcardInput is the create/update payload for a flashcard
type FlashcardInput struct {
	PackID     string     `json:"pack_id"`
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
}

// Validate trims the text fields, normalizes difficulty and checks lengths
func (in *FlashcardInput) Validate() error {
	in.PackID = strings.TrimSpace(in.PackID)
	in.Question = strings.TrimSpace(in.Question)
	in.Answer = strings.TrimSpace(in.Answer)

	if in.PackID == "" {
		return fmt.Errorf("%w: %w: pack_id", ErrInvalidFlashcard, ErrRequiredField)
	}
	for _, f := range [...]struct{ field, value string }{{"question", in.Question}, {"answer", in.Answer}} {
		field, value := f.field, f.value
		if value == "" {
			return fmt.Errorf("%w: %w: %s cannot be empty", ErrInvalidFlashcard, ErrRequiredField, field)
		}
		if utf8.RuneCountInString(value) > MaxCardTextLength {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidFlashcard, field, MaxCardTextLength)
		}
	}

	d, err := ParseDifficulty(string(in.Difficulty))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFlashcard, err)
	}
	in.Difficulty = d
	return nil
}

// BulkImportResult summarizes a CSV flashcard import
type BulkImportResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
}

// FileContent is a downloadable document produced by the backend
type FileContent struct {
	Content   string `json:"content"`
	Filename  string `json:"filename"`
	MediaType string `json:"media_type"`
}

var textPolicy = bluemonday.StrictPolicy()

// PlainText strips markup produced by rich-text editors and collapses whitespace.
// Block-level tags are turned into spaces first so words do not run together.
func PlainText(s string) string {
	for _, tag := range []string{"<br>", "<br/>", "<br />", "</p>", "</li>", "</div>"} {
		s = strings.ReplaceAll(s, tag, tag+" ")
	}
	return strings.Join(strings.Fields(html.UnescapeString(textPolicy.Sanitize(s))), " ")
}

// PlainQuestion returns the question without markup
func (f Flashcard) PlainQuestion() string {
	return PlainText(f.Question)
}

// PlainAnswer returns the answer without markup
func (f Flashcard) PlainAnswer() string {
	return PlainText(f.Answer)
}
