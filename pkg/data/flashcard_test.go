package data

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		input   string
		want    Difficulty
		wantErr bool
	}{
		{"easy", DifficultyEasy, false},
		{"EASY", DifficultyEasy, false},
		{" Medium ", DifficultyMedium, false},
		{"hard", DifficultyHard, false},
		{"", DifficultyMedium, false},
		{"impossible", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDifficulty(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDifficulty)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlashcardInputValidation(t *testing.T) {
	t.Run("TrimsAndDefaults", func(t *testing.T) {
		in := FlashcardInput{PackID: " p1 ", Question: "  Capital of France? ", Answer: " Paris "}
		require.NoError(t, in.Validate())

		assert.Equal(t, "p1", in.PackID)
		assert.Equal(t, "Capital of France?", in.Question)
		assert.Equal(t, "Paris", in.Answer)
		assert.Equal(t, DifficultyMedium, in.Difficulty)
	})

	t.Run("EmptyAnswer", func(t *testing.T) {
		in := FlashcardInput{PackID: "p1", Question: "Q", Answer: "   "}
		err := in.Validate()
		assert.ErrorIs(t, err, ErrInvalidFlashcard)
		assert.ErrorIs(t, err, ErrRequiredField)
	})

	t.Run("TooLong", func(t *testing.T) {
		in := FlashcardInput{PackID: "p1", Question: strings.Repeat("q", MaxCardTextLength+1), Answer: "a"}
		assert.ErrorIs(t, in.Validate(), ErrInvalidFlashcard)
	})

	t.Run("MissingPack", func(t *testing.T) {
		in := FlashcardInput{Question: "Q", Answer: "A"}
		assert.ErrorIs(t, in.Validate(), ErrRequiredField)
	})
}

func TestPackAndStudentInputValidation(t *testing.T) {
	pack := PackInput{Name: "  Geography  "}
	require.NoError(t, pack.Validate())
	assert.Equal(t, "Geography", pack.Name)

	empty := PackInput{Name: " "}
	assert.ErrorIs(t, empty.Validate(), ErrInvalidPack)

	student := StudentInput{Name: " Ada "}
	require.NoError(t, student.Validate())
	assert.Equal(t, "Ada", student.Name)

	long := StudentInput{Name: strings.Repeat("x", MaxNameLength+1)}
	assert.ErrorIs(t, long.Validate(), ErrInvalidStudent)
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"PlainPassesThrough", "What is 2+2?", "What is 2+2?"},
		{"StripsInlineTags", "What is <strong>H<sub>2</sub>O</strong>?", "What is H2O?"},
		{"ParagraphsBecomeSpaces", "<p>First line</p><p>Second line</p>", "First line Second line"},
		{"DropsScripts", "Hi<script>alert(1)</script>", "Hi"},
		{"UnescapesEntities", "Tom &amp; Jerry", "Tom & Jerry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.input))
		})
	}

	card := Flashcard{Question: "<em>Why?</em>", Answer: "<p>Because</p>"}
	assert.Equal(t, "Why?", card.PlainQuestion())
	assert.Equal(t, "Because", card.PlainAnswer())
}

func TestParseFlashcardCSV(t *testing.T) {
	t.Run("ValidDocument", func(t *testing.T) {
		doc := "\xEF\xBB\xBFquestion,answer,difficulty,pack_id\n" +
			"What is 2+2?,4,EASY,p1\n" +
			"Capital of Peru?,Lima,,p2\n"

		result, err := ParseFlashcardCSV(strings.NewReader(doc), "")
		require.NoError(t, err)

		assert.Equal(t, 2, result.TotalRows)
		assert.Equal(t, 2, result.SuccessfulRows)
		require.Len(t, result.Cards, 2)
		assert.Equal(t, DifficultyEasy, result.Cards[0].Difficulty)
		assert.Equal(t, "p1", result.Cards[0].PackID)
		assert.Equal(t, DifficultyMedium, result.Cards[1].Difficulty)
		assert.Empty(t, result.ParseErrors)
	})

	t.Run("DefaultPackAndRowErrors", func(t *testing.T) {
		doc := "Question,Answer,Difficulty\n" +
			"Q1,A1,hard\n" +
			"Q2,,easy\n" +
			"\n" +
			"Q3,A3,legendary\n"

		result, err := ParseFlashcardCSV(strings.NewReader(doc), "default-pack")
		require.NoError(t, err)

		assert.Equal(t, 3, result.TotalRows)
		assert.Equal(t, 1, result.SuccessfulRows)
		assert.Equal(t, "default-pack", result.Cards[0].PackID)
		require.Len(t, result.ParseErrors, 2)
		assert.Equal(t, 2, result.ParseErrors[0].RowNumber)
		assert.Equal(t, ColumnDifficulty, result.ParseErrors[1].Field)

		summary := result.ImportResult()
		assert.Equal(t, BulkImportResult{Total: 3, Successful: 1, Failed: 2, Errors: result.ErrorMessages()}, summary)
		assert.True(t, strings.HasPrefix(summary.Errors[0], "Row 2: "))
	})

	t.Run("MissingColumns", func(t *testing.T) {
		_, err := ParseFlashcardCSV(strings.NewReader("question,pack_id\nQ,p\n"), "")
		assert.ErrorIs(t, err, ErrCSVParsing)

		_, err = ParseFlashcardCSV(strings.NewReader("question,answer\nQ,A\n"), "")
		assert.ErrorIs(t, err, ErrCSVParsing)
	})

	t.Run("EmptyDocument", func(t *testing.T) {
		_, err := ParseFlashcardCSV(strings.NewReader(""), "p1")
		assert.ErrorIs(t, err, ErrCSVParsing)
	})
}

func TestWriteFlashcardCSV(t *testing.T) {
	cards := []Flashcard{
		{ID: "c1", PackID: "p1", Question: "Q, with comma", Answer: "A", Difficulty: DifficultyHard, TimesUsed: 3, TimesCorrect: 2},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFlashcardCSV(&buf, cards))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "question,answer,difficulty,pack_id,times_used,times_correct", lines[0])
	assert.Equal(t, `"Q, with comma",A,HARD,p1,3,2`, lines[1])

	// Exported documents can be imported again
	result, err := ParseFlashcardCSV(&buf, "")
	require.NoError(t, err)
	require.Len(t, result.Cards, 1)
	assert.Equal(t, DifficultyHard, result.Cards[0].Difficulty)
}

func TestWriteTemplateCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplateCSV(&buf, ""))
	assert.Contains(t, buf.String(), "question,answer,difficulty,pack_id")
	assert.Contains(t, buf.String(), "pack-uuid-here")

	result, err := ParseFlashcardCSV(&buf, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessfulRows)
}
