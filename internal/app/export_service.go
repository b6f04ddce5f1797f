package app

import (
	"context"
	"strings"
	"time"

	"eventqa-service/internal/domain"
)

// unknownFieldText renders in place of unresolved question or choice
// references in exports.
const unknownFieldText = "Unknown"

// FormatCSV is the only supported export format.
const FormatCSV = "csv"

// ExportService renders the joined answer/question/choice data of an event
// as CSV text.
type ExportService struct {
	store     RecordStore
	questions QuestionRepository
}

func NewExportService(store RecordStore, questions QuestionRepository) *ExportService {
	return &ExportService{store: store, questions: questions}
}

// ExportAnswers produces one CSV row per answer to the event's questions, in
// the answer collection's natural order. Requesting any format other than
// "csv" fails with ErrUnsupportedFormat rather than silently falling back.
// When anonymized, the User ID column is omitted entirely.
//
// The quoting rule is a contract: every field is wrapped in double quotes
// with inner quotes doubled, and rows are joined with a single newline, so
// values containing commas, quotes, or newlines round-trip through any
// standard CSV parser. encoding/csv is not used because it quotes only when
// necessary and writes \r\n line endings.
func (s *ExportService) ExportAnswers(ctx context.Context, event domain.Event, format string, anonymized bool) (string, error) {
	if format != FormatCSV {
		return "", domain.ErrUnsupportedFormat
	}

	questions, err := s.questions.QuestionsByEvent(ctx, event.ID)
	if err != nil {
		return "", err
	}
	questionsByID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		questionsByID[q.ID] = q
	}

	all, err := readCollection[domain.Answer](ctx, s.store, CollectionAnswers)
	if err != nil {
		return "", err
	}

	header := []string{"Answer ID", "User ID", "Question Text", "Selected Choice", "Is Correct", "Submitted At"}
	if anonymized {
		header = []string{"Answer ID", "Question Text", "Selected Choice", "Is Correct", "Submitted At"}
	}

	// Header names contain no separators and are written bare; every value
	// field is quoted.
	lines := make([]string, 0, len(all)+1)
	lines = append(lines, strings.Join(header, ","))
	for _, answer := range all {
		question, ok := questionsByID[answer.QuestionID]
		if !ok {
			continue
		}
		questionText := question.Text
		if questionText == "" {
			questionText = unknownFieldText
		}
		choiceText, ok := question.ChoiceText(answer.SelectedChoice)
		if !ok {
			choiceText = unknownFieldText
		}
		correct := "No"
		if answer.IsCorrect {
			correct = "Yes"
		}
		submittedAt := answer.CreatedAt.UTC().Format(time.RFC3339)

		row := []string{answer.ID, answer.UserID, questionText, choiceText, correct, submittedAt}
		if anonymized {
			row = []string{answer.ID, questionText, choiceText, correct, submittedAt}
		}
		lines = append(lines, csvRow(row))
	}

	return strings.Join(lines, "\n"), nil
}

func csvRow(fields []string) string {
	quoted := make([]string, len(fields))
	for i, field := range fields {
		quoted[i] = `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}
