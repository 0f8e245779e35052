package services

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"github.com/fogiking/formpulse/internal/models"
)

// ExportResponsesCSV renders one row per response, one column per question,
// in survey question order. Choice answers are resolved to their display
// labels; checkbox selections are joined with " | ".
func ExportResponsesCSV(survey *models.Survey, responses []*models.Response) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"response_id", "submitted_at"}
	for i := range survey.Questions {
		header = append(header, survey.Questions[i].Text)
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range responses {
		row := []string{r.ID, r.CreatedAt.Format(time.RFC3339)}
		for qi := range survey.Questions {
			q := &survey.Questions[qi]
			row = append(row, answerCell(q, r.Answer(q.ID)))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func answerCell(q *models.Question, a *models.Answer) string {
	if a == nil {
		return ""
	}
	switch q.Type {
	case models.QuestionText:
		return a.Text
	case models.QuestionMultipleChoice:
		return choiceLabel(q, a.ChoiceID)
	case models.QuestionCheckbox:
		labels := make([]string, 0, len(a.ChoiceIDs))
		for _, id := range a.ChoiceIDs {
			labels = append(labels, choiceLabel(q, id))
		}
		return strings.Join(labels, " | ")
	case models.QuestionRating:
		if a.Rating == 0 {
			return ""
		}
		return strconv.Itoa(a.Rating)
	default:
		return ""
	}
}

func choiceLabel(q *models.Question, id string) string {
	if c := q.Choice(id); c != nil {
		return c.Text
	}
	return id
}

// ExportStore is the read surface the export workflow needs.
type ExportStore interface {
	GetSurvey(id string) (*models.Survey, error)
	ResponsesFor(surveyID string) ([]*models.Response, error)
}

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExportService struct {
	store ExportStore
}

func NewExportService(st ExportStore) *ExportService {
	return &ExportService{store: st}
}

// ExportCSV renders the survey's responses as a downloadable CSV.
func (s *ExportService) ExportCSV(surveyID string) (*ExportResult, error) {
	if surveyID == "" {
		return nil, NewInvalidError("survey id required")
	}
	survey, err := s.store.GetSurvey(surveyID)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, NewNotFoundError("survey not found")
	}
	responses, err := s.store.ResponsesFor(surveyID)
	if err != nil {
		return nil, err
	}
	data, err := ExportResponsesCSV(survey, responses)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    "survey_" + surveyID + ".csv",
		ContentType: "text/csv; charset=utf-8",
		Data:        data,
	}, nil
}
