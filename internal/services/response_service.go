package services

import (
	"time"

	"github.com/fogiking/formpulse/internal/models"
)

// ResponseStore abstracts the repository operations the submission workflow
// needs.
type ResponseStore interface {
	GetSurvey(id string) (*models.Survey, error)
	InsertResponse(r *models.Response) error
	ResponsesFor(surveyID string) ([]*models.Response, error)
}

// ResponseService hosts the respondent-side submission workflow.
type ResponseService struct {
	store ResponseStore
	now   func() time.Time
	idGen func() string
}

func NewResponseService(st ResponseStore) *ResponseService {
	return &ResponseService{
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return shortID(12) },
	}
}

// Submit validates the answers against the survey and stores the response.
// A failed validation returns a *ValidationError carrying every issue; no
// state is mutated in that case.
func (s *ResponseService) Submit(surveyID string, answers []models.Answer) (*models.Response, error) {
	survey, err := s.store.GetSurvey(surveyID)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, NewNotFoundError("survey not found")
	}
	if issues := ValidateAnswers(survey, answers); len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	resp := &models.Response{
		ID:        s.idGen(),
		SurveyID:  surveyID,
		Answers:   make([]models.Answer, 0, len(answers)),
		CreatedAt: s.now(),
	}
	for _, a := range answers {
		a.Votes = 0
		resp.Answers = append(resp.Answers, a)
	}
	if err := s.store.InsertResponse(resp); err != nil {
		return nil, mapStoreErr(err, "response")
	}
	return resp, nil
}

// List returns the survey's responses in submission order.
func (s *ResponseService) List(surveyID string) ([]*models.Response, error) {
	survey, err := s.store.GetSurvey(surveyID)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, NewNotFoundError("survey not found")
	}
	return s.store.ResponsesFor(surveyID)
}
