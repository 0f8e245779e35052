package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fogiking/formpulse/internal/models"
	"github.com/fogiking/formpulse/internal/store"
)

// SurveyStore abstracts the repository operations the authoring workflow
// needs.
type SurveyStore interface {
	InsertSurvey(s *models.Survey) error
	GetSurvey(id string) (*models.Survey, error)
	ListSurveys() ([]*models.Survey, error)
	UpdateSurvey(id string, patch models.SurveyPatch) (*models.Survey, error)
	DeleteSurvey(id string) (int, error)
	SetCurrentSurvey(id string) error
	AddAudit(e store.AuditEntry) error
}

// SurveyService hosts the author-side workflow: create, edit, reorder and
// delete surveys.
type SurveyService struct {
	store SurveyStore
	now   func() time.Time
	idGen func() string
}

func NewSurveyService(st SurveyStore) *SurveyService {
	return &SurveyService{
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return shortID(8) },
	}
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

// Create normalizes and stores a new survey: generated ids where missing,
// rating defaults applied, timestamps set.
func (s *SurveyService) Create(survey *models.Survey, actor string) (*models.Survey, error) {
	if survey == nil || strings.TrimSpace(survey.Title) == "" {
		return nil, NewInvalidError("title required")
	}
	sc := survey.Clone()
	if sc.ID == "" {
		sc.ID = s.idGen()
	}
	if err := normalizeQuestions(sc.Questions); err != nil {
		return nil, err
	}
	now := s.now()
	sc.CreatedAt = now
	sc.UpdatedAt = now
	if err := s.store.InsertSurvey(sc); err != nil {
		return nil, mapStoreErr(err, "survey")
	}
	_ = s.store.AddAudit(store.AuditEntry{Time: now, Actor: actor, Action: "create_survey", Target: sc.ID})
	return sc, nil
}

// Update merges a partial edit into the survey; a provided question list
// replaces the old one after normalization, keeping existing question ids.
func (s *SurveyService) Update(id string, patch models.SurveyPatch) (*models.Survey, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, NewInvalidError("title must not be empty")
	}
	if patch.Questions != nil {
		if err := normalizeQuestions(*patch.Questions); err != nil {
			return nil, err
		}
	}
	updated, err := s.store.UpdateSurvey(id, patch)
	if err != nil {
		return nil, mapStoreErr(err, "survey")
	}
	return updated, nil
}

// Delete removes the survey and cascades to its responses.
func (s *SurveyService) Delete(id, actor string) error {
	removed, err := s.store.DeleteSurvey(id)
	if err != nil {
		return mapStoreErr(err, "survey")
	}
	_ = s.store.AddAudit(store.AuditEntry{
		Time: s.now(), Actor: actor, Action: "delete_survey", Target: id,
		Note: strconv.Itoa(removed) + " responses removed",
	})
	return nil
}

// Get returns the survey, or a not-found error.
func (s *SurveyService) Get(id string) (*models.Survey, error) {
	survey, err := s.store.GetSurvey(id)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, NewNotFoundError("survey not found")
	}
	return survey, nil
}

// List returns every survey in creation order.
func (s *SurveyService) List() ([]*models.Survey, error) {
	return s.store.ListSurveys()
}

// Reorder rearranges the survey's questions. The order slice must be a
// permutation of the existing question ids.
func (s *SurveyService) Reorder(id string, order []string) (*models.Survey, error) {
	if len(order) == 0 {
		return nil, NewInvalidError("order required")
	}
	survey, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if len(order) != len(survey.Questions) {
		return nil, NewInvalidError("order must list every question exactly once")
	}
	reordered := make([]models.Question, 0, len(order))
	for _, qid := range order {
		q := survey.Question(qid)
		if q == nil {
			return nil, NewInvalidError(fmt.Sprintf("unknown question %q in order", qid))
		}
		reordered = append(reordered, *q)
	}
	seen := map[string]bool{}
	for _, qid := range order {
		if seen[qid] {
			return nil, NewInvalidError(fmt.Sprintf("question %q listed twice in order", qid))
		}
		seen[qid] = true
	}
	return s.Update(id, models.SurveyPatch{Questions: &reordered})
}

// SetCurrent records which survey the author has open; empty id clears it.
func (s *SurveyService) SetCurrent(id string) error {
	if err := s.store.SetCurrentSurvey(id); err != nil {
		return mapStoreErr(err, "survey")
	}
	return nil
}

// IncompleteQuestions returns the ids of questions not yet publishable
// (choice questions with fewer than two options, ratings out of range).
func IncompleteQuestions(survey *models.Survey) []string {
	var out []string
	for i := range survey.Questions {
		if !survey.Questions[i].Complete() {
			out = append(out, survey.Questions[i].ID)
		}
	}
	return out
}

// ShareLink builds the respondent URL for a survey id.
func ShareLink(baseURL, surveyID string) string {
	return strings.TrimRight(baseURL, "/") + "/survey/" + surveyID
}

// normalizeQuestions fills generated ids and rating defaults in place and
// rejects structurally impossible questions.
func normalizeQuestions(questions []models.Question) error {
	for i := range questions {
		q := &questions[i]
		switch q.Type {
		case models.QuestionText, models.QuestionMultipleChoice, models.QuestionCheckbox, models.QuestionRating:
		default:
			return NewInvalidError(fmt.Sprintf("unsupported question type %q", q.Type))
		}
		if strings.TrimSpace(q.Text) == "" {
			return NewInvalidError("question text required")
		}
		if q.ID == "" {
			q.ID = shortID(8)
		}
		if q.HasChoices() {
			for j := range q.Choices {
				if q.Choices[j].ID == "" {
					q.Choices[j].ID = shortID(8)
				}
			}
		} else if len(q.Choices) > 0 {
			return NewInvalidError(fmt.Sprintf("question type %q does not take choices", q.Type))
		}
		if q.Type == models.QuestionRating {
			if q.MaxRating == 0 {
				q.MaxRating = models.DefaultMaxRating
			}
			if q.MaxRating < 1 || q.MaxRating > models.MaxRatingLimit {
				return NewInvalidError(fmt.Sprintf("max rating must be between 1 and %d", models.MaxRatingLimit))
			}
		} else if q.MaxRating != 0 {
			return NewInvalidError(fmt.Sprintf("question type %q does not take a max rating", q.Type))
		}
	}
	return nil
}

// mapStoreErr translates repository sentinels into service errors.
func mapStoreErr(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return NewNotFoundError(entity + " not found")
	case errors.Is(err, store.ErrDuplicateID):
		return NewConflictError(entity + " id already exists")
	default:
		return err
	}
}
