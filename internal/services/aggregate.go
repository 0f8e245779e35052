package services

import (
	"math"

	"github.com/fogiking/formpulse/internal/models"
)

// TextEntry is one free-text answer with its upvote total, in submission
// order.
type TextEntry struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// ChoiceEntry is one option's tally. Entries appear in the question's choice
// order, including options nobody picked.
type ChoiceEntry struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
	Votes      int    `json:"votes"`
}

// RatingEntry is one rating bucket, emitted for every value 1..max in
// ascending order.
type RatingEntry struct {
	Value      int `json:"value"`
	Count      int `json:"count"`
	Percentage int `json:"percentage"`
	Votes      int `json:"votes"`
}

// QuestionResult is the aggregated outcome for one question. Exactly one of
// the entry slices is populated, matching the question type.
type QuestionResult struct {
	QuestionID    string              `json:"question_id"`
	Type          models.QuestionType `json:"type"`
	Text          string              `json:"text"`
	TotalAnswered int                 `json:"total_answered"`
	TextEntries   []TextEntry         `json:"text_entries,omitempty"`
	ChoiceEntries []ChoiceEntry       `json:"choice_entries,omitempty"`
	RatingEntries []RatingEntry       `json:"rating_entries,omitempty"`
	AverageRating float64             `json:"average_rating,omitempty"`
}

// SurveySummary bundles the per-question results for one survey.
type SurveySummary struct {
	SurveyID       string           `json:"survey_id"`
	Title          string           `json:"title"`
	TotalResponses int              `json:"total_responses"`
	Questions      []QuestionResult `json:"questions"`
}

// Aggregate computes one result per survey question, in survey order.
//
// Percentage denominators differ by type: multipleChoice and rating divide by
// the number of responses that answered the question, checkbox by the total
// response count (each respondent counted once however many boxes they
// ticked). A zero denominator yields zero percentages throughout.
func Aggregate(survey *models.Survey, responses []*models.Response) []QuestionResult {
	results := make([]QuestionResult, 0, len(survey.Questions))
	for qi := range survey.Questions {
		q := &survey.Questions[qi]
		res := QuestionResult{QuestionID: q.ID, Type: q.Type, Text: q.Text}
		switch q.Type {
		case models.QuestionText:
			aggregateText(q, responses, &res)
		case models.QuestionMultipleChoice:
			aggregateMultipleChoice(q, responses, &res)
		case models.QuestionCheckbox:
			aggregateCheckbox(q, responses, &res)
		case models.QuestionRating:
			aggregateRating(q, responses, &res)
		}
		results = append(results, res)
	}
	return results
}

func aggregateText(q *models.Question, responses []*models.Response, res *QuestionResult) {
	res.TextEntries = []TextEntry{}
	for _, r := range responses {
		ans := r.Answer(q.ID)
		if ans == nil || ans.Text == "" {
			continue
		}
		res.TextEntries = append(res.TextEntries, TextEntry{Text: ans.Text, Votes: ans.Votes})
	}
	res.TotalAnswered = len(res.TextEntries)
}

func aggregateMultipleChoice(q *models.Question, responses []*models.Response, res *QuestionResult) {
	counts := map[string]int{}
	votes := map[string]int{}
	for _, c := range q.Choices {
		counts[c.ID] = 0
	}
	answered := 0
	for _, r := range responses {
		ans := r.Answer(q.ID)
		if ans == nil || ans.ChoiceID == "" {
			continue
		}
		if _, ok := counts[ans.ChoiceID]; !ok {
			continue
		}
		counts[ans.ChoiceID]++
		votes[ans.ChoiceID] += ans.Votes
		answered++
	}
	res.TotalAnswered = answered
	res.ChoiceEntries = make([]ChoiceEntry, 0, len(q.Choices))
	for _, c := range q.Choices {
		res.ChoiceEntries = append(res.ChoiceEntries, ChoiceEntry{
			ID:         c.ID,
			Text:       c.Text,
			Count:      counts[c.ID],
			Percentage: percentage(counts[c.ID], answered),
			Votes:      votes[c.ID],
		})
	}
}

func aggregateCheckbox(q *models.Question, responses []*models.Response, res *QuestionResult) {
	counts := map[string]int{}
	votes := map[string]int{}
	for _, c := range q.Choices {
		counts[c.ID] = 0
	}
	answered := 0
	for _, r := range responses {
		ans := r.Answer(q.ID)
		if ans == nil || len(ans.ChoiceIDs) == 0 {
			continue
		}
		answered++
		seen := map[string]bool{}
		for _, id := range ans.ChoiceIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			if _, ok := counts[id]; !ok {
				continue
			}
			counts[id]++
			votes[id] += ans.Votes
		}
	}
	res.TotalAnswered = answered
	res.ChoiceEntries = make([]ChoiceEntry, 0, len(q.Choices))
	for _, c := range q.Choices {
		res.ChoiceEntries = append(res.ChoiceEntries, ChoiceEntry{
			ID:         c.ID,
			Text:       c.Text,
			Count:      counts[c.ID],
			Percentage: percentage(counts[c.ID], len(responses)),
			Votes:      votes[c.ID],
		})
	}
}

func aggregateRating(q *models.Question, responses []*models.Response, res *QuestionResult) {
	max := q.MaxRating
	if max <= 0 {
		max = models.DefaultMaxRating
	}
	counts := make([]int, max+1)
	votes := make([]int, max+1)
	answered := 0
	sum := 0
	for _, r := range responses {
		ans := r.Answer(q.ID)
		if ans == nil || ans.Rating == 0 {
			continue
		}
		if ans.Rating < 1 || ans.Rating > max {
			continue
		}
		counts[ans.Rating]++
		votes[ans.Rating] += ans.Votes
		sum += ans.Rating
		answered++
	}
	res.TotalAnswered = answered
	res.RatingEntries = make([]RatingEntry, 0, max)
	for v := 1; v <= max; v++ {
		res.RatingEntries = append(res.RatingEntries, RatingEntry{
			Value:      v,
			Count:      counts[v],
			Percentage: percentage(counts[v], answered),
			Votes:      votes[v],
		})
	}
	if answered > 0 {
		res.AverageRating = math.Round(float64(sum)/float64(answered)*10) / 10
	}
}

func percentage(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

// AggregationStore is the read surface the aggregation service needs.
type AggregationStore interface {
	GetSurvey(id string) (*models.Survey, error)
	ResponsesFor(surveyID string) ([]*models.Response, error)
}

type AggregationService struct {
	store AggregationStore
}

func NewAggregationService(store AggregationStore) *AggregationService {
	return &AggregationService{store: store}
}

// Results aggregates every response submitted for the survey.
func (s *AggregationService) Results(surveyID string) (*SurveySummary, error) {
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
	return &SurveySummary{
		SurveyID:       survey.ID,
		Title:          survey.Title,
		TotalResponses: len(responses),
		Questions:      Aggregate(survey, responses),
	}, nil
}
