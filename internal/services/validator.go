package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fogiking/formpulse/internal/models"
)

// ValidateAnswers checks a candidate submission against the survey and
// returns every problem found, in survey question order. Answers that
// reference questions outside the survey are reported last.
func ValidateAnswers(survey *models.Survey, answers []models.Answer) []Issue {
	issues := []Issue{}
	byQuestion := map[string]*models.Answer{}
	duplicates := map[string]bool{}
	for i := range answers {
		id := answers[i].QuestionID
		if _, ok := byQuestion[id]; ok {
			duplicates[id] = true
			continue
		}
		byQuestion[id] = &answers[i]
	}

	for qi := range survey.Questions {
		q := &survey.Questions[qi]
		ans, ok := byQuestion[q.ID]
		if ok {
			delete(byQuestion, q.ID)
		}
		if duplicates[q.ID] {
			issues = append(issues, Issue{QuestionID: q.ID, Code: IssueMalformed,
				Message: "more than one answer for this question"})
			continue
		}
		if !ok || answerEmpty(q, ans) {
			if q.Required {
				issues = append(issues, Issue{QuestionID: q.ID, Code: IssueMissingRequired,
					Message: "an answer is required"})
			}
			continue
		}
		if !ans.Matches(q.Type) {
			issues = append(issues, Issue{QuestionID: q.ID, Code: IssueMalformed,
				Message: fmt.Sprintf("answer value does not fit a %s question", q.Type)})
			continue
		}
		issues = append(issues, checkValue(q, ans)...)
	}

	// Whatever is left references question ids the survey does not have.
	unknown := make([]string, 0, len(byQuestion))
	for id := range byQuestion {
		unknown = append(unknown, id)
	}
	sort.Strings(unknown)
	for _, id := range unknown {
		issues = append(issues, Issue{QuestionID: id, Code: IssueMalformed,
			Message: "answer references an unknown question"})
	}
	return issues
}

// answerEmpty reports whether the answer carries no usable value: no field
// set at all (which covers empty selection lists and rating 0), or a text
// value that is only whitespace.
func answerEmpty(q *models.Question, a *models.Answer) bool {
	kind := a.Kind()
	if kind == models.AnswerEmpty {
		return true
	}
	return q.Type == models.QuestionText && kind == models.AnswerText &&
		strings.TrimSpace(a.Text) == ""
}

// checkValue validates a shape-correct, non-empty answer against the
// question's choice set or rating range.
func checkValue(q *models.Question, a *models.Answer) []Issue {
	var issues []Issue
	switch q.Type {
	case models.QuestionMultipleChoice:
		if q.Choice(a.ChoiceID) == nil {
			issues = append(issues, Issue{QuestionID: q.ID, Code: IssueInvalidChoice,
				Message: fmt.Sprintf("choice %q is not part of this question", a.ChoiceID)})
		}
	case models.QuestionCheckbox:
		seen := map[string]bool{}
		for _, id := range a.ChoiceIDs {
			if seen[id] {
				issues = append(issues, Issue{QuestionID: q.ID, Code: IssueMalformed,
					Message: fmt.Sprintf("choice %q selected more than once", id)})
				continue
			}
			seen[id] = true
			if q.Choice(id) == nil {
				issues = append(issues, Issue{QuestionID: q.ID, Code: IssueInvalidChoice,
					Message: fmt.Sprintf("choice %q is not part of this question", id)})
			}
		}
	case models.QuestionRating:
		max := q.MaxRating
		if max == 0 {
			max = models.DefaultMaxRating
		}
		if a.Rating < 1 || a.Rating > max {
			issues = append(issues, Issue{QuestionID: q.ID, Code: IssueInvalidRating,
				Message: fmt.Sprintf("rating must be between 1 and %d", max)})
		}
	}
	return issues
}
