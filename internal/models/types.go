package models

import "time"

// QuestionType enumerates the supported answer formats.
type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionMultipleChoice QuestionType = "multipleChoice"
	QuestionCheckbox       QuestionType = "checkbox"
	QuestionRating         QuestionType = "rating"
)

// MaxRatingLimit bounds a rating question's scale; DefaultMaxRating applies
// when the author leaves it unset.
const (
	MaxRatingLimit   = 10
	DefaultMaxRating = 5
)

// Choice is one selectable option of a multipleChoice or checkbox question.
// Identity is ID; Text is the mutable display label.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is a single prompt inside a survey. Choices is populated only for
// multipleChoice/checkbox questions, MaxRating only for rating questions.
type Question struct {
	ID        string       `json:"id"`
	Type      QuestionType `json:"type"`
	Text      string       `json:"text"`
	Required  bool         `json:"required"`
	Choices   []Choice     `json:"choices,omitempty"`
	MaxRating int          `json:"max_rating,omitempty"`
}

// HasChoices reports whether the question type carries a choice list.
func (q *Question) HasChoices() bool {
	return q.Type == QuestionMultipleChoice || q.Type == QuestionCheckbox
}

// Choice returns the choice with the given id, or nil.
func (q *Question) Choice(id string) *Choice {
	for i := range q.Choices {
		if q.Choices[i].ID == id {
			return &q.Choices[i]
		}
	}
	return nil
}

// Complete reports whether the question is publishable: choice questions need
// at least two options, rating questions a max inside [1, MaxRatingLimit].
func (q *Question) Complete() bool {
	switch q.Type {
	case QuestionMultipleChoice, QuestionCheckbox:
		return len(q.Choices) >= 2
	case QuestionRating:
		return q.MaxRating >= 1 && q.MaxRating <= MaxRatingLimit
	default:
		return true
	}
}

// Survey is an ordered set of questions authored by one user. Question order
// is display and step order.
type Survey struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Question returns the question with the given id, or nil.
func (s *Survey) Question(id string) *Question {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i]
		}
	}
	return nil
}

// Clone returns a deep copy, so repository callers can mutate freely.
func (s *Survey) Clone() *Survey {
	if s == nil {
		return nil
	}
	out := *s
	out.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		cq := q
		cq.Choices = append([]Choice(nil), q.Choices...)
		out.Questions[i] = cq
	}
	return &out
}

// SurveyPatch carries a partial survey update; nil fields are left untouched.
// A non-nil Questions pointer replaces the question list wholesale.
type SurveyPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Questions   *[]Question `json:"questions,omitempty"`
}

// AnswerKind identifies which value field of an Answer is populated.
type AnswerKind int

const (
	AnswerEmpty AnswerKind = iota
	AnswerText
	AnswerChoice
	AnswerChoices
	AnswerRating
	// AnswerAmbiguous means more than one value field was set.
	AnswerAmbiguous
)

// Answer is one response's value for one question. Exactly one of Text,
// ChoiceID, ChoiceIDs and Rating should be set, matching the question type.
type Answer struct {
	QuestionID string   `json:"question_id"`
	Text       string   `json:"text,omitempty"`
	ChoiceID   string   `json:"choice_id,omitempty"`
	ChoiceIDs  []string `json:"choice_ids,omitempty"`
	Rating     int      `json:"rating,omitempty"`
	Votes      int      `json:"votes"`
}

// Kind inspects which value fields are set. An all-zero answer is
// AnswerEmpty; more than one populated field is AnswerAmbiguous.
func (a *Answer) Kind() AnswerKind {
	kind := AnswerEmpty
	set := func(k AnswerKind) AnswerKind {
		if kind != AnswerEmpty {
			return AnswerAmbiguous
		}
		return k
	}
	if a.Text != "" {
		kind = set(AnswerText)
	}
	if a.ChoiceID != "" {
		kind = set(AnswerChoice)
	}
	if len(a.ChoiceIDs) > 0 {
		kind = set(AnswerChoices)
	}
	if a.Rating != 0 {
		kind = set(AnswerRating)
	}
	return kind
}

// Matches reports whether the populated value field agrees with the question
// type. Empty answers match any type; the required check handles those.
func (a *Answer) Matches(t QuestionType) bool {
	switch a.Kind() {
	case AnswerEmpty:
		return true
	case AnswerText:
		return t == QuestionText
	case AnswerChoice:
		return t == QuestionMultipleChoice
	case AnswerChoices:
		return t == QuestionCheckbox
	case AnswerRating:
		return t == QuestionRating
	default:
		return false
	}
}

// Response is one respondent's full submission against a survey. It is
// immutable after creation except for the per-answer vote counters.
type Response struct {
	ID        string    `json:"id"`
	SurveyID  string    `json:"survey_id"`
	Answers   []Answer  `json:"answers"`
	CreatedAt time.Time `json:"created_at"`
}

// Answer returns the answer for the given question id, or nil.
func (r *Response) Answer(questionID string) *Answer {
	for i := range r.Answers {
		if r.Answers[i].QuestionID == questionID {
			return &r.Answers[i]
		}
	}
	return nil
}

// Clone returns a deep copy.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	out.Answers = make([]Answer, len(r.Answers))
	for i, a := range r.Answers {
		ca := a
		ca.ChoiceIDs = append([]string(nil), a.ChoiceIDs...)
		out.Answers[i] = ca
	}
	return &out
}

// VotePair identifies one upvote target: an answer addressed by its response
// and question ids.
type VotePair struct {
	ResponseID string `json:"response_id"`
	QuestionID string `json:"question_id"`
}
