package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fogiking/formpulse/internal/models"
)

var (
	// ErrNotFound is returned when a referenced survey or response id does
	// not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateID is returned on an attempt to create an entity whose id
	// is already taken. Ids are generated, so this signals a caller bug.
	ErrDuplicateID = errors.New("duplicate id")
)

// AuditEntry records one notable repository mutation.
type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}

// Repository owns the process-wide survey/response state. It is initialized
// from a persisted snapshot and writes the full state back through the
// snapshot port before any mutating method returns (write-through).
//
// Concurrent cross-process writers are not coordinated: the last snapshot
// written wins.
type Repository struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time

	surveys         []*models.Survey
	responses       []*models.Response
	surveyIdx       map[string]*models.Survey
	responseIdx     map[string]*models.Response
	currentSurveyID string
	voted           map[string]map[models.VotePair]struct{}
	audit           []AuditEntry
}

// NewRepository loads the snapshot and builds the in-memory indexes.
func NewRepository(snap Snapshot) (*Repository, error) {
	st, err := snap.Load()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	r := &Repository{
		snap:        snap,
		now:         func() time.Time { return time.Now().UTC() },
		surveyIdx:   map[string]*models.Survey{},
		responseIdx: map[string]*models.Response{},
		voted:       map[string]map[models.VotePair]struct{}{},
	}
	for _, s := range st.Surveys {
		r.surveys = append(r.surveys, s)
		r.surveyIdx[s.ID] = s
	}
	for _, resp := range st.Responses {
		r.responses = append(r.responses, resp)
		r.responseIdx[resp.ID] = resp
	}
	r.currentSurveyID = st.CurrentSurveyID
	for voter, pairs := range st.Voted {
		set := map[models.VotePair]struct{}{}
		for _, p := range pairs {
			set[p] = struct{}{}
		}
		r.voted[voter] = set
	}
	r.audit = append(r.audit, st.Audit...)
	return r, nil
}

// SetClock overrides the repository clock; tests use a fixed time source.
func (r *Repository) SetClock(now func() time.Time) { r.now = now }

// state assembles the serializable aggregate. Caller must hold the lock.
func (r *Repository) state() *State {
	st := &State{
		Surveys:         r.surveys,
		Responses:       r.responses,
		CurrentSurveyID: r.currentSurveyID,
		Audit:           r.audit,
	}
	if len(r.voted) > 0 {
		st.Voted = map[string][]models.VotePair{}
		for voter, set := range r.voted {
			pairs := make([]models.VotePair, 0, len(set))
			for p := range set {
				pairs = append(pairs, p)
			}
			st.Voted[voter] = pairs
		}
	}
	return st
}

// persist writes the current state through the snapshot port. Caller must
// hold the write lock.
func (r *Repository) persist() error {
	if err := r.snap.Save(r.state()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// InsertSurvey appends a new survey. The repository keeps its own copy. A
// persist failure rolls the insert back; mutations are all-or-nothing.
func (r *Repository) InsertSurvey(s *models.Survey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.surveyIdx[s.ID]; ok {
		return fmt.Errorf("survey %s: %w", s.ID, ErrDuplicateID)
	}
	own := s.Clone()
	r.surveys = append(r.surveys, own)
	r.surveyIdx[own.ID] = own
	if err := r.persist(); err != nil {
		r.surveys = r.surveys[:len(r.surveys)-1]
		delete(r.surveyIdx, own.ID)
		return err
	}
	return nil
}

// GetSurvey returns a copy of the survey, or nil when the id is unknown.
func (r *Repository) GetSurvey(id string) (*models.Survey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.surveyIdx[id].Clone(), nil
}

// ListSurveys returns all surveys in creation order.
func (r *Repository) ListSurveys() ([]*models.Survey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Survey, 0, len(r.surveys))
	for _, s := range r.surveys {
		out = append(out, s.Clone())
	}
	return out, nil
}

// UpdateSurvey merges the patch into an existing survey and refreshes
// UpdatedAt. Returns the updated copy.
func (r *Repository) UpdateSurvey(id string, patch models.SurveyPatch) (*models.Survey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surveyIdx[id]
	if !ok {
		return nil, fmt.Errorf("survey %s: %w", id, ErrNotFound)
	}
	prev := s.Clone()
	if patch.Title != nil {
		s.Title = *patch.Title
	}
	if patch.Description != nil {
		s.Description = *patch.Description
	}
	if patch.Questions != nil {
		qs := make([]models.Question, len(*patch.Questions))
		for i, q := range *patch.Questions {
			cq := q
			cq.Choices = append([]models.Choice(nil), q.Choices...)
			qs[i] = cq
		}
		s.Questions = qs
	}
	s.UpdatedAt = r.now()
	if err := r.persist(); err != nil {
		*s = *prev
		return nil, err
	}
	return s.Clone(), nil
}

// DeleteSurvey removes the survey, every response referencing it, and the
// vote-ledger pairs of those responses. Clears the current-survey pointer if
// it pointed at the deleted id. Returns the number of removed responses.
func (r *Repository) DeleteSurvey(id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	victim, ok := r.surveyIdx[id]
	if !ok {
		return 0, fmt.Errorf("survey %s: %w", id, ErrNotFound)
	}

	// Build the post-delete state on fresh slices and maps so a failed
	// persist can swap the old state back untouched.
	oldSurveys, oldResponses := r.surveys, r.responses
	oldVoted, oldCurrent := r.voted, r.currentSurveyID

	surveys := make([]*models.Survey, 0, len(oldSurveys)-1)
	for _, s := range oldSurveys {
		if s.ID != id {
			surveys = append(surveys, s)
		}
	}

	removedIDs := map[string]struct{}{}
	var removedResponses []*models.Response
	responses := make([]*models.Response, 0, len(oldResponses))
	for _, resp := range oldResponses {
		if resp.SurveyID == id {
			removedIDs[resp.ID] = struct{}{}
			removedResponses = append(removedResponses, resp)
			continue
		}
		responses = append(responses, resp)
	}

	voted := map[string]map[models.VotePair]struct{}{}
	for voter, set := range oldVoted {
		kept := map[models.VotePair]struct{}{}
		for p := range set {
			if _, gone := removedIDs[p.ResponseID]; !gone {
				kept[p] = struct{}{}
			}
		}
		if len(kept) > 0 {
			voted[voter] = kept
		}
	}

	r.surveys, r.responses, r.voted = surveys, responses, voted
	delete(r.surveyIdx, id)
	for _, resp := range removedResponses {
		delete(r.responseIdx, resp.ID)
	}
	if r.currentSurveyID == id {
		r.currentSurveyID = ""
	}
	if err := r.persist(); err != nil {
		r.surveys, r.responses, r.voted = oldSurveys, oldResponses, oldVoted
		r.currentSurveyID = oldCurrent
		r.surveyIdx[id] = victim
		for _, resp := range removedResponses {
			r.responseIdx[resp.ID] = resp
		}
		return 0, err
	}
	return len(removedResponses), nil
}

// InsertResponse appends a submission. Vote counters always start at zero
// regardless of what the caller set. The referenced survey must exist.
func (r *Repository) InsertResponse(resp *models.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.surveyIdx[resp.SurveyID]; !ok {
		return fmt.Errorf("survey %s: %w", resp.SurveyID, ErrNotFound)
	}
	if _, ok := r.responseIdx[resp.ID]; ok {
		return fmt.Errorf("response %s: %w", resp.ID, ErrDuplicateID)
	}
	own := resp.Clone()
	for i := range own.Answers {
		own.Answers[i].Votes = 0
	}
	r.responses = append(r.responses, own)
	r.responseIdx[own.ID] = own
	if err := r.persist(); err != nil {
		r.responses = r.responses[:len(r.responses)-1]
		delete(r.responseIdx, own.ID)
		return err
	}
	return nil
}

// ResponsesFor returns the survey's responses in submission order.
func (r *Repository) ResponsesFor(surveyID string) ([]*models.Response, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.Response{}
	for _, resp := range r.responses {
		if resp.SurveyID == surveyID {
			out = append(out, resp.Clone())
		}
	}
	return out, nil
}

// GetResponse returns a copy of the response, or nil when the id is unknown.
func (r *Repository) GetResponse(id string) (*models.Response, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.responseIdx[id].Clone(), nil
}

// VoteResult reports what VoteOnce did.
type VoteResult int

const (
	// VoteMiss means the (response, question) pair addressed no answer.
	VoteMiss VoteResult = iota
	// VoteDuplicate means this voter already voted on the pair.
	VoteDuplicate
	// VoteCounted means the counter moved and the pair was recorded.
	VoteCounted
)

// VoteOnce checks the voter's dedup ledger, bumps the vote counter of the
// answer addressed by (responseID, questionID) and records the pair, all
// under one write lock so concurrent requests from the same voter cannot
// each slip past the ledger check. Unknown ids are an idempotent miss: no
// error, no state change, no persist. A persist failure rolls both the
// counter and the ledger entry back.
func (r *Repository) VoteOnce(responseID, questionID, voterKey string) (VoteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pair := models.VotePair{ResponseID: responseID, QuestionID: questionID}
	if _, ok := r.voted[voterKey][pair]; ok {
		return VoteDuplicate, nil
	}
	resp, ok := r.responseIdx[responseID]
	if !ok {
		return VoteMiss, nil
	}
	ans := resp.Answer(questionID)
	if ans == nil {
		return VoteMiss, nil
	}
	ans.Votes++
	set := r.voted[voterKey]
	created := set == nil
	if created {
		set = map[models.VotePair]struct{}{}
		r.voted[voterKey] = set
	}
	set[pair] = struct{}{}
	if err := r.persist(); err != nil {
		ans.Votes--
		delete(set, pair)
		if created {
			delete(r.voted, voterKey)
		}
		return VoteMiss, err
	}
	return VoteCounted, nil
}

// HasVoted reports whether the voter already voted on the pair.
func (r *Repository) HasVoted(voterKey string, p models.VotePair) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.voted[voterKey][p]
	return ok, nil
}

// SetCurrentSurvey remembers which survey is open in the authoring flow. An
// empty id clears the pointer.
func (r *Repository) SetCurrentSurvey(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id != "" {
		if _, ok := r.surveyIdx[id]; !ok {
			return fmt.Errorf("survey %s: %w", id, ErrNotFound)
		}
	}
	prev := r.currentSurveyID
	r.currentSurveyID = id
	if err := r.persist(); err != nil {
		r.currentSurveyID = prev
		return err
	}
	return nil
}

// CurrentSurvey returns the currently open survey, or nil.
func (r *Repository) CurrentSurvey() (*models.Survey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.currentSurveyID == "" {
		return nil, nil
	}
	return r.surveyIdx[r.currentSurveyID].Clone(), nil
}

// AddAudit appends an audit entry and persists it with the rest of the state.
func (r *Repository) AddAudit(e AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audit = append(r.audit, e)
	if err := r.persist(); err != nil {
		r.audit = r.audit[:len(r.audit)-1]
		return err
	}
	return nil
}

// ListAudit returns the audit log, oldest first.
func (r *Repository) ListAudit() []AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AuditEntry, len(r.audit))
	copy(out, r.audit)
	return out
}
