package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/fogiking/formpulse/internal/models"
)

func TestFileSnapshotMissingFileIsEmptyState(t *testing.T) {
	snap := NewFileSnapshot(filepath.Join(t.TempDir(), "nope.json"))
	st, err := snap.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(st.Surveys) != 0 || len(st.Responses) != 0 || st.CurrentSurveyID != "" {
		t.Fatalf("expected empty state, got %+v", st)
	}
}

func TestFileSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	snap := NewFileSnapshot(path)
	in := &State{
		Surveys: []*models.Survey{{ID: "s1", Title: "Pulse", Questions: []models.Question{
			{ID: "q1", Type: models.QuestionRating, Text: "Score?", MaxRating: 5},
		}}},
		Responses:       []*models.Response{{ID: "r1", SurveyID: "s1", Answers: []models.Answer{{QuestionID: "q1", Rating: 4}}}},
		CurrentSurveyID: "s1",
		Voted:           map[string][]models.VotePair{"voter-a": {{ResponseID: "r1", QuestionID: "q1"}}},
	}
	if err := snap.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := snap.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("state did not round-trip:\nin  %+v\nout %+v", in, out)
	}
}

func TestFileSnapshotRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileSnapshot(path).Load(); err == nil {
		t.Fatalf("expected decode error")
	}
}
