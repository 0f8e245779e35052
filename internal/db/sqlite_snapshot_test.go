package db

import (
	"database/sql"
	"path/filepath"
	"reflect"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fogiking/formpulse/internal/models"
	"github.com/fogiking/formpulse/internal/store"
)

func openTestSnapshot(t *testing.T) *SQLiteSnapshot {
	t.Helper()
	conn, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	snap, err := NewSQLiteSnapshot(conn, "test")
	if err != nil {
		t.Fatalf("NewSQLiteSnapshot: %v", err)
	}
	return snap
}

func TestSQLiteSnapshotEmptyLoad(t *testing.T) {
	snap := openTestSnapshot(t)
	st, err := snap.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(st.Surveys) != 0 || len(st.Responses) != 0 {
		t.Fatalf("expected empty state, got %+v", st)
	}
}

func TestSQLiteSnapshotRoundTrip(t *testing.T) {
	snap := openTestSnapshot(t)
	in := &store.State{
		Surveys: []*models.Survey{{ID: "s1", Title: "Pulse", Questions: []models.Question{
			{ID: "q1", Type: models.QuestionMultipleChoice, Text: "Pick one", Choices: []models.Choice{
				{ID: "c1", Text: "A"}, {ID: "c2", Text: "B"},
			}},
		}}},
		Responses:       []*models.Response{{ID: "r1", SurveyID: "s1", Answers: []models.Answer{{QuestionID: "q1", ChoiceID: "c1"}}}},
		CurrentSurveyID: "s1",
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

	// Second save must overwrite, not duplicate.
	in.CurrentSurveyID = ""
	if err := snap.Save(in); err != nil {
		t.Fatalf("second save: %v", err)
	}
	out, err = snap.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if out.CurrentSurveyID != "" {
		t.Fatalf("overwrite did not stick: %q", out.CurrentSurveyID)
	}
}
