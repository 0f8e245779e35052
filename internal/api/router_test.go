package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fogiking/formpulse/internal/middleware"
	"github.com/fogiking/formpulse/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	snap := store.NewFileSnapshot(filepath.Join(t.TempDir(), "state.json"))
	repo, err := store.NewRepository(snap)
	if err != nil {
		t.Fatalf("repository: %v", err)
	}
	router, err := NewRouter(repo, "hunter2")
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	mux := http.NewServeMux()
	router.Register(mux)
	srv := httptest.NewServer(middleware.WithAuth(mux))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer res.Body.Close()
	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(res.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]any
	if ct := res.Header.Get("Content-Type"); strings.HasPrefix(ct, "application/json") {
		if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v\n%s", method, url, err, buf.String())
		}
	}
	return res, out
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	res, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "", `{"password":"hunter2"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", res.StatusCode)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("no token in %v", body)
	}
	return token
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	srv := newTestServer(t)
	res, _ := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "", `{"password":"nope"}`)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", res.StatusCode)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)
	res, _ := doJSON(t, http.MethodPost, srv.URL+"/api/surveys", "", `{"title":"x"}`)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("create without token: %d, want 401", res.StatusCode)
	}
	res, _ = doJSON(t, http.MethodGet, srv.URL+"/api/surveys", "", "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("list without token: %d, want 401", res.StatusCode)
	}
}

func TestSurveyLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	res, body := doJSON(t, http.MethodPost, srv.URL+"/api/surveys", token, `{
		"title": "Team pulse",
		"questions": [
			{"type": "text", "text": "Comments", "required": true},
			{"type": "rating", "text": "Score", "max_rating": 5}
		]
	}`)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %v", res.StatusCode, body)
	}
	surveyID, _ := body["id"].(string)
	if surveyID == "" {
		t.Fatalf("no survey id in %v", body)
	}
	questions := body["questions"].([]any)
	q1 := questions[0].(map[string]any)["id"].(string)
	q2 := questions[1].(map[string]any)["id"].(string)

	// Respondents fetch the survey without a token.
	res, body = doJSON(t, http.MethodGet, srv.URL+"/api/surveys/"+surveyID, "", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("public get status %d", res.StatusCode)
	}
	if body["survey"] == nil {
		t.Fatalf("no survey in %v", body)
	}

	// An invalid submission reports every issue and stores nothing.
	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/surveys/"+surveyID+"/responses", "",
		fmt.Sprintf(`{"answers":[{"question_id":%q,"rating":9}]}`, q2))
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("invalid submit status %d: %v", res.StatusCode, body)
	}
	if issues, _ := body["issues"].([]any); len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %v", body["issues"])
	}

	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/surveys/"+surveyID+"/responses", "",
		fmt.Sprintf(`{"answers":[{"question_id":%q,"text":"all good"},{"question_id":%q,"rating":4}]}`, q1, q2))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("submit status %d: %v", res.StatusCode, body)
	}
	responseID, _ := body["response_id"].(string)
	if responseID == "" {
		t.Fatalf("no response id in %v", body)
	}

	// Voting is deduplicated per voter key.
	votePayload := fmt.Sprintf(`{"response_id":%q,"question_id":%q,"voter_key":"voter-a"}`, responseID, q1)
	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/votes", "", votePayload)
	if res.StatusCode != http.StatusOK || body["outcome"] != "recorded" {
		t.Fatalf("vote: status %d body %v", res.StatusCode, body)
	}
	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/votes", "", votePayload)
	if res.StatusCode != http.StatusOK || body["outcome"] != "already_voted" {
		t.Fatalf("repeat vote: status %d body %v", res.StatusCode, body)
	}

	// Results are public.
	res, body = doJSON(t, http.MethodGet, srv.URL+"/api/surveys/"+surveyID+"/results", "", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("results status %d", res.StatusCode)
	}
	if body["total_responses"].(float64) != 1 {
		t.Fatalf("total_responses %v", body["total_responses"])
	}

	// Export needs the token and returns CSV.
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/surveys/"+surveyID+"/export", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	expRes, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer expRes.Body.Close()
	if expRes.StatusCode != http.StatusOK {
		t.Fatalf("export status %d", expRes.StatusCode)
	}
	if ct := expRes.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("export content type %q", ct)
	}

	// Delete cascades and the survey is gone afterwards.
	res, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/surveys/"+surveyID, token, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", res.StatusCode)
	}
	res, _ = doJSON(t, http.MethodGet, srv.URL+"/api/surveys/"+surveyID, "", "")
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status %d, want 404", res.StatusCode)
	}
}

func TestCurrentSurveyAndShareLink(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)
	res, body := doJSON(t, http.MethodPost, srv.URL+"/api/surveys", token, `{"title":"Draft"}`)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", res.StatusCode)
	}
	surveyID := body["id"].(string)

	res, body = doJSON(t, http.MethodGet, srv.URL+"/api/current-survey", token, "")
	if res.StatusCode != http.StatusOK || body["survey"] != nil {
		t.Fatalf("fresh server must have no current survey: %d %v", res.StatusCode, body)
	}

	res, _ = doJSON(t, http.MethodPut, srv.URL+"/api/current-survey", token,
		fmt.Sprintf(`{"id":%q}`, surveyID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set current status %d", res.StatusCode)
	}
	res, body = doJSON(t, http.MethodGet, srv.URL+"/api/current-survey", token, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get current status %d", res.StatusCode)
	}
	if cur, _ := body["survey"].(map[string]any); cur == nil || cur["id"] != surveyID {
		t.Fatalf("current survey %v", body)
	}

	res, body = doJSON(t, http.MethodGet, srv.URL+"/api/surveys/"+surveyID+"/share", token, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("share status %d", res.StatusCode)
	}
	link, _ := body["link"].(string)
	if !strings.HasSuffix(link, "/survey/"+surveyID) {
		t.Fatalf("share link %q", link)
	}
}

func TestSubmitToUnknownSurvey(t *testing.T) {
	srv := newTestServer(t)
	res, _ := doJSON(t, http.MethodPost, srv.URL+"/api/surveys/ghost/responses", "", `{"answers":[]}`)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", res.StatusCode)
	}
}

func TestReorderEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)
	res, body := doJSON(t, http.MethodPost, srv.URL+"/api/surveys", token, `{
		"title": "Ordered",
		"questions": [
			{"type": "text", "text": "one"},
			{"type": "text", "text": "two"}
		]
	}`)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", res.StatusCode)
	}
	surveyID := body["id"].(string)
	questions := body["questions"].([]any)
	q1 := questions[0].(map[string]any)["id"].(string)
	q2 := questions[1].(map[string]any)["id"].(string)

	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/surveys/"+surveyID+"/reorder", token,
		fmt.Sprintf(`{"order":[%q,%q]}`, q2, q1))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reorder status %d: %v", res.StatusCode, body)
	}
	reordered := body["questions"].([]any)
	if reordered[0].(map[string]any)["id"].(string) != q2 {
		t.Fatalf("order not applied: %v", reordered)
	}

	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/surveys/"+surveyID+"/reorder", token,
		fmt.Sprintf(`{"order":[%q]}`, q1))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("partial order status %d, want 400", res.StatusCode)
	}
}
