package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/fogiking/formpulse/internal/middleware"
	"github.com/fogiking/formpulse/internal/models"
	"github.com/fogiking/formpulse/internal/services"
	"github.com/fogiking/formpulse/internal/store"
	"github.com/fogiking/formpulse/internal/utils"
)

// Router wires the HTTP surface to the services. All request and response
// bodies are JSON except the CSV export.
type Router struct {
	repo       *store.Repository
	surveys    *services.SurveyService
	responses  *services.ResponseService
	aggregates *services.AggregationService
	votes      *services.VoteService
	exports    *services.ExportService
	auth       *services.AuthService
}

// NewRouter builds the service graph on top of the repository.
func NewRouter(repo *store.Repository, adminPassword string) (*Router, error) {
	auth, err := services.NewAuthService(adminPassword, middleware.SignAdminToken)
	if err != nil {
		return nil, err
	}
	return &Router{
		repo:       repo,
		surveys:    services.NewSurveyService(repo),
		responses:  services.NewResponseService(repo),
		aggregates: services.NewAggregationService(repo),
		votes:      services.NewVoteService(repo),
		exports:    services.NewExportService(repo),
		auth:       auth,
	}, nil
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/login", rt.handleLogin)
	mux.HandleFunc("POST /api/surveys", rt.handleCreateSurvey)
	mux.HandleFunc("GET /api/surveys", rt.handleListSurveys)
	mux.HandleFunc("GET /api/surveys/{id}", rt.handleGetSurvey)
	mux.HandleFunc("PATCH /api/surveys/{id}", rt.handleUpdateSurvey)
	mux.HandleFunc("DELETE /api/surveys/{id}", rt.handleDeleteSurvey)
	mux.HandleFunc("POST /api/surveys/{id}/reorder", rt.handleReorder)
	mux.HandleFunc("POST /api/surveys/{id}/responses", rt.handleSubmitResponse)
	mux.HandleFunc("GET /api/surveys/{id}/responses", rt.handleListResponses)
	mux.HandleFunc("GET /api/surveys/{id}/results", rt.handleResults)
	mux.HandleFunc("GET /api/surveys/{id}/export", rt.handleExport)
	mux.HandleFunc("GET /api/surveys/{id}/share", rt.handleShareLink)
	mux.HandleFunc("GET /api/current-survey", rt.handleCurrentSurvey)
	mux.HandleFunc("PUT /api/current-survey", rt.handleSetCurrentSurvey)
	mux.HandleFunc("POST /api/votes", rt.handleVote)
	mux.HandleFunc("GET /api/audit", rt.handleAudit)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to HTTP statuses. Validation errors carry
// the full issue list so the client can show every problem at once.
func writeError(w http.ResponseWriter, err error) {
	if ve, ok := services.AsValidationError(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  ve.Error(),
			"issues": ve.Issues,
		})
		return
	}
	if se, ok := services.AsServiceError(err); ok {
		status := http.StatusInternalServerError
		switch se.Code {
		case services.ErrorInvalid:
			status = http.StatusBadRequest
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": se.Message})
		return
	}
	log.Printf("internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

// requireAdmin guards author-side handlers behind the admin gate.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !middleware.IsAdmin(r.Context()) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return false
	}
	return true
}

func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError(err.Error()))
		return
	}
	res, err := rt.auth.Login(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": res.Token})
}

func (rt *Router) handleCreateSurvey(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var survey models.Survey
	if err := json.NewDecoder(r.Body).Decode(&survey); err != nil {
		writeError(w, services.NewInvalidError(err.Error()))
		return
	}
	created, err := rt.surveys.Create(&survey, "admin")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (rt *Router) handleListSurveys(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	surveys, err := rt.surveys.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"surveys": surveys})
}

// handleGetSurvey is public: respondents load the survey definition by
// shared link. Incomplete question ids are included for the author UI.
func (rt *Router) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	survey, err := rt.surveys.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"survey":     survey,
		"incomplete": services.IncompleteQuestions(survey),
	})
}

func (rt *Router) handleUpdateSurvey(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var patch models.SurveyPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, services.NewInvalidError(err.Error()))
		return
	}
	updated, err := rt.surveys.Update(r.PathValue("id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (rt *Router) handleDeleteSurvey(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	if err := rt.surveys.Delete(r.PathValue("id"), "admin"); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (rt *Router) handleReorder(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req struct {
		Order []string `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError(err.Error()))
		return
	}
	updated, err := rt.surveys.Reorder(r.PathValue("id"), req.Order)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (rt *Router) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers []models.Answer `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError(err.Error()))
		return
	}
	resp, err := rt.responses.Submit(r.PathValue("id"), req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"response_id": resp.ID})
}

func (rt *Router) handleListResponses(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	responses, err := rt.responses.List(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"responses": responses})
}

func (rt *Router) handleResults(w http.ResponseWriter, r *http.Request) {
	summary, err := rt.aggregates.Results(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	res, err := rt.exports.ExportCSV(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+res.Filename)
	_, _ = w.Write(res.Data)
}

func (rt *Router) handleShareLink(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	survey, err := rt.surveys.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	base := utils.SafeEnv("FORMPULSE_BASE_URL", "http://localhost:8080")
	writeJSON(w, http.StatusOK, map[string]string{"link": services.ShareLink(base, survey.ID)})
}

// handleCurrentSurvey returns the survey the author last opened, or null.
func (rt *Router) handleCurrentSurvey(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	survey, err := rt.repo.CurrentSurvey()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"survey": survey})
}

func (rt *Router) handleSetCurrentSurvey(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError(err.Error()))
		return
	}
	if err := rt.surveys.SetCurrent(req.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (rt *Router) handleVote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ResponseID string `json:"response_id"`
		QuestionID string `json:"question_id"`
		VoterKey   string `json:"voter_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError(err.Error()))
		return
	}
	outcome, err := rt.votes.Vote(req.ResponseID, req.QuestionID, req.VoterKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"outcome": string(outcome)})
}

func (rt *Router) handleAudit(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit": rt.repo.ListAudit()})
}
