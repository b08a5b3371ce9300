package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/MiringGroup/ADCNavigator/internal/models"
)

// healthHandler is the liveness probe of the hosting platform.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeText(w, http.StatusOK, "OK")
}

func (s *Server) getLeadHandler(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("userID")
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		slog.Warn("Server.getLeadHandler: invalid user id", "userID", raw)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid user id"))
		return
	}

	rec, err := s.leads.GetLead(r.Context(), userID)
	if err != nil {
		slog.Error("Server.getLeadHandler: lookup failed", "userID", userID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load lead"))
		return
	}
	if rec == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error(models.ErrLeadNotFound.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(rec))
}

func (s *Server) listLeadsHandler(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	recs, err := s.leads.ListLeads(r.Context(), limit)
	if err != nil {
		slog.Error("Server.listLeadsHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list leads"))
		return
	}
	if recs == nil {
		recs = []models.LeadRecord{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(recs))
}

func (s *Server) unansweredHandler(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	qs, err := s.unanswered.ListUnanswered(r.Context(), limit)
	if err != nil {
		slog.Error("Server.unansweredHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list unanswered questions"))
		return
	}
	if qs == nil {
		qs = []models.UnansweredQuestion{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(qs))
}

// parseLimit reads ?limit=N. It writes a 400 and returns false when N is invalid.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return DefaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("limit must be a positive integer"))
		return 0, false
	}
	return min(n, MaxListLimit), true
}
