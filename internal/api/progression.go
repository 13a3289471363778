package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/blank-marketing/blank/internal/domain"
)

// ─── Progression API (/api/progression/*) ───────────────────────────────────
// Expected refusals (insufficient XP, duplicate mission, no credits) are
// answered with {"ok": false, "reason": ...}; only bad requests are errors.

// Refusal reasons.
const (
	ReasonInsufficientXP   = "insufficient_xp"
	ReasonAlreadyCompleted = "already_completed"
	ReasonNoCredits        = "no_credits"
)

type actionResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
	View   any    `json:"view,omitempty"`
}

// --- GET /api/progression ---

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.View())
}

// --- DELETE /api/progression ---

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.store.Reset()
	s.log.Info("progression reset", zap.String("key", s.store.Key()))
	writeJSON(w, http.StatusOK, actionResponse{OK: true, View: s.store.View()})
}

// --- GET /api/progression/rank ---

type rankResponse struct {
	Current      domain.Rank  `json:"current"`
	Next         *domain.Rank `json:"next"`
	Progress     float64      `json:"progress"`
	TotalXP      int64        `json:"totalXP"`
	XPToNextRank int64        `json:"xpToNextRank"`
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	v := s.store.View()
	writeJSON(w, http.StatusOK, rankResponse{
		Current:      v.Rank,
		Next:         v.NextRank,
		Progress:     v.RankProgress,
		TotalXP:      v.State.TotalXP,
		XPToNextRank: v.XPToNextRank,
	})
}

// --- GET /api/progression/missions ---

func (s *Server) handleMissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"missions": s.store.Missions(),
	})
}

// --- GET /api/progression/achievements ---

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"achievements": s.store.Achievements()})
}

// --- GET /api/progression/achievements/{id} ---

func (s *Server) handleAchievement(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.Achievement(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// --- GET /api/progression/redemptions?limit=n ---

func (s *Server) handleRedemptions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"redemptions": s.store.Redemptions(limit),
	})
}

// --- POST /api/progression/login ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.RecordLogin())
}

// --- POST /api/progression/xp ---

type awardRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) handleAwardXP(w http.ResponseWriter, r *http.Request) {
	var req awardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.store.AwardXP(req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- POST /api/progression/missions/{id}/complete ---

func (s *Server) handleCompleteMission(w http.ResponseWriter, r *http.Request) {
	ok, err := s.store.CompleteMission(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := actionResponse{OK: ok, View: s.store.View()}
	if !ok {
		resp.Reason = ReasonAlreadyCompleted
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- POST /api/progression/rewards/{id}/purchase ---

func (s *Server) handlePurchaseReward(w http.ResponseWriter, r *http.Request) {
	ok, err := s.store.PurchaseReward(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusConflict, actionResponse{Reason: ReasonInsufficientXP})
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{OK: true, View: s.store.View()})
}

// --- POST /api/progression/bonus-analysis/consume ---

func (s *Server) handleConsumeBonus(w http.ResponseWriter, r *http.Request) {
	if !s.store.ConsumeBonusAnalysis() {
		writeJSON(w, http.StatusConflict, actionResponse{Reason: ReasonNoCredits})
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{OK: true, View: s.store.View()})
}

// --- GET /api/catalog ---

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Catalog())
}

// writeDomainError maps store errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownMission),
		errors.Is(err, domain.ErrUnknownReward),
		errors.Is(err, domain.ErrUnknownAchievement):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidXPAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
