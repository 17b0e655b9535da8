package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/veiledapp/veiled-backend/internal/anonymity"
	"github.com/veiledapp/veiled-backend/internal/service/identity"
	"github.com/veiledapp/veiled-backend/internal/service/match"
)

type MatchesHandler struct {
	svc      *match.Service
	identity *identity.Service
	log      *slog.Logger
}

func NewMatchesHandler(svc *match.Service, identitySvc *identity.Service, log *slog.Logger) *MatchesHandler {
	return &MatchesHandler{svc: svc, identity: identitySvc, log: log}
}

type matchView struct {
	MatchID       uint64                    `json:"match_id"`
	GroupID       uint64                    `json:"group_id"`
	ChatChannelID string                    `json:"chat_channel_id"`
	MatchedAt     time.Time                 `json:"matched_at"`
	Counterpart   anonymity.DisplayIdentity `json:"counterpart"`
}

type matchesResponse struct {
	Matches []matchView `json:"matches"`
}

// List handles GET /api/matches. Counterparts come back resolved: an
// active match means the real name shows.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := viewer(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	active, err := h.svc.ListActive(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	resp := matchesResponse{Matches: make([]matchView, 0, len(active))}
	for _, m := range active {
		counterpart, err := h.identity.ResolveMatchedCounterpart(r.Context(), m, userID)
		if err != nil {
			writeError(w, h.log, r, err)
			return
		}
		resp.Matches = append(resp.Matches, matchView{
			MatchID:       m.ID,
			GroupID:       m.GroupID,
			ChatChannelID: m.ChatChannelID,
			MatchedAt:     m.CreatedAt,
			Counterpart:   counterpart,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type unmatchRequest struct {
	Reason string `json:"reason"`
}

// Unmatch handles DELETE /api/matches/{matchID}. The body is optional;
// an absent one reads as no reason given.
func (h *MatchesHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	userID, err := viewer(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	matchID, err := pathID(r, "matchID")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	var req unmatchRequest
	if r.ContentLength > 0 {
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, h.log, r, err)
			return
		}
	}

	if _, err := h.svc.Unmatch(r.Context(), matchID, userID, req.Reason); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
