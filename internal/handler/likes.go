package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/veiledapp/veiled-backend/internal/service/likes"
)

type LikesHandler struct {
	svc *likes.Service
	log *slog.Logger
}

func NewLikesHandler(svc *likes.Service, log *slog.Logger) *LikesHandler {
	return &LikesHandler{svc: svc, log: log}
}

type expressRequest struct {
	RecipientID uint64 `json:"recipient_id"`
	Super       bool   `json:"super"`
}

type expressResponse struct {
	Matched       bool    `json:"matched"`
	MatchID       *uint64 `json:"match_id,omitempty"`
	ChatChannelID string  `json:"chat_channel_id,omitempty"`
}

// Express handles POST /api/groups/{groupID}/likes.
func (h *LikesHandler) Express(w http.ResponseWriter, r *http.Request) {
	actorID, err := viewer(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	groupID, err := pathID(r, "groupID")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	var req expressRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	res, err := h.svc.ExpressInterest(r.Context(), actorID, req.RecipientID, groupID, req.Super)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	resp := expressResponse{Matched: res.Matched}
	if res.Match != nil {
		resp.MatchID = &res.Match.ID
		resp.ChatChannelID = res.Match.ChatChannelID
	}
	writeJSON(w, http.StatusCreated, resp)
}

type withdrawResponse struct {
	Removed  bool `json:"removed"`
	Refunded bool `json:"refunded"`
}

// Withdraw handles DELETE /api/groups/{groupID}/likes/{recipientID}.
func (h *LikesHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actorID, err := viewer(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	groupID, err := pathID(r, "groupID")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	recipientID, err := pathID(r, "recipientID")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	removed, refunded, err := h.svc.WithdrawInterest(r.Context(), actorID, recipientID, groupID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawResponse{Removed: removed, Refunded: refunded})
}

// ListAdmirers handles GET /api/groups/{groupID}/admirers.
func (h *LikesHandler) ListAdmirers(w http.ResponseWriter, r *http.Request) {
	h.listAdmirers(w, r, h.svc.ListAdmirers)
}

// ListNewAdmirers handles GET /api/groups/{groupID}/admirers/new.
func (h *LikesHandler) ListNewAdmirers(w http.ResponseWriter, r *http.Request) {
	h.listAdmirers(w, r, h.svc.ListNewAdmirers)
}

func (h *LikesHandler) listAdmirers(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, groupID, userID uint64, token string, limit int) (likes.AdmirersPage, error),
) {
	userID, err := viewer(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	groupID, err := pathID(r, "groupID")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	token := r.URL.Query().Get("token")
	limit := queryInt(r, "limit")

	page, err := list(r.Context(), groupID, userID, token, limit)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type countResponse struct {
	Count int64 `json:"count"`
}

// Count handles GET /api/groups/{groupID}/admirers/count.
func (h *LikesHandler) Count(w http.ResponseWriter, r *http.Request) {
	userID, err := viewer(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	groupID, err := pathID(r, "groupID")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	n, err := h.svc.CountAdmirers(r.Context(), groupID, userID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func queryInt(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
