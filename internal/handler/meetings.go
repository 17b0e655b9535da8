package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/veiledapp/veiled-backend/internal/features"
	"github.com/veiledapp/veiled-backend/internal/service/meeting"
)

type MeetingsHandler struct {
	svc *meeting.Service
	log *slog.Logger
}

func NewMeetingsHandler(svc *meeting.Service, log *slog.Logger) *MeetingsHandler {
	return &MeetingsHandler{svc: svc, log: log}
}

type createMeetingRequest struct {
	Title      string          `json:"title"`
	TTLMinutes int             `json:"ttl_minutes"`
	Categories []features.Kind `json:"categories"`
}

type meetingResponse struct {
	MeetingID  uint64          `json:"meeting_id"`
	Code       string          `json:"code"`
	Title      string          `json:"title,omitempty"`
	Categories []features.Kind `json:"categories,omitempty"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// Create handles POST /api/meetings.
func (h *MeetingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	hostID, err := viewer(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	var req createMeetingRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	m, err := h.svc.CreateMeeting(r.Context(), hostID, req.Title,
		time.Duration(req.TTLMinutes)*time.Minute, req.Categories)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, meetingResponse{
		MeetingID:  m.ID,
		Code:       m.Code,
		Title:      m.Title,
		Categories: m.FeatureCategories,
		ExpiresAt:  m.ExpiresAt,
	})
}

type joinMeetingRequest struct {
	Code       string              `json:"code"`
	Nickname   string              `json:"nickname"`
	Attributes features.Attributes `json:"attributes"`
}

type joinMeetingResponse struct {
	ParticipantID uint64          `json:"participant_id"`
	Nickname      string          `json:"nickname"`
	Meeting       meetingResponse `json:"meeting"`
}

// Join handles POST /api/meetings/join.
func (h *MeetingsHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, err := viewer(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	var req joinMeetingRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	participant, m, err := h.svc.JoinMeeting(r.Context(), req.Code, userID, req.Nickname, req.Attributes)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, joinMeetingResponse{
		ParticipantID: participant.ID,
		Nickname:      participant.Nickname,
		Meeting: meetingResponse{
			MeetingID:  m.ID,
			Code:       m.Code,
			Title:      m.Title,
			Categories: m.FeatureCategories,
			ExpiresAt:  m.ExpiresAt,
		},
	})
}

// Leave handles DELETE /api/meetings/{meetingID}/participation.
func (h *MeetingsHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, err := viewer(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	meetingID, err := pathID(r, "meetingID")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	if err := h.svc.LeaveMeeting(r.Context(), meetingID, userID); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type declareInterestRequest struct {
	Criteria features.Criteria `json:"criteria"`
}

type declareInterestResponse struct {
	NewMatches int `json:"new_matches"`
}

// DeclareInterest handles PUT /api/meetings/{meetingID}/interest.
func (h *MeetingsHandler) DeclareInterest(w http.ResponseWriter, r *http.Request) {
	userID, err := viewer(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	meetingID, err := pathID(r, "meetingID")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	var req declareInterestRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	created, err := h.svc.DeclareInterest(r.Context(), meetingID, userID, req.Criteria)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, declareInterestResponse{NewMatches: created})
}

type instantMatchesResponse struct {
	Matches []meeting.MatchView `json:"matches"`
}

// ListMatches handles GET /api/meetings/{meetingID}/matches.
func (h *MeetingsHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	userID, err := viewer(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	meetingID, err := pathID(r, "meetingID")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	views, err := h.svc.ListInstantMatches(r.Context(), meetingID, userID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, instantMatchesResponse{Matches: views})
}
