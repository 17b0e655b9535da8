package handler

import (
	"log/slog"
	"net/http"

	"github.com/veiledapp/veiled-backend/internal/service/identity"
)

type IdentityHandler struct {
	svc *identity.Service
	log *slog.Logger
}

func NewIdentityHandler(svc *identity.Service, log *slog.Logger) *IdentityHandler {
	return &IdentityHandler{svc: svc, log: log}
}

// Get handles GET /api/users/{userID}. What comes back depends on who
// is asking; the veil only lifts for the subject themselves and for
// viewers holding an active match with them.
func (h *IdentityHandler) Get(w http.ResponseWriter, r *http.Request) {
	viewerID, err := viewer(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	subjectID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	display, err := h.svc.ResolveIdentity(r.Context(), subjectID, viewerID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, display)
}
