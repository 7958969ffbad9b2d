package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mminspector/inspector/internal/chat"
)

func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	mediaID := r.PathValue("id")

	var question string
	if wantsJSON(r) {
		var request struct {
			Question string `json:"question"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		question = request.Question
	} else {
		question = r.FormValue("question")
	}

	session, ok := h.currentSession(mediaID)
	if !ok {
		session = h.selectMedia(r.Context(), mediaID)
	}

	reply, err := session.Send(r.Context(), question)
	switch {
	case errors.Is(err, chat.ErrBlankQuestion):
		h.writeError(w, "Question must not be blank", http.StatusBadRequest)
		return
	case errors.Is(err, chat.ErrSendInFlight):
		h.writeError(w, err.Error(), http.StatusConflict)
		return
	}
	// other failures already put the fallback answer in the transcript

	if wantsJSON(r) {
		h.writeJSON(w, reply)
		return
	}
	http.Redirect(w, r, "/media/"+mediaID+"#latest", http.StatusSeeOther)
}
