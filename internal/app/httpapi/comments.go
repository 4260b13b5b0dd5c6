package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/chirp/internal/app/services/comments"
	"github.com/R3E-Network/chirp/internal/httputil"
	"github.com/R3E-Network/chirp/internal/middleware"
)

func (h *handler) listComments(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := h.app.Comments.List(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) createComment(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Comment string `json:"comment"`
	}
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	in := comments.CreateInput{PostID: mux.Vars(r)["id"], Comment: payload.Comment}
	created, err := h.app.Comments.Create(r.Context(), middleware.GetUserID(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.app.Comments.Delete(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deleted)
}
