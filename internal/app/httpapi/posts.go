package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/chirp/internal/app/services/posts"
	"github.com/R3E-Network/chirp/internal/httputil"
	"github.com/R3E-Network/chirp/internal/middleware"
)

func (h *handler) listPosts(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := h.app.Posts.List(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) listUserPosts(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := h.app.Posts.ListByAuthor(r.Context(), mux.Vars(r)["userId"], req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) getPost(w http.ResponseWriter, r *http.Request) {
	item, err := h.app.Posts.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *handler) createPost(w http.ResponseWriter, r *http.Request) {
	var payload posts.CreateInput
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.app.Posts.Create(r.Context(), middleware.GetUserID(r.Context()), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) deletePost(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.app.Posts.Delete(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deleted)
}

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.app.Profile.GetByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}
