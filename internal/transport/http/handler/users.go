package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medmarket-api/internal/application/user"
	"github.com/medmarket-api/internal/domain"
)

// UserHandler handles user endpoints. All routes require authentication.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Get(r.Context(), claims.UserID())
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, cursor := parsePagination(r)
	users, next, err := h.svc.List(r.Context(), limit, cursor)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope[domain.User]{Data: nonNil(users), NextCursor: next})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.Update(r.Context(), claims.UserID(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if err := h.svc.Disable(r.Context(), claims.UserID(), chi.URLParam(r, "id")); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "user disabled"})
}
