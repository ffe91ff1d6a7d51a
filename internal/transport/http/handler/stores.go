package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medmarket-api/internal/application/store"
	"github.com/medmarket-api/internal/domain"
)

// StoreHandler handles store endpoints. Writes are restricted to vendors by the router.
type StoreHandler struct {
	svc store.Service
}

func NewStoreHandler(svc store.Service) *StoreHandler { return &StoreHandler{svc: svc} }

func (h *StoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var in domain.StoreInput
	if !decodeJSON(w, r, &in) {
		return
	}
	st, err := h.svc.Create(r.Context(), claims.UserID(), in)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *StoreHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, cursor := parsePagination(r)
	stores, next, err := h.svc.List(r.Context(), limit, cursor)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope[domain.Store]{Data: nonNil(stores), NextCursor: next})
}

func (h *StoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *StoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var in domain.StoreInput
	if !decodeJSON(w, r, &in) {
		return
	}
	st, err := h.svc.Update(r.Context(), claims.UserID(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *StoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), claims.UserID(), chi.URLParam(r, "id")); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "store deleted"})
}
