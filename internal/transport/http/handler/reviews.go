package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medmarket-api/internal/application/review"
	"github.com/medmarket-api/internal/domain"
)

type ReviewHandler struct {
	svc review.Service
}

func NewReviewHandler(svc review.Service) *ReviewHandler { return &ReviewHandler{svc: svc} }

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.CreateReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rv, err := h.svc.Create(r.Context(), claims.UserID(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

func (h *ReviewHandler) ListByMedicine(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListByMedicine(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListEnvelope[domain.Review]{Data: nonNil(items)})
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), claims.UserID(), chi.URLParam(r, "id")); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "review deleted"})
}
