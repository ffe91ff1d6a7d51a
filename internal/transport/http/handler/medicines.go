package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medmarket-api/internal/application/medicine"
	"github.com/medmarket-api/internal/domain"
)

const maxImageBytes = 5 << 20

// MedicineHandler handles medicine endpoints.
type MedicineHandler struct {
	svc medicine.Service
}

func NewMedicineHandler(svc medicine.Service) *MedicineHandler { return &MedicineHandler{svc: svc} }

// Create adds a medicine, or restocks an existing one with the same name
// in the same store. A restock answers 200 rather than 201.
func (h *MedicineHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.CreateMedicineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, created, err := h.svc.Create(r.Context(), claims.UserID(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, m)
}

func (h *MedicineHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, cursor := parsePagination(r)
	items, next, err := h.svc.List(r.Context(), limit, cursor)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope[domain.Medicine]{Data: nonNil(items), NextCursor: next})
}

func (h *MedicineHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MedicineHandler) ListByVendor(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListByVendor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListEnvelope[domain.Medicine]{Data: nonNil(items)})
}

func (h *MedicineHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.UpdateMedicineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.Update(r.Context(), claims.UserID(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MedicineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), claims.UserID(), chi.URLParam(r, "id")); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "medicine deleted"})
}

// SetImage stores the multipart "file" field as the medicine's image.
func (h *MedicineHandler) SetImage(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<10))
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	m, err := h.svc.SetImage(r.Context(), claims.UserID(), chi.URLParam(r, "id"), header.Filename, file)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
