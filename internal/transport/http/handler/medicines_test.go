package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medmarket-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMedicineSvc struct{ mock.Mock }

func (m *mockMedicineSvc) Create(ctx context.Context, vendorID string, req domain.CreateMedicineRequest) (*domain.Medicine, bool, error) {
	args := m.Called(ctx, vendorID, req)
	med, _ := args.Get(0).(*domain.Medicine)
	return med, args.Bool(1), args.Error(2)
}

func (m *mockMedicineSvc) Get(ctx context.Context, medicineID string) (*domain.Medicine, error) {
	args := m.Called(ctx, medicineID)
	med, _ := args.Get(0).(*domain.Medicine)
	return med, args.Error(1)
}

func (m *mockMedicineSvc) List(ctx context.Context, limit int, cursor string) ([]domain.Medicine, string, error) {
	args := m.Called(ctx, limit, cursor)
	return args.Get(0).([]domain.Medicine), args.String(1), args.Error(2)
}

func (m *mockMedicineSvc) ListByVendor(ctx context.Context, vendorID string) ([]domain.Medicine, error) {
	args := m.Called(ctx, vendorID)
	return args.Get(0).([]domain.Medicine), args.Error(1)
}

func (m *mockMedicineSvc) Update(ctx context.Context, vendorID, medicineID string, req domain.UpdateMedicineRequest) (*domain.Medicine, error) {
	args := m.Called(ctx, vendorID, medicineID, req)
	med, _ := args.Get(0).(*domain.Medicine)
	return med, args.Error(1)
}

func (m *mockMedicineSvc) Delete(ctx context.Context, vendorID, medicineID string) error {
	return m.Called(ctx, vendorID, medicineID).Error(0)
}

func (m *mockMedicineSvc) SetImage(ctx context.Context, vendorID, medicineID, filename string, r io.Reader) (*domain.Medicine, error) {
	data, _ := io.ReadAll(r)
	args := m.Called(ctx, vendorID, medicineID, filename, string(data))
	med, _ := args.Get(0).(*domain.Medicine)
	return med, args.Error(1)
}

func TestMedicineCreate_NewIs201(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockMedicineSvc{}
	req := domain.CreateMedicineRequest{StoreID: "s1", Name: "Aspirin", Price: 3.5, Stock: 10}
	svc.On("Create", mock.Anything, "v1", req).Return(&domain.Medicine{MedicineID: "m1", Name: "Aspirin"}, true, nil)
	h := NewMedicineHandler(svc)
	body, _ := json.Marshal(req)

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Create), rr, bearerReq(t, p, http.MethodPost, "/v1/medicines", "v1", domain.RoleVendor, body))

	assert.Equal(t, http.StatusCreated, rr.Code)
	svc.AssertExpectations(t)
}

func TestMedicineCreate_RestockIs200(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockMedicineSvc{}
	svc.On("Create", mock.Anything, "v1", mock.Anything).Return(&domain.Medicine{MedicineID: "m1", Stock: 20}, false, nil)
	h := NewMedicineHandler(svc)
	body, _ := json.Marshal(domain.CreateMedicineRequest{StoreID: "s1", Name: "Aspirin", Stock: 10})

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Create), rr, bearerReq(t, p, http.MethodPost, "/v1/medicines", "v1", domain.RoleVendor, body))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMedicineCreate_ForeignStoreForbidden(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockMedicineSvc{}
	svc.On("Create", mock.Anything, "v2", mock.Anything).Return(nil, false, domain.ErrForbidden)
	h := NewMedicineHandler(svc)
	body, _ := json.Marshal(domain.CreateMedicineRequest{StoreID: "s1", Name: "Aspirin"})

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Create), rr, bearerReq(t, p, http.MethodPost, "/v1/medicines", "v2", domain.RoleVendor, body))

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestMedicineListByVendor(t *testing.T) {
	svc := &mockMedicineSvc{}
	svc.On("ListByVendor", mock.Anything, "v1").Return([]domain.Medicine{{MedicineID: "m1"}, {MedicineID: "m2"}}, nil)
	h := NewMedicineHandler(svc)

	rr := httptest.NewRecorder()
	h.ListByVendor(rr, withChiID(httptest.NewRequest(http.MethodGet, "/v1/vendors/v1/medicines", nil), "v1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp ListEnvelope[domain.Medicine]
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Data, 2)
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestMedicineSetImage_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockMedicineSvc{}
	loc := "s3://bucket/medicines/m1/x.png"
	svc.On("SetImage", mock.Anything, "v1", "m1", "pill.png", "PNGDATA").
		Return(&domain.Medicine{MedicineID: "m1", ImageURL: &loc}, nil)
	h := NewMedicineHandler(svc)

	body, ct := multipartBody(t, "file", "pill.png", []byte("PNGDATA"))
	r := withChiID(bearerReq(t, p, http.MethodPut, "/v1/medicines/m1/image", "v1", domain.RoleVendor, body.Bytes()), "m1")
	r.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.SetImage), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp domain.Medicine
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotNil(t, resp.ImageURL)
	assert.Equal(t, loc, *resp.ImageURL)
	svc.AssertExpectations(t)
}

func TestMedicineSetImage_MissingFileField(t *testing.T) {
	p := newTestJWTProvider(t)
	h := NewMedicineHandler(&mockMedicineSvc{})

	body, ct := multipartBody(t, "other", "pill.png", []byte("PNGDATA"))
	r := withChiID(bearerReq(t, p, http.MethodPut, "/v1/medicines/m1/image", "v1", domain.RoleVendor, body.Bytes()), "m1")
	r.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.SetImage), rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMedicineSetImage_NotMultipart(t *testing.T) {
	p := newTestJWTProvider(t)
	h := NewMedicineHandler(&mockMedicineSvc{})

	r := withChiID(bearerReq(t, p, http.MethodPut, "/v1/medicines/m1/image", "v1", domain.RoleVendor, []byte(`{}`)), "m1")
	r.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.SetImage), rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
