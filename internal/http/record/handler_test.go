package record_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	recordHandler "github.com/chengchang/ledger/internal/http/record"
	"github.com/chengchang/ledger/internal/record"
)

func newTestRouter(t *testing.T) (http.Handler, *record.MockRepository, *record.MockBlobStore) {
	t.Helper()

	ctrl := gomock.NewController(t)

	repo := record.NewMockRepository(ctrl)
	blobs := record.NewMockBlobStore(ctrl)

	h := recordHandler.NewHandler(record.NewService(repo, blobs))

	router := chi.NewRouter()
	router.Route("/api/records", h.Routes)

	return router, repo, blobs
}

type filePart struct {
	field    string
	filename string
	content  []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *filePart) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}

	if file != nil {
		part, err := writer.CreateFormFile(file.field, file.filename)
		require.NoError(t, err)

		_, err = part.Write(file.content)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{
		"date":     "2024-01-05",
		"type":     "expense",
		"category": "維護管理費",
		"amount":   "1000",
		"notes":    "test",
	}
}

func TestHandler_Create(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	recordID := uuid.New()

	repo.EXPECT().
		CreateRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *record.Record) error {
			assert.Equal(t, record.TypeExpense, rec.Type)
			assert.Equal(t, "維護管理費", rec.Category)
			assert.True(t, rec.Amount.Equal(decimal.NewFromInt(1000)))
			assert.Nil(t, rec.ImageURL)

			rec.ID = recordID
			rec.CreatedAt = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

			return nil
		})

	body, contentType := multipartBody(t, validFields(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/records", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	assert.Equal(t, recordID.String(), resp["id"])
	assert.Equal(t, "2024-01-05", resp["date"])
	assert.Equal(t, "1000", resp["amount"])
	assert.NotContains(t, resp, "image_url")
}

func TestHandler_Create_WithImage(t *testing.T) {
	router, repo, blobs := newTestRouter(t)

	imageURL := ""

	blobs.EXPECT().
		Upload(gomock.Any(), gomock.Any(), []byte("image bytes"), gomock.Any()).
		Return(nil)
	blobs.EXPECT().
		PublicURL(gomock.Any()).
		DoAndReturn(func(key string) string {
			imageURL = "https://blobs.example.com/" + key
			return imageURL
		})
	repo.EXPECT().
		CreateRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *record.Record) error {
			rec.ID = uuid.New()
			rec.CreatedAt = time.Now()
			return nil
		})

	body, contentType := multipartBody(t, validFields(), &filePart{
		field:    "image",
		filename: "receipt.jpg",
		content:  []byte("image bytes"),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/records", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	assert.Equal(t, imageURL, resp["image_url"])
}

func TestHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
	}{
		{name: "BadDate", field: "date", value: "05/01/2024"},
		{name: "BadType", field: "type", value: "收入"},
		{name: "MissingCategory", field: "category", value: ""},
		{name: "BadAmount", field: "amount", value: "abc"},
		{name: "NegativeAmount", field: "amount", value: "-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No mock expectations: validation failures reach no store.
			router, _, _ := newTestRouter(t)

			fields := validFields()
			fields[tt.field] = tt.value

			body, contentType := multipartBody(t, fields, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/records", body)
			req.Header.Set("Content-Type", contentType)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestHandler_Create_UploadFailure(t *testing.T) {
	router, _, blobs := newTestRouter(t)

	blobs.EXPECT().
		Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(assert.AnError)

	body, contentType := multipartBody(t, validFields(), &filePart{
		field:    "image",
		filename: "receipt.jpg",
		content:  []byte("image bytes"),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/records", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestHandler_List(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	category := "電梯保養費"

	newer := &record.Record{
		ID:        uuid.New(),
		Date:      time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		Type:      record.TypeIncome,
		Category:  category,
		Amount:    decimal.NewFromInt(3000),
		CreatedAt: time.Now(),
	}
	older := &record.Record{
		ID:        uuid.New(),
		Date:      time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Type:      record.TypeExpense,
		Category:  category,
		Amount:    decimal.NewFromInt(1500),
		CreatedAt: time.Now(),
	}

	repo.EXPECT().
		ListRecords(gomock.Any(), record.ListFilter{StartDate: &start, EndDate: &end, Category: &category}).
		Return([]*record.Record{newer, older}, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/api/records?start_date=2024-01-01&end_date=2024-01-31&category="+category, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	require.Len(t, resp, 2)
	assert.Equal(t, newer.ID.String(), resp[0]["id"])
	assert.Equal(t, older.ID.String(), resp[1]["id"])
}

func TestHandler_List_AllCategoriesSentinel(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	repo.EXPECT().
		ListRecords(gomock.Any(), record.ListFilter{}).
		Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/records?category="+record.CategoryAll, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandler_Get_NotFound(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	id := uuid.New()
	repo.EXPECT().GetRecord(gomock.Any(), id).Return(nil, record.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/records/"+id.String(), nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_Update_ClearImage(t *testing.T) {
	router, repo, blobs := newTestRouter(t)

	id := uuid.New()
	url := "https://blobs.example.com/key.jpg"

	repo.EXPECT().GetRecord(gomock.Any(), id).
		Return(&record.Record{ID: id, ImageURL: &url, CreatedAt: time.Now()}, nil)
	blobs.EXPECT().KeyFromURL(url).Return("key.jpg", true)
	blobs.EXPECT().Delete(gomock.Any(), "key.jpg").Return(nil)
	repo.EXPECT().
		UpdateRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *record.Record) error {
			assert.Nil(t, rec.ImageURL)
			return nil
		})

	fields := validFields()
	fields["clear_image"] = "true"

	body, contentType := multipartBody(t, fields, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/records/"+id.String(), body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	assert.NotContains(t, resp, "image_url")
}

func TestHandler_Delete(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	id := uuid.New()
	repo.EXPECT().GetRecord(gomock.Any(), id).Return(&record.Record{ID: id}, nil)
	repo.EXPECT().DeleteRecord(gomock.Any(), id).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/records/"+id.String(), nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestHandler_Delete_InvalidID(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/records/not-a-uuid", nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
