package record

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/chengchang/ledger/internal/record"
)

// maxUploadSize caps the multipart form, attachment photo included.
const maxUploadSize = 10 << 20

type Handler struct {
	svc *record.Service
}

func NewHandler(svc *record.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	params, att, err := parseRecordForm(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.svc.Create(r.Context(), params, att)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(rec))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := record.ListFilter{}

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			writeError(w, &record.ValidationError{Field: "start_date", Reason: "expected YYYY-MM-DD"})
			return
		}

		filter.StartDate = &t
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			writeError(w, &record.ValidationError{Field: "end_date", Reason: "expected YYYY-MM-DD"})
			return
		}

		filter.EndDate = &t
	}

	if s := r.URL.Query().Get("category"); s != "" {
		c := norm.NFC.String(s)
		filter.Category = &c
	}

	recs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponseList(recs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(rec))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	params, att, err := parseRecordForm(r)
	if err != nil {
		writeError(w, err)
		return
	}

	// clear_image only applies when no replacement file was sent, matching
	// the form's semantics.
	clearImage := att == nil && r.FormValue("clear_image") == "true"

	rec, err := h.svc.Update(r.Context(), id, params, att, clearImage)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(rec))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if _, err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseRecordForm validates the multipart form shared by create and update.
// Every failure is reported before any store call happens.
func parseRecordForm(r *http.Request) (record.CreateParams, *record.Attachment, error) {
	var params record.CreateParams

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return params, nil, &record.ValidationError{Field: "form", Reason: err.Error()}
	}

	date, err := time.Parse(time.DateOnly, r.FormValue("date"))
	if err != nil {
		return params, nil, &record.ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}

	params.Date = date

	switch t := record.Type(r.FormValue("type")); t {
	case record.TypeIncome, record.TypeExpense:
		params.Type = t
	default:
		return params, nil, &record.ValidationError{Field: "type", Reason: "must be income or expense"}
	}

	// CJK form input arrives in whatever normalization form the client OS
	// produced; store NFC so category filters match byte-for-byte.
	params.Category = norm.NFC.String(strings.TrimSpace(r.FormValue("category")))
	if params.Category == "" {
		return params, nil, &record.ValidationError{Field: "category", Reason: "required"}
	}

	amount, err := decimal.NewFromString(r.FormValue("amount"))
	if err != nil {
		return params, nil, &record.ValidationError{Field: "amount", Reason: "not a number"}
	}

	if amount.IsNegative() {
		return params, nil, &record.ValidationError{Field: "amount", Reason: "must not be negative"}
	}

	params.Amount = amount

	params.Notes = norm.NFC.String(r.FormValue("notes"))

	att, err := parseAttachment(r)
	if err != nil {
		return params, nil, err
	}

	return params, att, nil
}

func parseAttachment(r *http.Request) (*record.Attachment, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}

		return nil, &record.ValidationError{Field: "image", Reason: err.Error()}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &record.ValidationError{Field: "image", Reason: err.Error()}
	}

	return &record.Attachment{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func writeError(w http.ResponseWriter, err error) {
	var verr *record.ValidationError

	var serr *record.StorageError

	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, record.ErrNotFound):
		http.Error(w, "record not found", http.StatusNotFound)
	case errors.As(err, &serr):
		http.Error(w, "attachment storage unavailable", http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
