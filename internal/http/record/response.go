package record

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chengchang/ledger/internal/record"
)

type recordResponse struct {
	ID        uuid.UUID       `json:"id"`
	Date      string          `json:"date"`
	Type      record.Type     `json:"type"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes,omitempty"`
	ImageURL  *string         `json:"image_url,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func toResponse(rec *record.Record) recordResponse {
	return recordResponse{
		ID:        rec.ID,
		Date:      rec.Date.Format(time.DateOnly),
		Type:      rec.Type,
		Category:  rec.Category,
		Amount:    rec.Amount,
		Notes:     rec.Notes,
		ImageURL:  rec.ImageURL,
		CreatedAt: rec.CreatedAt,
	}
}

func toResponseList(recs []*record.Record) []recordResponse {
	resp := make([]recordResponse, len(recs))
	for i, rec := range recs {
		resp[i] = toResponse(rec)
	}

	return resp
}
