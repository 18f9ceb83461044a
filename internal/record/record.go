package record

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type represents the direction of a ledger record (income or expense).
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

// CategoryAll is the sentinel the management UI sends when no category
// filter is selected. It is stripped before querying, never matched
// literally against the category column.
const CategoryAll = "所有項目"

// Record represents a dated ledger entry with an optional image attachment.
type Record struct {
	ID        uuid.UUID
	Date      time.Time
	Type      Type
	Category  string
	Amount    decimal.Decimal
	Notes     string
	ImageURL  *string // public URL of the attachment blob, nil when absent
	CreatedAt time.Time
}

// Attachment carries an uploaded file through the write path. The filename
// is only used to preserve the extension in the generated object key.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}
