package record

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chengchang/ledger/internal/blob"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=record
type Repository interface {
	CreateRecord(ctx context.Context, rec *Record) error
	GetRecord(ctx context.Context, id uuid.UUID) (*Record, error)
	ListRecords(ctx context.Context, filter ListFilter) ([]*Record, error)
	UpdateRecord(ctx context.Context, rec *Record) error
	DeleteRecord(ctx context.Context, id uuid.UUID) error
}

// BlobStore is the attachment side of the write path: an opaque key/value
// binary store with public-URL retrieval.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyFromURL(url string) (string, bool)
}

type Service struct {
	repo  Repository
	blobs BlobStore
}

func NewService(repo Repository, blobs BlobStore) *Service {
	return &Service{repo: repo, blobs: blobs}
}

type CreateParams struct {
	Date     time.Time
	Type     Type
	Category string
	Amount   decimal.Decimal
	Notes    string
}

type ListFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  *string
}

// Create uploads the attachment (if any) and inserts the row. The upload
// happens first so the row never references a blob that does not exist; an
// upload failure aborts the whole operation before anything is written.
func (s *Service) Create(ctx context.Context, params CreateParams, att *Attachment) (*Record, error) {
	rec := &Record{
		Date:     params.Date,
		Type:     params.Type,
		Category: params.Category,
		Amount:   params.Amount,
		Notes:    params.Notes,
	}

	if att != nil {
		key := blob.NewKey(att.Filename)
		if err := s.blobs.Upload(ctx, key, att.Data, att.ContentType); err != nil {
			return nil, &StorageError{Op: "upload", Key: key, Err: err}
		}

		url := s.blobs.PublicURL(key)
		rec.ImageURL = &url
	}

	if err := s.repo.CreateRecord(ctx, rec); err != nil {
		if rec.ImageURL != nil {
			// Nothing references the blob yet, so it is left for an
			// out-of-band sweep rather than compensated synchronously.
			slog.WarnContext(ctx, "record insert failed after attachment upload, blob orphaned",
				"url", *rec.ImageURL)
		}

		return nil, err
	}

	return rec, nil
}

// Update replaces all fields of an existing record. The attachment ref is
// resolved by priority: new bytes win, then clearAttachment, then keep the
// current ref. The old blob is only deleted once the replacement ref is
// decided, so a failed upload never leaves the record pointing at a deleted
// blob.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params CreateParams, att *Attachment, clearAttachment bool) (*Record, error) {
	current, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ID:        id,
		Date:      params.Date,
		Type:      params.Type,
		Category:  params.Category,
		Amount:    params.Amount,
		Notes:     params.Notes,
		ImageURL:  current.ImageURL,
		CreatedAt: current.CreatedAt,
	}

	replacing := false

	switch {
	case att != nil:
		key := blob.NewKey(att.Filename)
		if err := s.blobs.Upload(ctx, key, att.Data, att.ContentType); err != nil {
			return nil, &StorageError{Op: "upload", Key: key, Err: err}
		}

		url := s.blobs.PublicURL(key)
		rec.ImageURL = &url
		replacing = true
	case clearAttachment:
		rec.ImageURL = nil
		replacing = true
	}

	if replacing && current.ImageURL != nil {
		s.deleteBlob(ctx, *current.ImageURL)
	}

	if err := s.repo.UpdateRecord(ctx, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

// Delete removes the row and cascades to the attachment blob. The blob
// delete is best-effort: an orphaned blob is strictly preferable to a
// record that cannot be deleted.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	current, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}

	if current.ImageURL != nil {
		s.deleteBlob(ctx, *current.ImageURL)
	}

	if err := s.repo.DeleteRecord(ctx, id); err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.repo.GetRecord(ctx, id)
}

// List returns records matching the filter, newest first. The
// all-categories sentinel is normalized to an absent filter here so the
// store never sees it.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	if filter.Category != nil {
		if c := *filter.Category; c == "" || c == CategoryAll {
			filter.Category = nil
		}
	}

	return s.repo.ListRecords(ctx, filter)
}

func (s *Service) deleteBlob(ctx context.Context, url string) {
	key, ok := s.blobs.KeyFromURL(url)
	if !ok {
		slog.WarnContext(ctx, "attachment url not issued by blob store, skipping delete", "url", url)
		return
	}

	if err := s.blobs.Delete(ctx, key); err != nil {
		serr := &StorageError{Op: "delete", Key: key, Err: err}
		slog.WarnContext(ctx, "failed to delete attachment blob", "key", key, "error", serr)
	}
}
