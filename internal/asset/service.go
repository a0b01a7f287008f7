package asset

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"time"

	"landregistry/internal/asset/blob"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/platform/sentinel"
)

// MaxDocumentBytes bounds a single uploaded document.
const MaxDocumentBytes = 16 << 20

// Service stores documents behind the blob boundary and hands out
// content-addressed references. Identical uploads dedupe to one reference.
type Service struct {
	store  Store
	blobs  blob.Store
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService constructs an asset Service.
func NewService(store Store, blobs blob.Store, opts ...Option) *Service {
	s := &Service{store: store, blobs: blobs}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store reads the document, computes its content hash, writes the bytes to
// the blob backend and records the reference. Empty documents and blob
// failures surface as invalid input; no reference is persisted on failure.
func (s *Service) Store(ctx context.Context, r io.Reader, contentType string) (*Reference, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentBytes+1))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read document")
	}
	if len(data) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "document is empty")
	}
	if len(data) > MaxDocumentBytes {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "document exceeds size limit")
	}

	sum := sha256.Sum256(data)
	referenceID := hex.EncodeToString(sum[:])

	info, err := s.blobs.Put(ctx, referenceID, bytes.NewReader(data), contentType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "blob store rejected document")
	}

	ref := &Reference{
		ReferenceID: referenceID,
		SizeBytes:   info.Size,
		MimeClass:   MimeClassOf(contentType),
		CreatedAt:   time.Now(),
	}
	if err := s.store.Save(ctx, ref); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save asset reference")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "asset stored",
			"reference_id", referenceID,
			"size_bytes", ref.SizeBytes,
			"mime_class", ref.MimeClass,
		)
	}
	return ref, nil
}

// Resolve returns the reference for a known content hash.
func (s *Service) Resolve(ctx context.Context, referenceID string) (*Reference, error) {
	if referenceID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "asset reference id is required")
	}
	ref, err := s.store.FindByID(ctx, referenceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset reference not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve asset reference")
	}
	return ref, nil
}
