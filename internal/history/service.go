package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flaketech/quotebuilder/internal/platform/httpx"
	"github.com/flaketech/quotebuilder/internal/quotation"
)

// Service applies the per-user view over the shared log.
type Service struct {
	logger *slog.Logger
	repo   Repository
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo Repository) *Service {
	return &Service{logger: logger, repo: repo}
}

// Record appends a finalized quotation to the log.
func (s *Service) Record(ctx context.Context, userEmail string, snap quotation.Snapshot, pdfFilename string, now time.Time) error {
	return s.repo.Append(ctx, NewEntry(userEmail, snap, pdfFilename, now))
}

// ListForUser returns the user's entries, newest first. Email matching is
// case-insensitive. Rows whose items column fails to decode are skipped and
// logged rather than failing the whole listing.
func (s *Service) ListForUser(ctx context.Context, userEmail string) ([]Entry, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, rec := range records {
		if !strings.EqualFold(rec.UserEmail, userEmail) {
			continue
		}
		if rec.ItemsErr != nil {
			s.logger.Warn("skipping corrupt history row",
				slog.String("company", rec.CompanyName),
				slog.String("timestamp", rec.Timestamp),
				slog.Any("error", rec.ItemsErr))
			continue
		}
		entries = append(entries, rec.Entry)
	}

	// Newest first; rows are appended chronologically.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Get returns the user's entry with the given effective hash.
func (s *Service) Get(ctx context.Context, userEmail, hash string) (Entry, error) {
	entries, err := s.ListForUser(ctx, userEmail)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.EffectiveHash() == hash {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: quotation %s", httpx.ErrNotFound, hash)
}

// Delete removes the user's entry with the given effective hash. Ownership is
// checked before touching the shared log.
func (s *Service) Delete(ctx context.Context, userEmail, hash string) error {
	if _, err := s.Get(ctx, userEmail, hash); err != nil {
		return err
	}
	return s.repo.DeleteByHash(ctx, hash)
}
