package history

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flaketech/quotebuilder/internal/auth"
	"github.com/flaketech/quotebuilder/internal/platform/httpx"
	"github.com/flaketech/quotebuilder/internal/quotation"
	"github.com/flaketech/quotebuilder/internal/shared"
)

// Renderer regenerates a PDF from a reconstructed snapshot.
type Renderer interface {
	Render(ctx context.Context, snap quotation.Snapshot) ([]byte, error)
}

// Restorer loads a logged quotation back into the session editor.
type Restorer interface {
	Restore(ctx context.Context, sessionID string, details quotation.CompanyDetails, lines []quotation.LineItem) (*quotation.Document, error)
}

// Handler exposes the per-user quotation log over JSON.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	renderer Renderer
	restorer Restorer
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, renderer Renderer, restorer Restorer) *Handler {
	return &Handler{logger: logger, service: service, renderer: renderer, restorer: restorer}
}

// MountRoutes registers history routes. All of them require a session user.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/history", h.list)
	r.Post("/api/history/{hash}/pdf", h.regeneratePDF)
	r.Post("/api/history/{hash}/restore", h.restore)
	r.Delete("/api/history/{hash}", h.delete)
}

type entryResponse struct {
	Timestamp     string               `json:"timestamp"`
	CompanyName   string               `json:"company_name"`
	ContactPerson string               `json:"contact_person"`
	Total         float64              `json:"total"`
	Items         []quotation.LineItem `json:"items"`
	PDFFilename   string               `json:"pdf_filename"`
	Hash          string               `json:"hash"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ident, _ := auth.IdentityFromSession(shared.SessionFromContext(r.Context()))

	entries, err := h.service.ListForUser(r.Context(), ident.Email)
	if err != nil {
		h.logger.Error("list history failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			Timestamp:     e.Timestamp,
			CompanyName:   e.CompanyName,
			ContactPerson: e.ContactPerson,
			Total:         e.Total,
			Items:         e.Items,
			PDFFilename:   e.PDFFilename,
			Hash:          e.EffectiveHash(),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) regeneratePDF(w http.ResponseWriter, r *http.Request) {
	ident, _ := auth.IdentityFromSession(shared.SessionFromContext(r.Context()))
	hash := chi.URLParam(r, "hash")

	entry, err := h.service.Get(r.Context(), ident.Email, hash)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	pdf, err := h.renderer.Render(r.Context(), entry.Snapshot())
	if err != nil {
		h.logger.Error("regenerate pdf failed", slog.String("hash", hash), slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: pdf generation: %v", httpx.ErrUnavailable, err))
		return
	}

	filename := entry.PDFFilename
	if filename == "" {
		filename = entry.CompanyName + "_quotation.pdf"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// restore copies a logged quotation back into the session editor so it can
// be adjusted and re-finalized.
func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	ident, _ := auth.IdentityFromSession(sess)
	hash := chi.URLParam(r, "hash")

	entry, err := h.service.Get(r.Context(), ident.Email, hash)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	snap := entry.Snapshot()
	doc, err := h.restorer.Restore(r.Context(), sess.ID, snap.Details, snap.Lines)
	if err != nil {
		h.logger.Error("restore quotation failed", slog.String("hash", hash), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc.Snapshot())
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	ident, _ := auth.IdentityFromSession(shared.SessionFromContext(r.Context()))
	hash := chi.URLParam(r, "hash")

	if err := h.service.Delete(r.Context(), ident.Email, hash); err != nil {
		h.logger.Error("delete history entry failed", slog.String("hash", hash), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"deleted": hash})
}
