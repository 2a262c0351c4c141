package quotation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/flaketech/quotebuilder/internal/auth"
	"github.com/flaketech/quotebuilder/internal/platform/httpx"
	"github.com/flaketech/quotebuilder/internal/shared"
)

// Renderer produces the PDF for a snapshot.
type Renderer interface {
	Render(ctx context.Context, snap Snapshot) ([]byte, error)
}

// HistoryRecorder appends a finalized quotation to the log.
type HistoryRecorder interface {
	Record(ctx context.Context, userEmail string, snap Snapshot, pdfFilename string, now time.Time) error
}

// CRMEnqueuer queues the best-effort CRM export.
type CRMEnqueuer interface {
	EnqueueCRMExport(ctx context.Context, snap Snapshot, userEmail string) error
}

// Authenticator verifies the escalation approver's credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (auth.User, error)
}

// RenderObserver records render outcomes.
type RenderObserver interface {
	ObserveRender(outcome string)
}

// Handler exposes the quotation builder over JSON.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	renderer      Renderer
	history       HistoryRecorder
	crm           CRMEnqueuer
	authenticator Authenticator
	observer      RenderObserver
	filename      func(companyName string) string
	validator     *validator.Validate
}

// HandlerConfig collects the handler's collaborators. CRM may be nil when no
// CRM is configured; Observer may be nil in tests.
type HandlerConfig struct {
	Logger        *slog.Logger
	Service       *Service
	Renderer      Renderer
	History       HistoryRecorder
	CRM           CRMEnqueuer
	Authenticator Authenticator
	Observer      RenderObserver
	Filename      func(companyName string) string
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		logger:        cfg.Logger,
		service:       cfg.Service,
		renderer:      cfg.Renderer,
		history:       cfg.History,
		crm:           cfg.CRM,
		authenticator: cfg.Authenticator,
		observer:      cfg.Observer,
		filename:      cfg.Filename,
		validator:     validator.New(),
	}
}

// MountRoutes registers quotation routes. All of them require a session user.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/quotation", h.current)
	r.Post("/api/quotation/details", h.submitDetails)
	r.Post("/api/quotation/lines", h.setLines)
	r.Post("/api/quotation/escalation", h.approveEscalation)
	r.Post("/api/quotation/new", h.startNew)
	r.Post("/api/quotation/finalize", h.finalize)
}

type documentResponse struct {
	Details          CompanyDetails `json:"details"`
	DetailsSubmitted bool           `json:"details_submitted"`
	Snapshot         Snapshot       `json:"snapshot"`
}

func respondDocument(w http.ResponseWriter, doc *Document) {
	httpx.JSON(w, http.StatusOK, documentResponse{
		Details:          doc.Details,
		DetailsSubmitted: doc.DetailsSubmitted,
		Snapshot:         doc.Snapshot(),
	})
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	snap, err := h.service.CurrentSnapshot(r.Context(), sess.ID)
	if err != nil {
		h.logger.Error("load quotation failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) submitDetails(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	ident, _ := auth.IdentityFromSession(sess)

	var in DetailsInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	doc, err := h.service.SubmitDetails(r.Context(), sess.ID, in, ident.Name, ident.Email)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	respondDocument(w, doc)
}

func (h *Handler) setLines(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())

	var in LinesInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	doc, err := h.service.SetLines(r.Context(), sess.ID, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	respondDocument(w, doc)
}

type escalationRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// approveEscalation lets a manager override the overall-discount cap from a
// buyer's session by entering their own credentials.
func (h *Handler) approveEscalation(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())

	var req escalationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	approver, err := h.authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("escalation approval rejected", slog.String("email", req.Email))
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid approver credentials")
		return
	}
	if approver.Role != auth.RoleAdmin {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "approver is not an admin")
		return
	}

	doc, err := h.service.ApproveEscalation(r.Context(), sess.ID, approver.Email)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("escalation approved",
		slog.String("approver", approver.Email),
		slog.Float64("discount", doc.OverallDiscountPercent))
	respondDocument(w, doc)
}

func (h *Handler) startNew(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	doc, err := h.service.StartNew(r.Context(), sess.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	respondDocument(w, doc)
}

// finalize renders the PDF, appends the history record, queues the CRM
// export and streams the document back. History append failure aborts; CRM
// enqueue failure only warns.
func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	ident, _ := auth.IdentityFromSession(sess)

	snap, err := h.service.CurrentSnapshot(r.Context(), sess.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if snap.Details.CompanyName == "" {
		httpx.RespondError(w, fmt.Errorf("%w: company details not submitted", httpx.ErrValidation))
		return
	}
	if len(snap.Lines) == 0 {
		httpx.RespondError(w, fmt.Errorf("%w: quotation has no line items", httpx.ErrValidation))
		return
	}

	pdf, err := h.renderer.Render(r.Context(), snap)
	if err != nil {
		h.observeRender("error")
		h.logger.Error("render failed", slog.String("company", snap.Details.CompanyName), slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: pdf generation: %v", httpx.ErrUnavailable, err))
		return
	}
	h.observeRender("success")

	filename := h.filename(snap.Details.CompanyName)
	if err := h.history.Record(r.Context(), ident.Email, snap, filename, time.Now()); err != nil {
		h.logger.Error("history append failed", slog.String("company", snap.Details.CompanyName), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	if h.crm != nil {
		if err := h.crm.EnqueueCRMExport(r.Context(), snap, ident.Email); err != nil {
			h.logger.Warn("crm export enqueue failed",
				slog.String("company", snap.Details.CompanyName), slog.Any("error", err))
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) observeRender(outcome string) {
	if h.observer != nil {
		h.observer.ObserveRender(outcome)
	}
}
