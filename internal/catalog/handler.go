package catalog

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/flaketech/quotebuilder/internal/platform/httpx"
)

// Handler exposes catalog CRUD over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers catalog routes. Write routes are expected to be
// wrapped with the admin role middleware by the caller.
func (h *Handler) MountRoutes(r chi.Router, adminOnly func(http.Handler) http.Handler) {
	r.Get("/api/catalog", h.list)
	r.Group(func(r chi.Router) {
		r.Use(adminOnly)
		r.Post("/api/catalog", h.upsert)
		r.Delete("/api/catalog/{name}", h.delete)
	})
}

type upsertProductRequest struct {
	Name         string  `json:"name" validate:"required"`
	PreviousName string  `json:"previous_name"`
	SellingPrice float64 `json:"selling_price" validate:"gte=0"`
	Description  string  `json:"description"`
	Color        string  `json:"color"`
	Dimensions   string  `json:"dimensions"`
	Warranty     string  `json:"warranty"`
	SKU          string  `json:"sku"`
	ImageURL     string  `json:"image_url"`
}

type productResponse struct {
	Product
	DisplayURL string `json:"display_url,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list catalog failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, productResponse{Product: p, DisplayURL: p.DisplayURL()})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	p := Product{
		Name:         req.Name,
		SellingPrice: req.SellingPrice,
		Description:  req.Description,
		Color:        req.Color,
		Dimensions:   req.Dimensions,
		Warranty:     req.Warranty,
		SKU:          req.SKU,
		ImageURL:     DriveStorageURL(req.ImageURL),
	}

	var err error
	if req.PreviousName != "" && req.PreviousName != req.Name {
		err = h.service.Rename(r.Context(), req.PreviousName, p)
	} else {
		err = h.service.Upsert(r.Context(), p)
	}
	if err != nil {
		h.logger.Error("upsert product failed", slog.String("name", req.Name), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, productResponse{Product: p, DisplayURL: p.DisplayURL()})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		httpx.RespondError(w, fmt.Errorf("%w: product name required", httpx.ErrValidation))
		return
	}
	if err := h.service.Delete(r.Context(), name); err != nil {
		h.logger.Error("delete product failed", slog.String("name", name), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"deleted": name})
}
