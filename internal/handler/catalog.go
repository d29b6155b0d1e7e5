package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/makeasinger/fabricator/internal/catalog"
	"github.com/makeasinger/fabricator/pkg/response"
)

// CatalogLoader reads a fresh content snapshot from wherever the server was
// configured to load it.
type CatalogLoader func(ctx context.Context) (*catalog.Content, error)

type CatalogHandler struct {
	holder *catalog.Holder
	load   CatalogLoader
	log    *zap.Logger
}

func NewCatalogHandler(holder *catalog.Holder, load CatalogLoader, log *zap.Logger) *CatalogHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogHandler{holder: holder, load: load, log: log}
}

// Reload handles POST /api/catalog/reload. Segments already crafting keep the
// snapshot they started with.
func (h *CatalogHandler) Reload(c *fiber.Ctx) error {
	content, err := h.load(c.Context())
	if err != nil {
		h.log.Error("catalog reload failed", zap.Error(err))
		return response.ValidationError(c, "Catalog could not be loaded", fiber.Map{"reason": err.Error()})
	}
	h.holder.Replace(content)
	h.log.Info("catalog reloaded",
		zap.Int("programs", len(content.Programs)),
		zap.Int("instruments", len(content.Instruments)),
	)
	return response.OK(c, fiber.Map{
		"libraries":   len(content.Libraries),
		"programs":    len(content.Programs),
		"instruments": len(content.Instruments),
	})
}

// Summary handles GET /api/catalog
func (h *CatalogHandler) Summary(c *fiber.Ctx) error {
	content := h.holder.Current()
	if content == nil {
		return response.NotFound(c, "No catalog loaded")
	}
	return response.OK(c, fiber.Map{
		"libraries":   len(content.Libraries),
		"programs":    len(content.Programs),
		"instruments": len(content.Instruments),
	})
}
