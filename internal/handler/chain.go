package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/makeasinger/fabricator/internal/lifecycle"
	"github.com/makeasinger/fabricator/internal/middleware"
	"github.com/makeasinger/fabricator/internal/model"
	"github.com/makeasinger/fabricator/internal/service"
	"github.com/makeasinger/fabricator/internal/ship"
	"github.com/makeasinger/fabricator/internal/store"
	"github.com/makeasinger/fabricator/pkg/response"
)

type ChainHandler struct {
	service   *service.ChainService
	validator *validator.Validate
	log       *zap.Logger
}

func NewChainHandler(svc *service.ChainService, v *validator.Validate, log *zap.Logger) *ChainHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChainHandler{
		service:   svc,
		validator: v,
		log:       log,
	}
}

// Create handles POST /api/chains
func (h *ChainHandler) Create(c *fiber.Ctx) error {
	var req model.CreateChainRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if req.AccountID == "" {
		req.AccountID = middleware.GetAccountID(c)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}
	if accountID := middleware.GetAccountID(c); accountID != "" && req.AccountID != accountID {
		return response.Forbidden(c, "Chain belongs to another account")
	}

	chain, err := h.service.Create(c.Context(), &req)
	if err != nil {
		return h.fail(c, err)
	}

	return response.Created(c, chain)
}

// Get handles GET /api/chains/:chainId
func (h *ChainHandler) Get(c *fiber.Ctx) error {
	chain, err := h.chain(c)
	if chain == nil {
		return err
	}
	return response.OK(c, chain)
}

// AddBinding handles POST /api/chains/:chainId/bindings
func (h *ChainHandler) AddBinding(c *fiber.Ctx) error {
	chain, err := h.chain(c)
	if chain == nil {
		return err
	}

	var req model.AddBindingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	binding, err := h.service.AddBinding(c.Context(), chain.Chain.ID, &req)
	if err != nil {
		return h.fail(c, err)
	}

	return response.Created(c, binding)
}

// Transition handles POST /api/chains/:chainId/state
func (h *ChainHandler) Transition(c *fiber.Ctx) error {
	chain, err := h.chain(c)
	if chain == nil {
		return err
	}

	var req model.TransitionChainRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	updated, err := h.service.Transition(c.Context(), chain.Chain.ID, req.State)
	if err != nil {
		return h.fail(c, err)
	}
	if req.State == model.ChainStateErase {
		return response.NoContent(c)
	}

	return response.OK(c, updated)
}

// ListSegments handles GET /api/chains/:chainId/segments
func (h *ChainHandler) ListSegments(c *fiber.Ctx) error {
	chain, err := h.chain(c)
	if chain == nil {
		return err
	}

	segments, err := h.service.ListSegments(c.Context(), chain.Chain.ID)
	if err != nil {
		return h.fail(c, err)
	}

	return response.OK(c, fiber.Map{"segments": segments})
}

// SegmentGraph handles GET /api/segments/:segmentId
func (h *ChainHandler) SegmentGraph(c *fiber.Ctx) error {
	segmentID, err := uuid.Parse(c.Params("segmentId"))
	if err != nil {
		return response.ValidationError(c, "Invalid segment id", nil)
	}

	graph, err := h.service.SegmentGraph(c.Context(), segmentID)
	if err != nil {
		return h.fail(c, err)
	}
	if accountID := middleware.GetAccountID(c); accountID != "" {
		if chain, err := h.service.Get(c.Context(), graph.Segment.ChainID); err == nil && chain.Chain.AccountID.String() != accountID {
			return response.NotFound(c, "Segment not found")
		}
	}

	return response.OK(c, graph)
}

// chain loads the chain named in the route and checks the caller may see it.
// A nil chain means the response has already been written.
func (h *ChainHandler) chain(c *fiber.Ctx) (*model.ChainResponse, error) {
	chainID, err := uuid.Parse(c.Params("chainId"))
	if err != nil {
		return nil, response.ValidationError(c, "Invalid chain id", nil)
	}

	chain, err := h.service.Get(c.Context(), chainID)
	if err != nil {
		return nil, h.fail(c, err)
	}
	if accountID := middleware.GetAccountID(c); accountID != "" && chain.Chain.AccountID.String() != accountID {
		return nil, response.NotFound(c, "Chain not found")
	}
	return chain, nil
}

func (h *ChainHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrChainNotFound):
		return response.NotFound(c, "Chain not found")
	case errors.Is(err, service.ErrSegmentNotFound):
		return response.NotFound(c, "Segment not found")
	case errors.Is(err, ship.ErrNotShipped):
		return response.NotFound(c, "Segment graph no longer available")
	case errors.Is(err, service.ErrChainClosed):
		return response.Conflict(c, err.Error())
	case errors.Is(err, lifecycle.ErrIllegalTransition), errors.Is(err, store.ErrStateMismatch):
		return response.Conflict(c, err.Error())
	case model.IsValidationError(err):
		return response.ValidationError(c, err.Error(), nil)
	}
	h.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return response.ServiceError(c, "Failed to process request")
}
