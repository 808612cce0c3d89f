package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"best-stories-service/internal/domain"
	"best-stories-service/internal/transport/httpserver/dto"
	"best-stories-service/internal/validator"
)

// BestStoriesHandler handles best stories HTTP requests.
type BestStoriesHandler struct {
	service   StoriesService
	validator *validator.Validator
	logger    *zap.Logger
}

// NewBestStoriesHandler creates a new BestStoriesHandler.
func NewBestStoriesHandler(svc StoriesService, v *validator.Validator, logger *zap.Logger) *BestStoriesHandler {
	return &BestStoriesHandler{
		service:   svc,
		validator: v,
		logger:    logger,
	}
}

// GetBestStories handles GET /api/v1/beststories
func (h *BestStoriesHandler) GetBestStories(c *fiber.Ctx) error {
	var req dto.BestStoriesRequest
	if err := c.QueryParser(&req); err != nil {
		return writeProblem(c, dto.BadRequest(invalidCountDetail, nil))
	}

	if err := h.validator.Validate(&req); err != nil {
		var errs validator.ValidationErrors
		errors.As(err, &errs)

		return writeProblem(c, dto.BadRequest(invalidCountDetail, errs))
	}

	items, err := h.service.GetBestStories(c.UserContext(), req.N)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCount) {
			return writeProblem(c, dto.BadRequest(invalidCountDetail, nil))
		}

		return writeFault(c, h.logger, "best stories failed", err)
	}

	if len(items) == 0 {
		return writeProblem(c, dto.NotFound(notFoundDetail))
	}

	return c.JSON(items)
}
