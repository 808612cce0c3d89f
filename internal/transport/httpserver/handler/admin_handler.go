package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"best-stories-service/internal/transport/httpserver/dto"
	"best-stories-service/internal/validator"
)

// AdminHandler handles cache maintenance HTTP requests.
type AdminHandler struct {
	admin         CacheAdmin
	defaultCounts []int
	validator     *validator.Validator
	logger        *zap.Logger
}

// NewAdminHandler creates a new AdminHandler. defaultCounts is refreshed
// when a request names no counts.
func NewAdminHandler(admin CacheAdmin, defaultCounts []int, v *validator.Validator, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		admin:         admin,
		defaultCounts: defaultCounts,
		validator:     v,
		logger:        logger,
	}
}

// Refresh handles POST /api/v1/admin/cache/refresh
func (h *AdminHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return writeProblem(c, dto.BadRequest("Request body must be a JSON object.", nil))
		}
	}

	if err := h.validator.Validate(&req); err != nil {
		var errs validator.ValidationErrors
		errors.As(err, &errs)

		return writeProblem(c, dto.BadRequest("Counts must be greater than 0.", errs))
	}

	counts := req.Counts
	if len(counts) == 0 {
		counts = h.defaultCounts
	}

	h.logger.Info("manual cache refresh triggered", zap.Ints("counts", counts))

	results := h.admin.Refresh(c.UserContext(), counts)

	return c.JSON(dto.FromRefreshResults(results))
}

// Clear handles DELETE /api/v1/admin/cache
func (h *AdminHandler) Clear(c *fiber.Ctx) error {
	h.logger.Info("manual cache clear triggered")

	if err := h.admin.Clear(c.UserContext()); err != nil {
		return writeFault(c, h.logger, "cache clear failed", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
