package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"best-stories-service/internal/domain"
	"best-stories-service/internal/transport/httpserver/dto"
	"best-stories-service/internal/validator"
)

// DefaultDashboardCount is shown when the dashboard is opened without n.
const DefaultDashboardCount = 10

// DashboardHandler handles dashboard-related HTTP requests.
type DashboardHandler struct {
	service   StoriesService
	validator *validator.Validator
	logger    *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(svc StoriesService, v *validator.Validator, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		service:   svc,
		validator: v,
		logger:    logger,
	}
}

// Render handles GET /dashboard
// Renders the best stories table using Fiber's template engine.
func (h *DashboardHandler) Render(c *fiber.Ctx) error {
	req := dto.BestStoriesRequest{N: DefaultDashboardCount}
	if c.Query("n") != "" {
		req.N = 0
		_ = c.QueryParser(&req)
	}

	view := fiber.Map{
		"Title": "Hacker News Best Stories",
		"N":     req.N,
	}

	if err := h.validator.Validate(&req); err != nil {
		view["Error"] = invalidCountDetail

		return h.render(c, fiber.StatusBadRequest, view)
	}

	items, err := h.service.GetBestStories(c.UserContext(), req.N)
	switch {
	case errors.Is(err, domain.ErrInvalidCount):
		view["Error"] = invalidCountDetail

		return h.render(c, fiber.StatusBadRequest, view)
	case err != nil:
		h.logger.Error("dashboard stories failed", zap.Error(err))
		view["Error"] = "Stories are unavailable right now."

		return h.render(c, fiber.StatusInternalServerError, view)
	case len(items) == 0:
		view["Error"] = notFoundDetail

		return h.render(c, fiber.StatusNotFound, view)
	}

	view["Stories"] = items

	return h.render(c, fiber.StatusOK, view)
}

func (h *DashboardHandler) render(c *fiber.Ctx, status int, view fiber.Map) error {
	return c.Status(status).Render("pages/dashboard", view, "layouts/base")
}
