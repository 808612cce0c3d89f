// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"best-stories-service/internal/transport/httpserver/dto"
)

// invalidCountDetail is reported for any unusable n, whatever the parse or rule failure.
const invalidCountDetail = "Parameter n must be greater than 0."

// notFoundDetail is reported when the pipeline yields nothing.
const notFoundDetail = "No best stories found."

func writeProblem(c *fiber.Ctx, problem dto.ProblemResponse) error {
	return c.Status(problem.Status).JSON(problem, dto.ProblemContentType)
}

// writeFault logs err and answers with a 500 problem. A request abandoned by
// its client or its deadline is expected noise and logged at warn.
func writeFault(c *fiber.Ctx, logger *zap.Logger, msg string, err error) error {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("path", c.Path()),
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Warn(msg, fields...)
	} else {
		logger.Error(msg, fields...)
	}

	return writeProblem(c, dto.InternalError(fiber.StatusInternalServerError, err.Error()))
}
