package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crivus/quiziq/internal/api/apierrors"
	"github.com/crivus/quiziq/internal/domain"
	"github.com/crivus/quiziq/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondForbidden responds with a forbidden error
func respondForbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, apierrors.NewForbiddenError(message))
}

// respondInternalError logs the error and responds with a generic message
func respondInternalError(c *gin.Context, err error) {
	logger.Error(err,
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)
	c.JSON(http.StatusInternalServerError, apierrors.NewInternalError("Internal server error"))
}

// respondServiceError maps a typed domain error onto the matching HTTP status
// and error body. Unrecognized errors become a logged 500.
func respondServiceError(c *gin.Context, err error) {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		forbiddenErr  *domain.ForbiddenError
		rateLimitErr  *domain.RateLimitError
		conflictErr   *domain.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(validationErr.Message))
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, apierrors.NewNotFoundError(notFoundErr.Error()))
	case errors.As(err, &forbiddenErr):
		c.JSON(http.StatusForbidden, apierrors.NewForbiddenError(forbiddenErr.Message))
	case errors.As(err, &rateLimitErr):
		c.JSON(http.StatusTooManyRequests, apierrors.NewRateLimitError(rateLimitErr.ResetAt.UnixMilli()))
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, apierrors.NewConflictError(conflictErr.Message))
	default:
		respondInternalError(c, err)
	}
}
