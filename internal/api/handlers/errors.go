package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"auction-bidgate/internal/domain"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error           string  `json:"error"`
	Reason          string  `json:"reason,omitempty"`
	MinimumRequired float64 `json:"minimum_required,omitempty"`
	RetryAfter      int     `json:"retry_after,omitempty"`
}

// writeError maps service errors onto HTTP statuses.
func writeError(c echo.Context, err error) error {
	var (
		rejected *domain.BidRejectedError
		apiErr   *domain.APIError
		urlErr   *url.Error
	)

	if secs, ok := domain.RetryAfter(err); ok {
		c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		return c.JSON(http.StatusTooManyRequests, errorResponse{Error: err.Error(), RetryAfter: secs})
	}

	switch {
	case errors.As(err, &rejected):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{
			Error:           rejected.Message,
			Reason:          rejected.Outcome.Reason.String(),
			MinimumRequired: rejected.Outcome.MinimumRequired.InexactFloat64(),
		})
	case errors.Is(err, domain.ErrUserNotApproved):
		return c.JSON(http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrLotNotFound), errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrUnknownAction):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrMissingIdentity), errors.Is(err, domain.ErrInvalidEmail), errors.Is(err, domain.ErrInvalidPhone):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrBidDeclined):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.As(err, &apiErr), errors.As(err, &urlErr):
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "auction service unavailable"})
	}
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
