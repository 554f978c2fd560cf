package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
	"github.com/timboisvert/cocoscout-sub005/internal/repository"
)

// dbTimeout bounds every handler-initiated database call.
const dbTimeout = 5 * time.Second

// getUserID extracts the user_id from echo.Context and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter, returning 0 when missing or
// malformed.
func pathID(c echo.Context, name string) uint64 {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// reqCtx derives a bounded context from the request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// jsonError writes the uniform error envelope used by every handler.
func jsonError(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"error": msg})
}

// repoError maps repository sentinels onto HTTP responses; anything
// unrecognized becomes a 500.
func repoError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return jsonError(c, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrForbidden):
		return jsonError(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, repository.ErrConflict):
		return jsonError(c, http.StatusConflict, "conflict")
	default:
		return jsonError(c, http.StatusInternalServerError, "internal error")
	}
}

// ownedForm loads a form and verifies the requesting operator owns the
// production it belongs to. Returns ErrNotFound / ErrForbidden from the
// repository layer on failure.
func ownedForm(ctx context.Context, forms *repository.FormRepo, productions *repository.ProductionRepo,
	formID, userID uint64) (*model.Form, error) {
	f, err := forms.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	p, err := productions.GetByID(ctx, f.ProductionID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != userID {
		return nil, repository.ErrForbidden
	}
	return f, nil
}
