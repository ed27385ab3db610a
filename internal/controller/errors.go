package controller

import (
	"errors"
	"net/http"

	"monitoring-workspace-be/internal/pkg/serverutils"
	"monitoring-workspace-be/internal/service"
	"monitoring-workspace-be/pkg/backend"

	"github.com/gofiber/fiber/v2"
)

// mapServiceError turns service sentinels into HTTP errors for the error
// middleware. Unknown errors pass through and render as 500.
func mapServiceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrConfirmationRequired):
		return &serverutils.AppError{
			Code:    http.StatusConflict,
			Message: err.Error(),
			Details: fiber.Map{"requiresConfirmation": true},
			Err:     err,
		}
	case errors.Is(err, service.ErrInvalidCredentials):
		return serverutils.NewAppError(http.StatusUnauthorized, "Invalid username or password", err)
	case errors.Is(err, service.ErrBackendUnauthorized), errors.Is(err, service.ErrMissingUser):
		return serverutils.NewAppError(http.StatusUnauthorized, "Unauthorized", err)
	case errors.Is(err, backend.ErrUnavailable):
		return serverutils.NewAppError(http.StatusBadGateway, "Monitoring backend unavailable", err)
	}

	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
		return serverutils.NewAppError(statusErr.StatusCode, "Request rejected by monitoring backend", err)
	}
	return err
}

func parseBody(ctx *fiber.Ctx, req any) error {
	if err := ctx.BodyParser(req); err != nil {
		return serverutils.BadRequest("Invalid request body")
	}
	return serverutils.ValidateRequest(req)
}

func callerFrom(ctx *fiber.Ctx) (service.Caller, error) {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return service.Caller{}, err
	}
	return service.Caller{UserID: userID, AccessToken: serverutils.AccessToken(ctx)}, nil
}
