package middleware

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"hubauth/internal/delivery/api/response"
	deliverycontext "hubauth/internal/delivery/context"
	domainerrors "hubauth/internal/domain/errors"
	"hubauth/internal/errors"
	"hubauth/internal/usecase"
)

const bearerScheme = "bearer"

// AuthMiddleware resolves the bearer token of a request into the authenticated account.
type AuthMiddleware struct {
	authUC usecase.AuthUsecase
	logger *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(authUC usecase.AuthUsecase, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{authUC: authUC, logger: logger}
}

// Authenticate rejects the request with 401 UNAUTHORIZED unless it carries a valid bearer token.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return m.unauthorized(c)
		}

		account, err := m.authUC.GetCurrentAccount(c.Request().Context(), token)
		if err != nil {
			if errors.Is(err, domainerrors.ErrUnauthorized) {
				deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger).
					Debug("Rejected bearer token", slog.Any("reason", err))

				return m.unauthorized(c)
			}

			return errors.WithStack(err)
		}

		deliverycontext.SetAccount(c, account)

		return next(c)
	}
}

func (m *AuthMiddleware) unauthorized(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")

	return response.Unauthorized(c, domainerrors.ErrUnauthorized.ErrorCode(), domainerrors.ErrUnauthorized.Message())
}

// bearerToken extracts the credentials of an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
