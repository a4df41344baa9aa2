package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ashmitsharp/fintrack-api/internal/utils"
	clerk "github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/gofiber/fiber/v3"
)

// LocalSubject is the Locals key holding the verified token subject
const LocalSubject = "user_id"

// TokenVerifier checks a bearer token and returns its subject
type TokenVerifier func(ctx context.Context, token string) (string, error)

// ClerkVerifier verifies session tokens against Clerk using secretKey
func ClerkVerifier(secretKey string) TokenVerifier {
	clerk.SetKey(secretKey)

	return func(ctx context.Context, token string) (string, error) {
		claims, err := jwt.Verify(ctx, &jwt.VerifyParams{Token: token})
		if err != nil {
			return "", err
		}
		return claims.Subject, nil
	}
}

// ClerkAuth middleware validates Clerk JWT tokens
func ClerkAuth(secretKey string, logger *slog.Logger) fiber.Handler {
	return BearerAuth(ClerkVerifier(secretKey), logger)
}

// BearerAuth rejects requests whose bearer token verify refuses
func BearerAuth(verify TokenVerifier, logger *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.WriteError(c, utils.NewUnauthorizedError("Missing authorization token"))
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader || token == "" {
			return utils.WriteError(c, utils.NewUnauthorizedError("Invalid authorization header format"))
		}

		subject, err := verify(c.Context(), token)
		if err != nil {
			logger.Debug("Token verification failed", "path", c.Path(), "error", err)
			return utils.WriteError(c, utils.NewUnauthorizedError("Invalid or expired token"))
		}

		c.Locals(LocalSubject, subject)
		return c.Next()
	}
}
