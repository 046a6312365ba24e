package middleware

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iti-open-source/oceanlibrary-api/internal/apperr"
)

const identityContextKey = "identity"

const RoleAdmin = "admin"

// Identity is who the request acts as: an authenticated user (Subject is the
// user id from the token) or a guest (Subject is the client-held UUID).
type Identity struct {
	Subject string
	Role    string
	Guest   bool
}

// FromContext returns the resolved identity, if any.
func FromContext(c echo.Context) (*Identity, bool) {
	identity, ok := c.Get(identityContextKey).(*Identity)
	return identity, ok
}

// ResolveIdentity reads either a bearer token or an X-Guest-Id header and
// stores the identity on the context. Requests with neither pass through
// anonymously; route-level Require* middlewares enforce presence.
func ResolveIdentity(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if strings.HasPrefix(authHeader, "Bearer ") {
				identity, err := parseToken(strings.TrimPrefix(authHeader, "Bearer "), jwtSecret)
				if err != nil {
					return err
				}
				c.Set(identityContextKey, identity)
				return next(c)
			}

			if guestID := c.Request().Header.Get("X-Guest-Id"); guestID != "" {
				if _, err := uuid.Parse(guestID); err != nil {
					return apperr.New(apperr.KindUnauthorized, "invalid guest id")
				}
				c.Set(identityContextKey, &Identity{Subject: guestID, Guest: true})
			}

			return next(c)
		}
	}
}

func parseToken(tokenString, secret string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid token claims")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "token has no subject")
	}

	role, _ := claims["role"].(string)

	return &Identity{Subject: subject, Role: role}, nil
}

// RequireIdentity allows users and guests; anonymous requests get 401.
func RequireIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := FromContext(c); !ok {
				return apperr.New(apperr.KindUnauthorized, "missing identity")
			}
			return next(c)
		}
	}
}

// RequireUser rejects guests as well as anonymous requests.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := FromContext(c)
			if !ok {
				return apperr.New(apperr.KindUnauthorized, "authentication required")
			}
			if identity.Guest {
				return apperr.New(apperr.KindForbidden, "a user account is required")
			}
			return next(c)
		}
	}
}

func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := FromContext(c)
			if !ok {
				return apperr.New(apperr.KindUnauthorized, "authentication required")
			}
			if identity.Guest || identity.Role != RoleAdmin {
				return apperr.New(apperr.KindForbidden, "admin role required")
			}
			return next(c)
		}
	}
}
