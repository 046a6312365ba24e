package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iti-open-source/oceanlibrary-api/internal/apperr"
)

const testSecret = "test-secret"

func signToken(t *testing.T, subject, role string) string {
	t.Helper()

	claims := jwt.MapClaims{"sub": subject}
	if role != "" {
		claims["role"] = role
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func resolve(t *testing.T, configure func(*http.Request)) (*Identity, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	configure(req)
	c := e.NewContext(req, httptest.NewRecorder())

	var identity *Identity
	handler := ResolveIdentity(testSecret)(func(c echo.Context) error {
		identity, _ = FromContext(c)
		return nil
	})
	err := handler(c)
	return identity, err
}

func TestResolveIdentityBearerToken(t *testing.T) {
	identity, err := resolve(t, func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+signToken(t, "user-42", "admin"))
	})
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "user-42", identity.Subject)
	assert.Equal(t, "admin", identity.Role)
	assert.False(t, identity.Guest)
}

func TestResolveIdentityRejectsBadToken(t *testing.T) {
	_, err := resolve(t, func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-token")
	})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestResolveIdentityGuestHeader(t *testing.T) {
	identity, err := resolve(t, func(req *http.Request) {
		req.Header.Set("X-Guest-Id", "3e9c7c84-6f3a-4b6c-9a57-9adbe4b9d0aa")
	})
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.True(t, identity.Guest)
	assert.Equal(t, "3e9c7c84-6f3a-4b6c-9a57-9adbe4b9d0aa", identity.Subject)
}

func TestResolveIdentityRejectsMalformedGuestID(t *testing.T) {
	_, err := resolve(t, func(req *http.Request) {
		req.Header.Set("X-Guest-Id", "definitely-not-a-uuid")
	})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestResolveIdentityAnonymousPassesThrough(t *testing.T) {
	identity, err := resolve(t, func(req *http.Request) {})
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func requireCheck(t *testing.T, mw echo.MiddlewareFunc, identity *Identity) error {
	t.Helper()

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if identity != nil {
		c.Set(identityContextKey, identity)
	}
	return mw(func(c echo.Context) error { return nil })(c)
}

func TestRequireUser(t *testing.T) {
	err := requireCheck(t, RequireUser(), nil)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	err = requireCheck(t, RequireUser(), &Identity{Subject: "g-1", Guest: true})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	assert.NoError(t, requireCheck(t, RequireUser(), &Identity{Subject: "user-1"}))
}

func TestRequireAdmin(t *testing.T) {
	err := requireCheck(t, RequireAdmin(), &Identity{Subject: "user-1"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	assert.NoError(t, requireCheck(t, RequireAdmin(), &Identity{Subject: "user-1", Role: RoleAdmin}))
}

func TestRequireIdentityAllowsGuests(t *testing.T) {
	assert.NoError(t, requireCheck(t, RequireIdentity(), &Identity{Subject: "g-1", Guest: true}))

	err := requireCheck(t, RequireIdentity(), nil)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}
