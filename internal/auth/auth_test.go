package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/case-service/internal/config"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, expiresAt, err := tm.GenerateToken("dashboard", RoleViewer)
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "dashboard", claims.Subject)
	assert.Equal(t, RoleViewer, claims.Role)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsForeignTokens(t *testing.T) {
	tm := NewTokenManager("secret", 5)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: RoleAdmin}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.ParseToken(none)
	assert.Error(t, err)

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:             "root",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(noRole)
	assert.Error(t, err)
}

func TestTokenManager_RejectsWrongIssuerAndExpired(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	now := time.Now()

	sign := func(claims jwt.RegisteredClaims) string {
		t.Helper()
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Role: RoleAgent, RegisteredClaims: claims}).
			SignedString([]byte("secret"))
		require.NoError(t, err)
		return token
	}

	_, err := tm.ParseToken(sign(jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}))
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	_, err = tm.ParseToken(sign(jwt.RegisteredClaims{
		Issuer:    TokenIssuer,
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
	}))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = tm.ParseToken(sign(jwt.RegisteredClaims{Issuer: TokenIssuer, Subject: "ops"}))
	assert.ErrorIs(t, err, jwt.ErrTokenRequiredClaimMissing)
}

func TestRole_Allows(t *testing.T) {
	assert.True(t, RoleAdmin.Allows(RoleAgent))
	assert.True(t, RoleAgent.Allows(RoleAgent))
	assert.False(t, RoleViewer.Allows(RoleAgent))
	assert.False(t, Role("guest").Allows(RoleViewer))
}

func TestAuthenticator(t *testing.T) {
	hash, err := HashKey("s3cret", bcrypt.MinCost)
	require.NoError(t, err)

	a, err := NewAuthenticator([]config.ClientCredential{{ID: "ops", Role: "admin", KeyHash: hash}}, NewTokenManager("secret", 5))
	require.NoError(t, err)

	issued, err := a.Issue("ops", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, issued.Role)
	assert.Equal(t, "Bearer", issued.TokenType)

	for _, tc := range []struct{ id, key string }{{"ops", "wrong"}, {"nobody", "s3cret"}} {
		_, err := a.Issue(tc.id, tc.key)
		require.Error(t, err)
		assert.Equal(t, 401, apperrors.ToDomainError(err).HTTPStatus)
	}

	_, err = NewAuthenticator([]config.ClientCredential{{ID: "x", Role: "root", KeyHash: hash}}, nil)
	assert.Error(t, err)
	_, err = NewAuthenticator([]config.ClientCredential{{ID: "x", Role: "viewer", KeyHash: hash}, {ID: "x", Role: "admin", KeyHash: hash}}, nil)
	assert.Error(t, err)
}

func TestMiddlewareAndRoleGuard(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	app.Get("/admin", NewAuthMiddleware(tm).Handle, RequireRole(RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendString(Actor(c))
	})

	viewer, _, err := tm.GenerateToken("dashboard", RoleViewer)
	require.NoError(t, err)
	admin, _, err := tm.GenerateToken("ops", RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", 401},
		{"wrong scheme", "Basic abc", 401},
		{"garbage token", "Bearer abc", 401},
		{"insufficient role", "Bearer " + viewer, 403},
		{"admin", "Bearer " + admin, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
