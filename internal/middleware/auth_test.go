package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-at-least-32-bytes-long!!")

const testUserID = "3f0c9a52-7a8e-4d4e-9a51-0c1d2e3f4a5b"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims SessionClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() SessionClaims {
	return SessionClaims{
		Email: "writer@example.org",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUserID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

// newAuthApp mounts AuthRequired in front of a handler that echoes the locals.
func newAuthApp(config *security.SecurityConfig, logs *bytes.Buffer) *fiber.App {
	app := fiber.New()
	app.Use(AuthRequired(testSecret, config, security.NewLoggerTo(logs)))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": UserID(c), "email": UserEmail(c)})
	})
	return app
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope.Raw {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var raw envelope.Raw
	require.NoError(t, json.Unmarshal(body, &raw), "body: %s", body)
	return raw
}

// TestAuthRequired_BearerToken tests that a valid token sets the caller locals.
func TestAuthRequired_BearerToken(t *testing.T) {
	// Arrange
	var logs bytes.Buffer
	app := newAuthApp(security.DefaultSecurityConfig(), &logs)
	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, testSecret, validClaims()))

	// Act
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Assert
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, testUserID, got["id"])
	assert.Equal(t, "writer@example.org", got["email"])
	assert.Empty(t, logs.String())
}

func TestAuthRequired_Cookie(t *testing.T) {
	var logs bytes.Buffer
	app := newAuthApp(security.DefaultSecurityConfig(), &logs)
	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: signToken(t, jwt.SigningMethodHS256, testSecret, validClaims())})

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

// TestAuthRequired_Rejects tests every way a token can be unacceptable.
func TestAuthRequired_Rejects(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage", "Bearer not.a.token"},
		{"wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("some-other-secret-entirely-000000"), validClaims())},
		{"wrong algorithm", "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, validClaims())},
		{"expired", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, expired)},
		{"no expiry", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, noExpiry)},
		{"no subject", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, noSubject)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			app := newAuthApp(security.DefaultSecurityConfig(), &logs)
			req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			raw := decodeEnvelope(t, resp)
			require.NotNil(t, raw.Error)
			assert.Equal(t, envelope.CodeUnauthorized, raw.Error.Code)
			assert.Equal(t, "Unauthorized", raw.Error.Message)
			assert.Equal(t, "null", string(raw.Data))
		})
	}
}

func TestAuthRequired_Issuer(t *testing.T) {
	config := security.DefaultSecurityConfig()
	config.TokenIssuer = "https://auth.example.org"

	claims := validClaims()
	claims.Issuer = "https://evil.example.org"

	var logs bytes.Buffer
	app := newAuthApp(config, &logs)
	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, testSecret, claims))

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, logs.String(), string(security.EventTokenRejected))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Equal(t, "", bearerToken("Bearer"))
	assert.Equal(t, "", bearerToken("Token abc"))
}
