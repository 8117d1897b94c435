package auth_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	auth "github.com/inkpress/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, *auth.Auther) {
	t.Helper()

	auther, _ := newTestAuther(t)

	app := fiber.New()
	auth.RegisterAuthRoutes(app,
		auth.WithAuther(auther),
		auth.WithConfig(testConfig()),
		auth.WithControllerLogger(testLogger{}),
	)

	return app, auther
}

func jsonRequest(t *testing.T, method, target string, body any, headers map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	return out
}

func signUpAdaHTTP(t *testing.T, app *fiber.App) map[string]any {
	t.Helper()

	resp, err := app.Test(jsonRequest(t, fiber.MethodPost, "/auth/signup", fiber.Map{
		"name":     "Ada Lovelace",
		"email":    "ada@example.com",
		"phone":    "+15550100200",
		"password": "correct horse battery",
	}, nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	return decodeBody(t, resp)
}

func signInAdaHTTP(t *testing.T, app *fiber.App, password string) string {
	t.Helper()

	resp, err := app.Test(jsonRequest(t, fiber.MethodPost, "/auth/signin", fiber.Map{
		"email":    "ada@example.com",
		"password": password,
	}, nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestSignUpEndpoint(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		app, _ := newTestApp(t)
		body := signUpAdaHTTP(t, app)

		assert.Equal(t, "ada@example.com", body["email"])
		assert.Equal(t, "Ada Lovelace", body["name"])
		assert.Equal(t, float64(0), body["token_version"])
		assert.NotContains(t, body, "password_hash")
	})

	t.Run("validation errors enumerate fields", func(t *testing.T) {
		app, _ := newTestApp(t)

		resp, err := app.Test(jsonRequest(t, fiber.MethodPost, "/auth/signup", fiber.Map{
			"name":     "A",
			"email":    "nope",
			"phone":    "123",
			"password": "short",
		}, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp)
		errBody, ok := body["error"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, auth.TextCodeValidationFailed, errBody["text_code"])

		fields, ok := errBody["fields"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, fields, "name")
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "phone")
		assert.Contains(t, fields, "password")
	})

	t.Run("duplicate identifier conflicts", func(t *testing.T) {
		app, _ := newTestApp(t)
		signUpAdaHTTP(t, app)

		resp, err := app.Test(jsonRequest(t, fiber.MethodPost, "/auth/signup", fiber.Map{
			"name":     "Ada Byron",
			"email":    "ada@example.com",
			"phone":    "+15550100299",
			"password": "another passphrase",
		}, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

		body := decodeBody(t, resp)
		errBody := body["error"].(map[string]any)
		assert.Equal(t, auth.TextCodeDuplicateIdentifier, errBody["text_code"])
	})
}

func TestSignInEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	signUpAdaHTTP(t, app)

	t.Run("issues a token", func(t *testing.T) {
		token := signInAdaHTTP(t, app, "correct horse battery")
		assert.NotEmpty(t, token)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, fiber.MethodPost, "/auth/signin", fiber.Map{
			"email":    "ada@example.com",
			"password": "wrong horse",
		}, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		body := decodeBody(t, resp)
		errBody := body["error"].(map[string]any)
		assert.Equal(t, auth.TextCodeInvalidCreds, errBody["text_code"])
	})

	t.Run("both identifiers is a bad request", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, fiber.MethodPost, "/auth/signin", fiber.Map{
			"email":    "ada@example.com",
			"phone":    "+15550100200",
			"password": "correct horse battery",
		}, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp)
		errBody := body["error"].(map[string]any)
		fields := errBody["fields"].(map[string]any)
		assert.Contains(t, fields, "identifier")
	})
}

func TestProtectedEndpoints(t *testing.T) {
	app, _ := newTestApp(t)
	signUpAdaHTTP(t, app)
	token := signInAdaHTTP(t, app, "correct horse battery")

	t.Run("me returns the verified identity", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, fiber.MethodGet, "/auth/me", nil, bearer(token)), -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "ada@example.com", body["email"])
		assert.Equal(t, "Ada Lovelace", body["name"])
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, fiber.MethodGet, "/auth/me", nil, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong scheme is unauthorized", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, fiber.MethodGet, "/auth/me", nil, map[string]string{
			"Authorization": "Basic " + token,
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("tampered token is unauthorized", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, fiber.MethodGet, "/auth/me", nil, bearer(token+"x")), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestSignOutAllEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	signUpAdaHTTP(t, app)
	token := signInAdaHTTP(t, app, "correct horse battery")

	resp, err := app.Test(jsonRequest(t, fiber.MethodPost, "/auth/signout-all", nil, bearer(token)), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["revoked"])
	assert.Equal(t, float64(1), body["token_version"])

	// the token that authorized the sign-out is itself now dead
	resp, err = app.Test(jsonRequest(t, fiber.MethodGet, "/auth/me", nil, bearer(token)), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	errBody := decodeBody(t, resp)["error"].(map[string]any)
	assert.Equal(t, auth.TextCodeTokenRevoked, errBody["text_code"])
}

func TestPasswordChangeEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	signUpAdaHTTP(t, app)
	token := signInAdaHTTP(t, app, "correct horse battery")

	t.Run("wrong current password", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, fiber.MethodPut, "/auth/password", fiber.Map{
			"current_password": "wrong horse",
			"new_password":     "brand new passphrase",
		}, bearer(token)), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("change succeeds and kills the session", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, fiber.MethodPut, "/auth/password", fiber.Map{
			"current_password": "correct horse battery",
			"new_password":     "brand new passphrase",
		}, bearer(token)), -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["changed"])

		// the session that made the change must re-authenticate
		resp, err = app.Test(jsonRequest(t, fiber.MethodGet, "/auth/me", nil, bearer(token)), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		// and the new password signs in
		fresh := signInAdaHTTP(t, app, "brand new passphrase")
		assert.NotEmpty(t, fresh)
	})
}

func TestTokenLookupSources(t *testing.T) {
	t.Run("query lookup", func(t *testing.T) {
		auther, _ := newTestAuther(t)

		cfg := testConfig()
		cfg.TokenLookup = "query:token"

		app := fiber.New()
		auth.RegisterAuthRoutes(app,
			auth.WithAuther(auther),
			auth.WithConfig(cfg),
			auth.WithControllerLogger(testLogger{}),
		)

		signUpAdaHTTP(t, app)
		token := signInAdaHTTP(t, app, "correct horse battery")

		resp, err := app.Test(jsonRequest(t, fiber.MethodGet, fmt.Sprintf("/auth/me?token=%s", token), nil, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}
