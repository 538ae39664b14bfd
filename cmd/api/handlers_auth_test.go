package main

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/presence-app/presence/internal/auth"
	"github.com/presence-app/presence/internal/queue"
	"github.com/presence-app/presence/pkg/models"
)

func decodeResponse(t *testing.T, body []byte) models.Response {
	t.Helper()
	var resp models.Response
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func cookieValue(res *http.Response, name string) (string, bool) {
	for _, cookie := range res.Cookies() {
		if cookie.Name == name {
			return cookie.Value, true
		}
	}
	return "", false
}

func TestRegisterSuccess(t *testing.T) {
	api, mocks := newTestAPI(t)
	router := setupRouter(api, openCounter{})

	user := &models.User{ID: "user-1", Email: "alice@example.com", Pseudo: "alice"}
	mocks.auth.On("Register", mock.Anything, "alice@example.com", "alice", "Password1").
		Return(&auth.RegisterResult{
			User:              user,
			Tokens:            auth.TokenPair{AccessToken: "access", RefreshToken: "refresh"},
			VerificationToken: "verify-token",
		}, nil)
	mocks.queue.On("PublishEmail", mock.Anything, mock.Anything).Return(nil)

	w := performRequest(router, http.MethodPost, "/api/auth/register",
		`{"email":"alice@example.com","pseudo":"alice","password":"Password1","confirmPassword":"Password1"}`)

	assert.Equal(t, http.StatusCreated, w.Code)

	resp := decodeResponse(t, w.Body.Bytes())
	assert.True(t, resp.Success)

	access, ok := cookieValue(w.Result(), "accessToken")
	require.True(t, ok)
	assert.Equal(t, "access", access)
	refresh, ok := cookieValue(w.Result(), "refreshToken")
	require.True(t, ok)
	assert.Equal(t, "refresh", refresh)

	// The queued job carries the raw verification token
	mocks.queue.AssertCalled(t, "PublishEmail", mock.Anything, mock.MatchedBy(func(job *queue.EmailJob) bool {
		return job.Kind == queue.EmailJobVerification && job.Token == "verify-token" && job.To == "alice@example.com"
	}))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	api, mocks := newTestAPI(t)
	router := setupRouter(api, openCounter{})

	mocks.auth.On("Register", mock.Anything, "alice@example.com", "alice", "Password1").
		Return(nil, auth.ErrEmailTaken)

	w := performRequest(router, http.MethodPost, "/api/auth/register",
		`{"email":"alice@example.com","pseudo":"alice","password":"Password1","confirmPassword":"Password1"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w.Body.Bytes())
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "email", resp.Errors[0].Field)
}

func TestRegisterValidation(t *testing.T) {
	api, mocks := newTestAPI(t)
	router := setupRouter(api, openCounter{})

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{
			name:  "weak password",
			body:  `{"email":"a@b.fr","pseudo":"alice","password":"password","confirmPassword":"password"}`,
			field: "password",
		},
		{
			name:  "short pseudo",
			body:  `{"email":"a@b.fr","pseudo":"ab","password":"Password1","confirmPassword":"Password1"}`,
			field: "pseudo",
		},
		{
			name:  "bad email",
			body:  `{"email":"not-an-email","pseudo":"alice","password":"Password1","confirmPassword":"Password1"}`,
			field: "email",
		},
		{
			name:  "password mismatch",
			body:  `{"email":"a@b.fr","pseudo":"alice","password":"Password1","confirmPassword":"Password2"}`,
			field: "confirmPassword",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPost, "/api/auth/register", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w.Body.Bytes())
			require.NotEmpty(t, resp.Errors)
			assert.Equal(t, tt.field, resp.Errors[0].Field)
		})
	}

	mocks.auth.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginSuccess(t *testing.T) {
	api, mocks := newTestAPI(t)
	router := setupRouter(api, openCounter{})

	user := &models.User{ID: "user-1", Email: "alice@example.com", Pseudo: "alice"}
	mocks.auth.On("Login", mock.Anything, "alice@example.com", "Password1").
		Return(user, auth.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil)

	w := performRequest(router, http.MethodPost, "/api/auth/login",
		`{"email":"alice@example.com","password":"Password1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	_, ok := cookieValue(w.Result(), "accessToken")
	assert.True(t, ok)
}

func TestLoginBadCredentials(t *testing.T) {
	api, mocks := newTestAPI(t)
	router := setupRouter(api, openCounter{})

	mocks.auth.On("Login", mock.Anything, "alice@example.com", "WrongPass1").
		Return(nil, auth.TokenPair{}, auth.ErrInvalidCredentials)

	w := performRequest(router, http.MethodPost, "/api/auth/login",
		`{"email":"alice@example.com","password":"WrongPass1"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeResponse(t, w.Body.Bytes())
	assert.Equal(t, "Email ou mot de passe incorrect", resp.Error)
}

func TestRefreshWithoutCookie(t *testing.T) {
	api, _ := newTestAPI(t)
	router := setupRouter(api, openCounter{})

	w := performRequest(router, http.MethodPost, "/api/auth/refresh", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeResponse(t, w.Body.Bytes())
	assert.Equal(t, "Refresh token manquant", resp.Error)
}

func TestRefreshRotatesTokens(t *testing.T) {
	api, mocks := newTestAPI(t)
	router := setupRouter(api, openCounter{})

	mocks.auth.On("Refresh", mock.Anything, "old-refresh").
		Return(auth.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil)

	w := performRequest(router, http.MethodPost, "/api/auth/refresh", "",
		&http.Cookie{Name: "refreshToken", Value: "old-refresh"})

	assert.Equal(t, http.StatusOK, w.Code)
	access, _ := cookieValue(w.Result(), "accessToken")
	assert.Equal(t, "new-access", access)
	refresh, _ := cookieValue(w.Result(), "refreshToken")
	assert.Equal(t, "new-refresh", refresh)
}

func TestRefreshFailureClearsCookies(t *testing.T) {
	api, mocks := newTestAPI(t)
	router := setupRouter(api, openCounter{})

	mocks.auth.On("Refresh", mock.Anything, "expired").
		Return(auth.TokenPair{}, auth.ErrTokenExpired)

	w := performRequest(router, http.MethodPost, "/api/auth/refresh", "",
		&http.Cookie{Name: "refreshToken", Value: "expired"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeResponse(t, w.Body.Bytes())
	assert.Equal(t, "Session expirée, veuillez vous reconnecter", resp.Error)

	for _, cookie := range w.Result().Cookies() {
		assert.Empty(t, cookie.Value)
	}
}

func TestLogoutClearsCookies(t *testing.T) {
	api, _ := newTestAPI(t)
	router := setupRouter(api, openCounter{})

	w := performRequest(router, http.MethodPost, "/api/auth/logout", "")

	assert.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, cookie := range cookies {
		assert.Empty(t, cookie.Value)
		assert.True(t, cookie.MaxAge < 0 || cookie.Expires.Before(time.Now()))
	}
}

func TestMeUnauthenticated(t *testing.T) {
	api, _ := newTestAPI(t)
	router := setupRouter(api, openCounter{})

	w := performRequest(router, http.MethodGet, "/api/auth/me", "")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w.Body.Bytes())
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Nil(t, data["user"])
}

func TestMeAuthenticated(t *testing.T) {
	api, mocks := newTestAPI(t)
	router := setupRouter(api, openCounter{})

	claims := &auth.Claims{UserID: "user-1", Role: models.UserRoleUser}
	mocks.auth.On("VerifyAccessToken", "valid-token").Return(claims, nil)
	mocks.auth.On("Profile", mock.Anything, "user-1").
		Return(&models.User{ID: "user-1", Pseudo: "alice", Email: "alice@example.com"}, nil)

	w := performRequest(router, http.MethodGet, "/api/auth/me", "", authCookie("valid-token"))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w.Body.Bytes())
	data := resp.Data.(map[string]interface{})
	user := data["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["pseudo"])
}

func TestVerifyEmail(t *testing.T) {
	api, mocks := newTestAPI(t)
	router := setupRouter(api, openCounter{})

	user := &models.User{ID: "user-1", Pseudo: "alice", EmailVerified: true}
	mocks.auth.On("VerifyEmail", mock.Anything, "good-token").Return(user, nil)
	mocks.auth.On("VerifyEmail", mock.Anything, "bad-token").Return(nil, auth.ErrInvalidToken)
	mocks.auth.On("VerifyEmail", mock.Anything, "old-token").Return(nil, auth.ErrTokenExpired)

	w := performRequest(router, http.MethodGet, "/api/auth/verify-email/good-token", "")
	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w.Body.Bytes())
	assert.True(t, resp.Success)

	w = performRequest(router, http.MethodGet, "/api/auth/verify-email/bad-token", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp = decodeResponse(t, w.Body.Bytes())
	assert.Equal(t, "Token de vérification invalide", resp.Error)

	w = performRequest(router, http.MethodGet, "/api/auth/verify-email/old-token", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp = decodeResponse(t, w.Body.Bytes())
	assert.Equal(t, "Le token de vérification a expiré", resp.Error)
}
