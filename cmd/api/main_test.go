package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/presence-app/presence/internal/auth"
	"github.com/presence-app/presence/internal/config"
	"github.com/presence-app/presence/internal/logging"
	"github.com/presence-app/presence/internal/queue"
	"github.com/presence-app/presence/pkg/models"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, email, pseudo, password string) (*auth.RegisterResult, error) {
	args := m.Called(ctx, email, pseudo, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.RegisterResult), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*models.User, auth.TokenPair, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, auth.TokenPair{}, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Get(1).(auth.TokenPair), args.Error(2)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(auth.TokenPair), args.Error(1)
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) VerifyAccessToken(token string) (*auth.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

type MockQuoteRepo struct {
	mock.Mock
}

func (m *MockQuoteRepo) GetUser(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockQuoteRepo) CreateQuote(ctx context.Context, quote *models.Quote) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

func (m *MockQuoteRepo) GetQuote(ctx context.Context, id string) (*models.Quote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}

func (m *MockQuoteRepo) GetRandomPublicQuote(ctx context.Context) (*models.Quote, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}

func (m *MockQuoteRepo) ListQuotesByAuthorPseudo(ctx context.Context, pseudo string) ([]*models.Quote, error) {
	args := m.Called(ctx, pseudo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Quote), args.Error(1)
}

func (m *MockQuoteRepo) ListQuotesByOwner(ctx context.Context, userID string) ([]*models.Quote, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Quote), args.Error(1)
}

func (m *MockQuoteRepo) UpdateQuote(ctx context.Context, id, ownerID, text, author string) (*models.Quote, error) {
	args := m.Called(ctx, id, ownerID, text, author)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}

func (m *MockQuoteRepo) DeleteQuote(ctx context.Context, id, ownerID string) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

func (m *MockQuoteRepo) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockMeditationService struct {
	mock.Mock
}

func (m *MockMeditationService) Get(ctx context.Context, quoteID string, identity models.Identity) (*models.MeditationResult, error) {
	args := m.Called(ctx, quoteID, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MeditationResult), args.Error(1)
}

func (m *MockMeditationService) Generate(ctx context.Context, quoteID string, identity models.Identity) (*models.MeditationResult, error) {
	args := m.Called(ctx, quoteID, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MeditationResult), args.Error(1)
}

func (m *MockMeditationService) Limits(ctx context.Context, identity models.Identity) (*models.LimitStatus, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LimitStatus), args.Error(1)
}

type MockEmailQueue struct {
	mock.Mock
}

func (m *MockEmailQueue) PublishEmail(ctx context.Context, job *queue.EmailJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// openCounter lets every request through the fixed window limiters
type openCounter struct{}

func (openCounter) CheckRateLimit(_ context.Context, _ string, _ int64, _ time.Duration) (bool, error) {
	return true, nil
}

type testMocks struct {
	auth        *MockAuthService
	repo        *MockQuoteRepo
	meditations *MockMeditationService
	queue       *MockEmailQueue
}

func newTestAPI(t *testing.T) (*API, *testMocks) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logging.NewDefaultLogger()
	require.NoError(t, err)

	mocks := &testMocks{
		auth:        new(MockAuthService),
		repo:        new(MockQuoteRepo),
		meditations: new(MockMeditationService),
		queue:       new(MockEmailQueue),
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			Mode:           "test",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Auth: config.AuthConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 168 * time.Hour,
		},
		Quotes:     config.QuotesConfig{MinLength: 5, MaxLength: 500, MaxAuthorLength: 100},
		Meditation: config.MeditationConfig{UserDailyLimit: 3, IPDailyLimit: 1, CacheTTL: 24 * time.Hour},
		RateLimit: config.RateLimitConfig{
			GlobalRPS: 1000, GlobalBurst: 1000,
			AuthMax: 5, AuthWindow: 15 * time.Minute,
			CreateMax: 20, CreateWindow: time.Hour,
		},
	}

	api := &API{
		cfg:         cfg,
		log:         log,
		repo:        mocks.repo,
		queue:       mocks.queue,
		auth:        mocks.auth,
		meditations: mocks.meditations,
	}

	return api, mocks
}

func performRequest(router *gin.Engine, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func authCookie(token string) *http.Cookie {
	return &http.Cookie{Name: "accessToken", Value: token}
}
