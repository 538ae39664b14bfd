package meditation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/presence-app/presence/internal/ai"
	"github.com/presence-app/presence/internal/config"
	"github.com/presence-app/presence/internal/database"
	"github.com/presence-app/presence/internal/logging"
	"github.com/presence-app/presence/internal/metrics"
	"github.com/presence-app/presence/pkg/models"
)

// ErrQuoteNotFound is returned when the target quote does not exist
var ErrQuoteNotFound = errors.New("quote not found")

// ErrGenerationFailed hides upstream detail from callers
var ErrGenerationFailed = errors.New("meditation generation failed")

// QuotaError reports a spent daily quota. Remaining is always zero; the
// consumed slot is not refunded.
type QuotaError struct {
	Remaining       int
	Limit           int
	IsAuthenticated bool
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("daily meditation quota reached (%d/day)", e.Limit)
}

// Repository is the persistence surface the meditation service needs
type Repository interface {
	GetQuote(ctx context.Context, id string) (*models.Quote, error)
	GetMeditationByQuote(ctx context.Context, quoteID string) (*models.Meditation, error)
	CreateMeditation(ctx context.Context, m *models.Meditation) (bool, error)
	GetLimitCount(ctx context.Context, identity models.Identity, date string) (int, error)
	ConsumeLimit(ctx context.Context, identity models.Identity, date string, max int) (int, bool, error)
}

// Generator produces a meditation for a quote through the upstream model
type Generator interface {
	Generate(ctx context.Context, quoteText, author string) (*ai.Generation, error)
}

// Cache is the optional read-through cache in front of the meditations table
type Cache interface {
	GetMeditation(ctx context.Context, quoteID string) (*models.Meditation, error)
	SetMeditation(ctx context.Context, m *models.Meditation, ttl time.Duration) error
}

// Service implements the meditation quota + generation flow
type Service struct {
	repo      Repository
	generator Generator
	cache     Cache // may be nil
	cfg       config.MeditationConfig
	log       *logging.Logger
	now       func() time.Time
}

// NewService creates a meditation service
func NewService(repo Repository, generator Generator, cache Cache, cfg config.MeditationConfig, log *logging.Logger) *Service {
	return &Service{
		repo:      repo,
		generator: generator,
		cache:     cache,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// today returns the quota day key. Days roll over at UTC midnight so the
// window is the same for every client regardless of server timezone.
func (s *Service) today() string {
	return s.now().UTC().Format("2006-01-02")
}

func (s *Service) limitFor(identity models.Identity) int {
	if identity.Type == models.IdentityTypeUser {
		return s.cfg.UserDailyLimit
	}
	return s.cfg.IPDailyLimit
}

// Get returns the cached meditation for a quote, if one exists, along
// with the identity's current limits. No quota is consumed.
func (s *Service) Get(ctx context.Context, quoteID string, identity models.Identity) (*models.MeditationResult, error) {
	if _, err := s.repo.GetQuote(ctx, quoteID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to load quote: %w", err)
	}

	status, err := s.Limits(ctx, identity)
	if err != nil {
		return nil, err
	}

	m, err := s.lookupMeditation(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	result := &models.MeditationResult{
		Cached:    false,
		Remaining: status.Remaining,
		Limit:     status.Limit,
	}
	if m != nil {
		result.Meditation = m.Content
		result.Language = m.Language
		result.Cached = true
	}

	return result, nil
}

// Generate returns the meditation for a quote, generating and persisting
// it when none exists yet. A cached meditation never consumes quota; a
// fresh generation atomically takes one daily slot before calling the
// upstream model.
func (s *Service) Generate(ctx context.Context, quoteID string, identity models.Identity) (*models.MeditationResult, error) {
	quote, err := s.repo.GetQuote(ctx, quoteID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to load quote: %w", err)
	}

	limit := s.limitFor(identity)

	// Serve from cache first: no quota consumed
	if m, err := s.lookupMeditation(ctx, quoteID); err != nil {
		return nil, err
	} else if m != nil {
		status, err := s.Limits(ctx, identity)
		if err != nil {
			return nil, err
		}
		metrics.MeditationCacheHitsTotal.Inc()
		s.log.LogGeneration(quoteID, identity.Identifier, string(identity.Type), true, status.Remaining)
		return &models.MeditationResult{
			Meditation: m.Content,
			Language:   m.Language,
			Cached:     true,
			Remaining:  status.Remaining,
			Limit:      status.Limit,
		}, nil
	}

	// Take a daily slot. The conditional upsert-increment is atomic, so
	// two concurrent requests can never both take the last one.
	count, ok, err := s.repo.ConsumeLimit(ctx, identity, s.today(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to consume quota: %w", err)
	}
	if !ok {
		metrics.MeditationQuotaRejectionsTotal.WithLabelValues(string(identity.Type)).Inc()
		return nil, &QuotaError{
			Remaining:       0,
			Limit:           limit,
			IsAuthenticated: identity.Type == models.IdentityTypeUser,
		}
	}
	remaining := limit - count

	start := s.now()
	gen, err := s.generator.Generate(ctx, quote.Text, quote.Author)
	if err != nil {
		// The consumed slot is not refunded
		s.log.WithQuoteID(quoteID).ErrorWithErr("upstream generation failed", err)
		return nil, ErrGenerationFailed
	}
	metrics.MeditationGenerationDuration.Observe(time.Since(start).Seconds())

	m := &models.Meditation{
		QuoteID:  quoteID,
		Content:  gen.Meditation,
		Language: gen.Language,
	}

	created, err := s.repo.CreateMeditation(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("failed to persist meditation: %w", err)
	}

	s.cacheMeditation(ctx, m)

	if created {
		metrics.MeditationsGeneratedTotal.WithLabelValues(m.Language).Inc()
	}
	s.log.LogGeneration(quoteID, identity.Identifier, string(identity.Type), !created, remaining)

	// When a concurrent request persisted first, m now holds the winner's
	// row, so every caller observes the same content.
	return &models.MeditationResult{
		Meditation: m.Content,
		Language:   m.Language,
		Cached:     !created,
		Remaining:  remaining,
		Limit:      limit,
	}, nil
}

// Limits reports how many generations the identity has left today
func (s *Service) Limits(ctx context.Context, identity models.Identity) (*models.LimitStatus, error) {
	limit := s.limitFor(identity)

	count, err := s.repo.GetLimitCount(ctx, identity, s.today())
	if err != nil {
		return nil, fmt.Errorf("failed to read quota: %w", err)
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return &models.LimitStatus{
		Remaining:       remaining,
		Limit:           limit,
		IsAuthenticated: identity.Type == models.IdentityTypeUser,
	}, nil
}

func (s *Service) lookupMeditation(ctx context.Context, quoteID string) (*models.Meditation, error) {
	if s.cache != nil {
		if m, err := s.cache.GetMeditation(ctx, quoteID); err == nil && m != nil {
			return m, nil
		}
	}

	m, err := s.repo.GetMeditationByQuote(ctx, quoteID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load meditation: %w", err)
	}

	s.cacheMeditation(ctx, m)
	return m, nil
}

func (s *Service) cacheMeditation(ctx context.Context, m *models.Meditation) {
	if s.cache == nil || m == nil {
		return
	}
	if err := s.cache.SetMeditation(ctx, m, s.cfg.CacheTTL); err != nil {
		s.log.WithQuoteID(m.QuoteID).ErrorWithErr("failed to cache meditation", err)
	}
}
