package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/presence-app/presence/internal/logging"
)

// Repository is the subset of the store the janitor sweeps
type Repository interface {
	ExpireVerificationTokens(ctx context.Context, now time.Time) (int64, error)
	PruneLimits(ctx context.Context, before string) (int64, error)
}

// Janitor runs periodic database cleanup: expired verification tokens and
// quota counters from past days.
type Janitor struct {
	repo      Repository
	log       *logging.Logger
	interval  time.Duration
	retention int // days of limit rows to keep

	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

func NewJanitor(repo Repository, log *logging.Logger, interval time.Duration, retentionDays int) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	if retentionDays <= 0 {
		retentionDays = 7
	}
	return &Janitor{
		repo:      repo,
		log:       log,
		interval:  interval,
		retention: retentionDays,
		now:       time.Now,
	}
}

// Start launches the sweep loop. Stop waits for an in-flight sweep.
func (j *Janitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.Sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.Sweep(ctx)
			}
		}
	}()
}

func (j *Janitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}

// Sweep runs one cleanup pass
func (j *Janitor) Sweep(ctx context.Context) {
	now := j.now().UTC()

	expired, err := j.repo.ExpireVerificationTokens(ctx, now)
	if err != nil {
		j.log.ErrorWithErr("failed to expire verification tokens", err)
	} else if expired > 0 {
		j.log.Infof("expired %d verification tokens", expired)
	}

	cutoff := now.AddDate(0, 0, -j.retention).Format("2006-01-02")
	pruned, err := j.repo.PruneLimits(ctx, cutoff)
	if err != nil {
		j.log.ErrorWithErr("failed to prune meditation limits", err)
	} else if pruned > 0 {
		j.log.Infof("pruned %d meditation limit rows older than %s", pruned, cutoff)
	}
}
