package treeset

import (
	"github.com/anacrolix/log"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

var unlimitedGCRate = rate.NewLimiter(rate.Inf, 0)

// Callbacks run synchronously on the coordinator goroutine and must not
// block. Nil callbacks are not called.
type Callbacks struct {
	GCStarted  func()
	GCFinished func(GCCycleEvent)
}

// Probably not safe to modify this after it's given to a Set, or to pass it
// to multiple Sets.
type Config struct {
	Logger log.Logger
	// Log every forwarded Op and every reply at debug level. Very noisy.
	Debug bool
	// Trigger a compaction cycle once this many Removes have been forwarded
	// since the last cycle. Zero disables auto-GC. Explicit GC calls work
	// either way.
	AutoGCRemoveThreshold int
	// Gates auto-GC only; explicit GC calls are never rate limited. Nil means
	// no limit.
	GCRateLimiter *rate.Limiter
	Callbacks     Callbacks
}

func NewDefaultConfig() *Config {
	return &Config{
		Logger:        log.Default,
		GCRateLimiter: rate.NewLimiter(1, 1),
	}
}

func (cfg *Config) validate() error {
	if cfg.AutoGCRemoveThreshold < 0 {
		return errors.Errorf("negative auto-GC remove threshold %v", cfg.AutoGCRemoveThreshold)
	}
	if cfg.Logger.IsZero() {
		cfg.Logger = log.Default
	}
	if cfg.GCRateLimiter == nil {
		cfg.GCRateLimiter = unlimitedGCRate
	}
	return nil
}
