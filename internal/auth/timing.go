package auth

import (
	"crypto/rand"
	"math/big"
	"time"
)

// TimingConfig controls the delay applied after failed logins so that an unknown
// identifier and a wrong password take roughly the same time to answer.
type TimingConfig struct {
	BaseDelayMs    int
	RandomDelayMs  int
	DelayOnSuccess bool
}

type TimingDelay struct {
	config TimingConfig
	sleep  func(time.Duration)
}

func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
		sleep:  time.Sleep,
	}
}

// target returns base + a crypto-random jitter in [0, RandomDelayMs)
func (td *TimingDelay) target() time.Duration {
	d := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(td.config.RandomDelayMs)))
		if err == nil {
			d += time.Duration(n.Int64()) * time.Millisecond
		}
	}
	return d
}

// Wait sleeps for the configured delay unless the attempt succeeded
func (td *TimingDelay) Wait(success bool) {
	if td == nil || (success && !td.config.DelayOnSuccess) {
		return
	}
	td.sleep(td.target())
}

// WaitFrom pads the time elapsed since start up to the configured delay
func (td *TimingDelay) WaitFrom(start time.Time, success bool) {
	if td == nil || (success && !td.config.DelayOnSuccess) {
		return
	}
	if remaining := td.target() - time.Since(start); remaining > 0 {
		td.sleep(remaining)
	}
}
