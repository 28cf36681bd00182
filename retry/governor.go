// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.
//
// This file is derived from node/sc/bridge_tx_pool.go's config/sanitize
// pattern (2018/06/04), repurposed as the per-record exponential-backoff
// retry governor.
package retry

import (
	"time"

	"github.com/bridgefoundry/wbtc-bridge/bridge"
	"github.com/bridgefoundry/wbtc-bridge/internal/log"
)

var logger = log.NewModuleLogger(log.ModuleRetry)

// Config are the tunables of the retry governor.
type Config struct {
	MaxAttempts  int
	MaxBackoff   time.Duration // ceiling on the exponential backoff window
}

// DefaultConfig caps backoff at 24h and attempts at bridge.MaxAttempts.
var DefaultConfig = Config{
	MaxAttempts: bridge.MaxAttempts,
	MaxBackoff:  24 * time.Hour,
}

func (c *Config) sanitize() Config {
	conf := *c
	if conf.MaxAttempts <= 0 {
		logger.Error("sanitizing invalid governor max attempts", "provided", conf.MaxAttempts, "updated", bridge.MaxAttempts)
		conf.MaxAttempts = bridge.MaxAttempts
	}
	if conf.MaxBackoff <= 0 {
		logger.Error("sanitizing invalid governor max backoff", "provided", conf.MaxBackoff, "updated", 24*time.Hour)
		conf.MaxBackoff = 24 * time.Hour
	}
	return conf
}

// Governor implements the per-record exponential-backoff gate and the
// exception-history bookkeeping that goes with it.
type Governor struct {
	config Config
}

// New creates a retry governor with sanitized configuration.
func New(config Config) *Governor {
	config = (&config).sanitize()
	return &Governor{config: config}
}

// Backoff returns min(2^attempts, cap) minutes.
func (g *Governor) Backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	// Guard against overflow for large attempt counts; the cap dominates well
	// before attempts reaches 63.
	minutes := g.config.MaxBackoff / time.Minute
	if attempts < 62 {
		shifted := time.Duration(1) << uint(attempts)
		if shifted < minutes {
			minutes = shifted
		}
	}
	return minutes * time.Minute
}

// ShouldProcess implements should_process(record): true iff last_error_at is
// nil, or now is at/after last_error_at + Backoff(attempts).
func (g *Governor) ShouldProcess(lastErrorAt *time.Time, attempts int, now time.Time) bool {
	if lastErrorAt == nil {
		return true
	}
	next := lastErrorAt.Add(g.Backoff(attempts))
	return !now.Before(next)
}

// Outcome is the mutation the governor wants applied to a record's
// retry-bookkeeping fields; callers persist it inside the same transaction
// as the rest of the state transition.
type Outcome struct {
	ExceptionHistory bridge.ExceptionHistory
	Attempts         int
	LastErrorAt      *time.Time
	ForceMaxAttempts bool
}

// OnException records a failed attempt: increments exception_history,
// recomputes attempts = min(sum(history), MaxAttempts), sets last_error_at =
// now, and signals FAILED_TRANSACTION_MAX_ATTEMPTS once attempts reaches the
// configured cap.
func (g *Governor) OnException(history bridge.ExceptionHistory, err error, now time.Time) Outcome {
	if history == nil {
		history = bridge.ExceptionHistory{}
	}
	history = history.Record(err.Error())
	attempts := history.Sum()
	forceMax := false
	if attempts >= g.config.MaxAttempts {
		attempts = g.config.MaxAttempts
		forceMax = true
	}
	logger.Warn("retryable exception recorded", "err", err, "attempts", attempts, "max_attempts", forceMax)
	return Outcome{
		ExceptionHistory: history,
		Attempts:         attempts,
		LastErrorAt:      &now,
		ForceMaxAttempts: forceMax,
	}
}

// OnSuccess clears exception_history, attempts and last_error_at.
func (g *Governor) OnSuccess() Outcome {
	return Outcome{
		ExceptionHistory: bridge.ExceptionHistory{},
		Attempts:         0,
		LastErrorAt:      nil,
	}
}
