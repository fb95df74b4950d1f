package ctlscript

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// RestartPolicy bounds how the generated runtime recovers from errors. An
// EOS restart always waits Delay and clears the attempt count. The zero
// value means DefaultRestartPolicy.
type RestartPolicy struct {
	Delay       time.Duration `yaml:"delay" json:"delay"`               // pause before the first restart
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`       // backoff ceiling
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`     // growth per consecutive restart
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"` // 0 = unlimited
	StableAfter time.Duration `yaml:"stable_after" json:"stable_after"` // PLAYING this long resets the attempt count
}

// DefaultRestartPolicy keeps the "always recover" behaviour with a one
// second grace pause, backing off only on rapid consecutive errors.
var DefaultRestartPolicy = RestartPolicy{
	Delay:       time.Second,
	MaxDelay:    30 * time.Second,
	Multiplier:  2,
	MaxAttempts: 0,
	StableAfter: 10 * time.Second,
}

// Normalize fills unset fields from DefaultRestartPolicy.
func (p RestartPolicy) Normalize() RestartPolicy {
	if p.Delay <= 0 {
		p.Delay = DefaultRestartPolicy.Delay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultRestartPolicy.MaxDelay
	}
	if p.MaxDelay < p.Delay {
		p.MaxDelay = p.Delay
	}
	if p.Multiplier < 1 {
		p.Multiplier = DefaultRestartPolicy.Multiplier
	}
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	if p.StableAfter <= 0 {
		p.StableAfter = DefaultRestartPolicy.StableAfter
	}
	return p
}

// Backoff returns the pause before the given consecutive restart (1-based)
// and whether that restart is allowed at all.
func (p RestartPolicy) Backoff(attempt int) (time.Duration, bool) {
	p = p.Normalize()
	if attempt < 1 {
		attempt = 1
	}
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return 0, false
	}
	d := float64(p.Delay) * math.Pow(p.Multiplier, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay, true
	}
	return time.Duration(d), true
}

// AdvanceMode selects what happens to the source URIs on each restart.
type AdvanceMode string

const (
	// AdvanceRestart restarts the pipeline as described; sources stay on the
	// first playlist entry.
	AdvanceRestart AdvanceMode = "restart"
	// AdvanceReload sets each named source's uri from its cursor before every
	// start, so restarts move through the playlist.
	AdvanceReload AdvanceMode = "reload"
)

// ParseAdvanceMode accepts "restart" or "reload"; empty means restart.
func ParseAdvanceMode(s string) (AdvanceMode, error) {
	switch AdvanceMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", AdvanceRestart:
		return AdvanceRestart, nil
	case AdvanceReload:
		return AdvanceReload, nil
	}
	return "", fmt.Errorf("unknown advance mode %q (want restart or reload)", s)
}
