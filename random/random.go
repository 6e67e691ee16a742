// Package random generates and verifies the RANDOM_VALUE challenge secret:
// a high-entropy alphanumeric string with a configurable validity window.
// Generation uses crypto/rand directly; verification takes an injected
// clock.Clock so tests can move time without sleeping.
package random

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/jmhodges/clock"

	berrors "github.com/letsencrypt/dcv/errors"
)

const (
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// DefaultLength is the generated length and the default minimum
	// accepted length. 32 alphanumeric characters carry log2(62^32) ≈ 190
	// bits, well above the BR's ≥112-bit entropy floor.
	DefaultLength = 32

	// DefaultValidityWindow is how long a generated value remains
	// acceptable to Verify.
	DefaultValidityWindow = 30 * 24 * time.Hour

	// DefaultClockSkew is the amount of clock drift Verify tolerates
	// between the caller's prepareTime and this process's clock.
	DefaultClockSkew = 5 * time.Second
)

// Verifier checks generated random values for minimum length and freshness.
type Verifier struct {
	clk            clock.Clock
	minLength      int
	validityWindow time.Duration
	clockSkew      time.Duration
}

// Option customizes a Verifier away from its defaults.
type Option func(*Verifier)

// WithClock injects a fake clock for testing.
func WithClock(clk clock.Clock) Option {
	return func(v *Verifier) { v.clk = clk }
}

// WithMinLength overrides the minimum accepted length (default 32).
func WithMinLength(n int) Option {
	return func(v *Verifier) { v.minLength = n }
}

// WithValidityWindow overrides how long a value remains fresh (default 30d).
func WithValidityWindow(d time.Duration) Option {
	return func(v *Verifier) { v.validityWindow = d }
}

// WithClockSkew overrides the tolerated future-dated prepareTime (default 5s).
func WithClockSkew(d time.Duration) Option {
	return func(v *Verifier) { v.clockSkew = d }
}

// New constructs a Verifier with defaults, applying any Options.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		clk:            clock.New(),
		minLength:      DefaultLength,
		validityWindow: DefaultValidityWindow,
		clockSkew:      DefaultClockSkew,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Generate draws a cryptographically random alphanumeric string of
// DefaultLength characters using rejection sampling against the alphabet,
// so the result carries no modulo bias.
func Generate() (string, error) {
	return GenerateLength(DefaultLength)
}

// GenerateLength is Generate with a caller-chosen length.
func GenerateLength(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", berrors.InternalServerError("random: failed to draw entropy: %s", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// Verify checks candidate against the library's entropy floor and checks
// prepareTime against the validity window and clock skew tolerance.
// Verification never inspects the bits of candidate beyond its length —
// entropy is enforced only at Generate time.
func (v *Verifier) Verify(candidate string, prepareTime time.Time) error {
	if candidate == "" {
		return berrors.NewDcv(berrors.RandomValueEmptyTextBody, "random value is empty")
	}
	if len(candidate) < v.minLength {
		return berrors.NewDcv(berrors.RandomValueInsufficientEntropy, "random value shorter than %d characters", v.minLength)
	}
	now := v.clk.Now()
	if prepareTime.After(now.Add(v.clockSkew)) {
		return berrors.NewDcv(berrors.RandomValueExpired, "prepareTime %s is in the future", prepareTime)
	}
	if now.Sub(prepareTime) > v.validityWindow {
		return berrors.NewDcv(berrors.RandomValueExpired, "random value prepared at %s exceeds validity window %s", prepareTime, v.validityWindow)
	}
	return nil
}

// Match reports whether got equals want exactly, the final step of a
// RANDOM_VALUE challenge once Verify has accepted the candidate's shape.
func Match(got, want string) bool {
	return got == want
}
