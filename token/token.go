// Package token implements the Request-Token challenge scheme: a string of
// the form <yyyymmddHHmmss><hex-sha256> binding a CA-side key and a
// caller-supplied value (typically a CSR or an ACME account key
// thumbprint) to a timestamp. Validation scans a text body for candidate
// substrings rather than requiring the token to be the entire body, since a
// file may carry boilerplate text around it.
package token

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"time"

	"github.com/jmhodges/clock"

	berrors "github.com/letsencrypt/dcv/errors"
)

const (
	timestampLayout = "20060102150405" // yyyymmddHHmmss, UTC

	timestampLen = 14
	hashLen      = sha256.Size * 2 // hex-encoded
	tokenLen     = timestampLen + hashLen

	// DefaultValidityWindow is the look-back window a token's embedded
	// timestamp must fall within.
	DefaultValidityWindow = 30 * 24 * time.Hour
)

// candidatePattern matches any run of exactly tokenLen timestamp+hex
// characters, used to scan a body for candidate tokens.
var candidatePattern = regexp.MustCompile(`[0-9]{14}[0-9a-fA-F]{64}`)

// Generate builds a Request-Token for (key, value) stamped at t (truncated
// to second precision, UTC).
func Generate(key, value string, t time.Time) string {
	ts := t.UTC().Format(timestampLayout)
	sum := sha256.Sum256([]byte(key + value + ts))
	return ts + hex.EncodeToString(sum[:])
}

// Verifier validates Request-Tokens found in a text body against a
// (key, value) pair.
type Verifier struct {
	clk            clock.Clock
	validityWindow time.Duration
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithClock injects a fake clock for testing.
func WithClock(clk clock.Clock) Option {
	return func(v *Verifier) { v.clk = clk }
}

// WithValidityWindow overrides the default 30-day look-back window.
func WithValidityWindow(d time.Duration) Option {
	return func(v *Verifier) { v.validityWindow = d }
}

// New constructs a Verifier with defaults, applying any Options.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		clk:            clock.New(),
		validityWindow: DefaultValidityWindow,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate scans body for any substring matching the Request-Token format
// and returns the first one whose re-computed hash matches (key, value) and
// whose embedded timestamp falls in [now - validityWindow, now]. It returns
// the matched token string on success.
//
// Errors are returned in order of specificity: an empty body short-circuits
// immediately; a non-empty body with no well-formed candidate returns
// ErrorNotFound; a well-formed candidate whose hash never matches returns
// ErrorInvalidToken; a matching-hash candidate with a bad timestamp returns
// ErrorFutureDate or ErrorDateExpired.
func (v *Verifier) Validate(key, value, body string) (string, error) {
	if body == "" {
		return "", berrors.NewDcv(berrors.RequestTokenEmptyTextBody, "body is empty")
	}

	candidates := candidatePattern.FindAllString(body, -1)
	if len(candidates) == 0 {
		return "", berrors.NewDcv(berrors.RequestTokenErrorNotFound, "no request-token-shaped substring found")
	}

	now := v.clk.Now().UTC()
	sawHashMismatch := false
	var dateErr error

	for _, cand := range candidates {
		if len(cand) != tokenLen {
			continue
		}
		ts := cand[:timestampLen]
		gotHash := cand[timestampLen:]

		sum := sha256.Sum256([]byte(key + value + ts))
		wantHash := hex.EncodeToString(sum[:])
		if gotHash != wantHash {
			sawHashMismatch = true
			continue
		}

		t, err := time.Parse(timestampLayout, ts)
		if err != nil {
			sawHashMismatch = true
			continue
		}
		t = t.UTC()

		if t.After(now) {
			if dateErr == nil {
				dateErr = berrors.NewDcv(berrors.RequestTokenErrorFutureDate, "token timestamp %s is in the future", ts)
			}
			continue
		}
		if now.Sub(t) > v.validityWindow {
			if dateErr == nil {
				dateErr = berrors.NewDcv(berrors.RequestTokenErrorDateExpired, "token timestamp %s exceeds validity window", ts)
			}
			continue
		}
		return cand, nil
	}

	if dateErr != nil {
		return "", dateErr
	}
	if sawHashMismatch {
		return "", berrors.NewDcv(berrors.RequestTokenErrorInvalidToken, "no candidate token's hash matched")
	}
	return "", berrors.NewDcv(berrors.RequestTokenErrorNotFound, "no well-formed request token found")
}
