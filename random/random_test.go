package random

import (
	"testing"
	"time"

	"github.com/jmhodges/clock"

	berrors "github.com/letsencrypt/dcv/errors"
	"github.com/letsencrypt/dcv/test"
)

func TestGenerateLengthAndAlphabet(t *testing.T) {
	rv, err := Generate()
	test.AssertNotError(t, err, "Generate")
	test.AssertEquals(t, len(rv), DefaultLength)
	for _, r := range rv {
		if !((r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			t.Fatalf("Generate produced non-alphanumeric rune %q", r)
		}
	}
}

func TestGenerateValueIsNotConstant(t *testing.T) {
	a, err := Generate()
	test.AssertNotError(t, err, "Generate")
	b, err := Generate()
	test.AssertNotError(t, err, "Generate")
	if a == b {
		t.Fatalf("two successive Generate calls produced the same value")
	}
}

func TestVerifyRejectsShortValues(t *testing.T) {
	fc := clock.NewFake()
	fc.Set(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	v := New(WithClock(fc))

	err := v.Verify("tooshort", fc.Now())
	test.AssertError(t, err, "Verify should reject a too-short candidate")
	code, ok := berrors.CodeOf(err)
	test.AssertEquals(t, ok, true)
	test.AssertEquals(t, code, berrors.RandomValueInsufficientEntropy)
}

func TestVerifyRejectsEmpty(t *testing.T) {
	fc := clock.NewFake()
	v := New(WithClock(fc))
	err := v.Verify("", fc.Now())
	code, _ := berrors.CodeOf(err)
	test.AssertEquals(t, code, berrors.RandomValueEmptyTextBody)
}

func TestVerifyAcceptsFreshValue(t *testing.T) {
	fc := clock.NewFake()
	fc.Set(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	v := New(WithClock(fc))

	rv, err := Generate()
	test.AssertNotError(t, err, "Generate")
	test.AssertNotError(t, v.Verify(rv, fc.Now()), "Verify should accept a fresh, full-length value")
}

func TestVerifyRejectsExpiredValue(t *testing.T) {
	fc := clock.NewFake()
	fc.Set(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	v := New(WithClock(fc), WithValidityWindow(24*time.Hour))

	rv, err := Generate()
	test.AssertNotError(t, err, "Generate")
	prepareTime := fc.Now()
	fc.Add(48 * time.Hour)

	err = v.Verify(rv, prepareTime)
	code, _ := berrors.CodeOf(err)
	test.AssertEquals(t, code, berrors.RandomValueExpired)
}

func TestVerifyToleratesClockSkew(t *testing.T) {
	fc := clock.NewFake()
	fc.Set(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	v := New(WithClock(fc), WithClockSkew(10*time.Second))

	rv, err := Generate()
	test.AssertNotError(t, err, "Generate")
	futurePrepareTime := fc.Now().Add(5 * time.Second)
	test.AssertNotError(t, v.Verify(rv, futurePrepareTime), "Verify should tolerate prepareTime within clock skew")
}

func TestMatch(t *testing.T) {
	test.AssertEquals(t, Match("abc", "abc"), true)
	test.AssertEquals(t, Match("abc", "abd"), false)
}
