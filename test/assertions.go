// Package test provides assertion helpers shared by every package's test
// files, in place of a third-party assertion library.
package test

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// AssertEquals checks that two values are equal using ==, failing the test
// with both values on mismatch.
func AssertEquals[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

// AssertDeepEquals checks that two values are reflect.DeepEqual, for
// structs and slices that don't satisfy comparable.
func AssertDeepEquals(t *testing.T, got, want interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

// AssertNotError fails the test if err is non-nil, including msg in the
// failure for context.
func AssertNotError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %s", msg, err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error, got nil", msg)
	}
}

// AssertErrorIs fails the test unless errors.Is(err, target) holds.
func AssertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("got error %v, want it to match %v via errors.Is", err, target)
	}
}

// AssertContains fails the test unless haystack contains needle as a
// substring.
func AssertContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("%q does not contain %q", haystack, needle)
	}
}

// AssertSliceContains fails the test unless want appears somewhere in got.
func AssertSliceContains[T comparable](t *testing.T, got []T, want T) {
	t.Helper()
	for _, g := range got {
		if g == want {
			return
		}
	}
	t.Fatalf("%#v does not contain %#v", got, want)
}

// AssertBoxedNil fails the test if err is nil. It makes the same check as
// AssertError and does not inspect the value held by a non-nil err.
func AssertBoxedNil(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected non-nil error", msg)
	}
}
