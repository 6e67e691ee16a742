package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDcvErrorIsMatchesOnCodeOnly(t *testing.T) {
	a := NewDcv(RandomValueExpired, "prepared too long ago")
	b := NewDcv(RandomValueExpired, "a completely different detail")
	if !errors.Is(a, b) {
		t.Fatalf("expected errors.Is to match on Code alone")
	}
	c := NewDcv(RandomValueNotFound, "")
	if errors.Is(a, c) {
		t.Fatalf("expected errors.Is to distinguish different codes")
	}
}

func TestWrapDcvUnwrapsToCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	wrapped := WrapDcv(DNSLookupIO, cause, "looking up %s", "example.com")
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected errors.Is(wrapped, cause) to hold via Unwrap")
	}
}

func TestCodeOf(t *testing.T) {
	err := NewDcv(MPICQuorumNotMet, "1 of 2 required")
	code, ok := CodeOf(err)
	if !ok || code != MPICQuorumNotMet {
		t.Fatalf("CodeOf returned (%v, %v), want (%v, true)", code, ok, MPICQuorumNotMet)
	}

	_, ok = CodeOf(fmt.Errorf("plain error"))
	if ok {
		t.Fatalf("CodeOf should not match a plain error")
	}
}

func TestSetUnion(t *testing.T) {
	var s Set
	if !s.Empty() {
		t.Fatalf("zero-value Set should be empty")
	}
	s.Add(NewDcv(DNSLookupRecordNotFound, "no record at _acme-challenge.example.com"))
	s.Add(NewDcv(DNSLookupRecordNotFound, "no record at example.com"))
	if s.Empty() {
		t.Fatalf("Set should not be empty after Add")
	}
	if len(s.All()) != 2 {
		t.Fatalf("expected 2 recorded errors, got %d", len(s.All()))
	}
	union := s.Union()
	if union == nil {
		t.Fatalf("Union should not be nil")
	}
}

func TestIsInput(t *testing.T) {
	if !DomainRequired.IsInput() {
		t.Fatalf("DomainRequired should be an input-family code")
	}
	if RandomValueExpired.IsInput() {
		t.Fatalf("RandomValueExpired should not be an input-family code")
	}
}

func TestBoulderErrorCategory(t *testing.T) {
	err := NotSupportedError("tls-alpn-01 validation is not implemented by this library")
	be, ok := err.(*BoulderError)
	if !ok {
		t.Fatalf("expected a *BoulderError, got %T", err)
	}
	if be.Type != NotSupported {
		t.Fatalf("expected Type NotSupported, got %v", be.Type)
	}

	internal := InternalServerError("bdns: at least one DNS server must be configured")
	be, ok = internal.(*BoulderError)
	if !ok {
		t.Fatalf("expected a *BoulderError, got %T", internal)
	}
	if be.Type != InternalServer {
		t.Fatalf("expected Type InternalServer, got %v", be.Type)
	}
}
