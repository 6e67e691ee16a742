package psl

import (
	"testing"

	"github.com/letsencrypt/dcv/test"
)

func TestRegistrableDomain(t *testing.T) {
	h := New(nil)
	got, err := h.RegistrableDomain("www.example.co.uk")
	test.AssertNotError(t, err, "RegistrableDomain")
	test.AssertEquals(t, got, "example.co.uk")
}

func TestRegistrableDomainOverrideTakesPrecedence(t *testing.T) {
	h := New(func(domain string) (string, bool) {
		if domain == "host.internal.corp" {
			return "internal.corp", true
		}
		return "", false
	})

	got, err := h.RegistrableDomain("host.internal.corp")
	test.AssertNotError(t, err, "RegistrableDomain")
	test.AssertEquals(t, got, "internal.corp")
}

func TestRegistrableDomainOverrideFallsThrough(t *testing.T) {
	h := New(func(domain string) (string, bool) { return "", false })
	got, err := h.RegistrableDomain("www.example.com")
	test.AssertNotError(t, err, "RegistrableDomain")
	test.AssertEquals(t, got, "example.com")
}
