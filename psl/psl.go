// Package psl computes the registrable domain for a name: the shortest
// suffix one label longer than the longest matching Public Suffix List
// entry. A caller-supplied override hook is consulted first, so an
// embedding CA can special-case internal TLDs without patching the list.
package psl

import (
	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// OverrideFunc is consulted before the built-in list. Returning ("", false)
// defers to the built-in Public Suffix List.
type OverrideFunc func(domain string) (registrableDomain string, ok bool)

// Helper computes registrable domains, optionally consulting an override.
type Helper struct {
	override OverrideFunc
}

// New constructs a Helper. override may be nil.
func New(override OverrideFunc) *Helper {
	return &Helper{override: override}
}

// RegistrableDomain returns the registrable domain of d, e.g.
// "www.example.co.uk" -> "example.co.uk".
func (h *Helper) RegistrableDomain(d string) (string, error) {
	if h.override != nil {
		if rd, ok := h.override(d); ok {
			return rd, nil
		}
	}
	domain, err := publicsuffix.DomainFromListWithOptions(publicsuffix.DefaultList, d, &publicsuffix.FindOptions{
		IgnorePrivate: true,
	})
	if err != nil {
		return "", err
	}
	return domain, nil
}
