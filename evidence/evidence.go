// Package evidence assembles the immutable DomainValidationEvidence record
// a method handler returns once MPIC has corroborated its probe.
package evidence

import (
	"time"

	"github.com/letsencrypt/dcv/core"
)

// Builder accumulates the fields of one evidence record. Exactly one
// method-specific field (RandomValue/RequestToken, FileURL/DNSRecordName/
// EmailAddress) should be set by the caller before calling Build.
type Builder struct {
	ev core.DomainValidationEvidence
}

// New starts a Builder for domain validated under method, stamped at now.
// brVersion defaults to core.DefaultBRVersion if empty.
func New(domain string, method core.DcvMethod, now time.Time, brVersion string) *Builder {
	if brVersion == "" {
		brVersion = core.DefaultBRVersion
	}
	return &Builder{ev: core.DomainValidationEvidence{
		Domain:         domain,
		Method:         method,
		ValidationDate: now,
		BRVersion:      brVersion,
	}}
}

func (b *Builder) WithRandomValue(v string) *Builder {
	b.ev.RandomValue = v
	return b
}

func (b *Builder) WithRequestToken(v string) *Builder {
	b.ev.RequestToken = v
	return b
}

func (b *Builder) WithFileURL(v string) *Builder {
	b.ev.FileURL = v
	return b
}

func (b *Builder) WithDNSRecord(name, rrtype string) *Builder {
	b.ev.DNSRecordName = name
	b.ev.DNSType = rrtype
	return b
}

func (b *Builder) WithEmailAddress(v string) *Builder {
	b.ev.EmailAddress = v
	return b
}

func (b *Builder) WithMpicDetails(d core.MpicDetails) *Builder {
	b.ev.MpicDetails = d
	return b
}

func (b *Builder) WithDNSSECDetails(d *core.DNSSECDetails) *Builder {
	b.ev.DNSSECDetails = d
	return b
}

// Build returns the finished, immutable evidence record.
func (b *Builder) Build() core.DomainValidationEvidence {
	return b.ev
}
