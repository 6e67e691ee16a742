// Package emailprovider discovers the set of email addresses a BR
// email-based validation method may contact, per spec §4.7's three
// strategies, and pairs each discovered address with a random value of its
// own — the BR forbids reusing one random value across multiple addresses.
package emailprovider

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/letsencrypt/dcv/bdns"
	berrors "github.com/letsencrypt/dcv/errors"
	"github.com/letsencrypt/dcv/psl"
	"github.com/letsencrypt/dcv/random"
)

// Source selects which strategy discovers candidate addresses.
type Source string

const (
	// SourceConstructed emits the five BR-mandated role addresses without
	// any network lookup.
	SourceConstructed Source = "CONSTRUCTED"
	// SourceDNSTXT discovers addresses from a TXT record at a
	// BR-specified validation label.
	SourceDNSTXT Source = "DNS_TXT"
	// SourceDNSCAA discovers addresses from the CAA contactemail property.
	SourceDNSCAA Source = "DNS_CAA"
)

// constructedLocalParts are the role addresses BR 3.2.2.4.4 recognizes.
var constructedLocalParts = []string{"admin", "administrator", "webmaster", "hostmaster", "postmaster"}

// Address pairs a discovered email address with the DNS record name it was
// found at (empty for SourceConstructed) and a distinct random value.
type Address struct {
	Email         string
	DNSRecordName string
	RandomValue   string
}

// Provider discovers validation addresses for a domain.
type Provider struct {
	dns bdns.Client
	psl *psl.Helper
}

// New constructs a Provider.
func New(dns bdns.Client, pslHelper *psl.Helper) *Provider {
	return &Provider{dns: dns, psl: pslHelper}
}

// Discover returns the candidate addresses for domain under the given
// source strategy.
func (p *Provider) Discover(ctx context.Context, source Source, domain string) ([]Address, error) {
	switch source {
	case SourceConstructed:
		return p.discoverConstructed(domain)
	case SourceDNSTXT:
		return p.discoverDNSTXT(ctx, domain)
	case SourceDNSCAA:
		return p.discoverDNSCAA(ctx, domain)
	default:
		return nil, berrors.NewDcv(berrors.InvalidEmailAddress, "unknown email source %q", source)
	}
}

func (p *Provider) discoverConstructed(domain string) ([]Address, error) {
	addrs := make([]Address, 0, len(constructedLocalParts))
	for _, local := range constructedLocalParts {
		rv, err := random.Generate()
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, Address{
			Email:       fmt.Sprintf("%s@%s", local, domain),
			RandomValue: rv,
		})
	}
	return addrs, nil
}

func (p *Provider) discoverDNSTXT(ctx context.Context, domain string) ([]Address, error) {
	name := "_validation-contactemail." + domain
	records, matchedName, err := p.dns.LookupTXT(ctx, []string{name})
	if err != nil {
		return nil, err
	}
	return p.toAddresses(records, matchedName)
}

func (p *Provider) discoverDNSCAA(ctx context.Context, domain string) ([]Address, error) {
	names := []string{domain}
	if p.psl != nil {
		if reg, err := p.psl.RegistrableDomain(domain); err == nil && reg != "" && reg != domain {
			names = append(names, reg)
		}
	}

	var emails []string
	var matchedName string
	for _, name := range names {
		caas, err := p.dns.LookupCAA(ctx, name)
		if err != nil {
			continue
		}
		for _, caa := range caas {
			if !strings.EqualFold(caa.Tag, "issue") && !strings.EqualFold(caa.Tag, "issuewild") {
				continue
			}
			for _, param := range strings.Split(caa.Value, ";") {
				kv := strings.SplitN(strings.TrimSpace(param), "=", 2)
				if len(kv) == 2 && strings.EqualFold(strings.TrimSpace(kv[0]), "contactemail") {
					emails = append(emails, strings.TrimSpace(kv[1]))
				}
			}
		}
		if len(emails) > 0 {
			matchedName = name
			break
		}
	}
	if len(emails) == 0 {
		return nil, berrors.NewDcv(berrors.DNSLookupRecordNotFound, "no CAA contactemail property found for %s", domain)
	}
	return p.toAddresses(emails, matchedName)
}

func (p *Provider) toAddresses(rawEmails []string, recordName string) ([]Address, error) {
	var addrs []Address
	for _, raw := range rawEmails {
		if _, err := mail.ParseAddress(raw); err != nil {
			return nil, berrors.WrapDcv(berrors.InvalidEmailAddress, err, "malformed email address %q", raw)
		}
		rv, err := random.Generate()
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, Address{Email: raw, DNSRecordName: recordName, RandomValue: rv})
	}
	return addrs, nil
}
