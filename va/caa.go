package va

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/miekg/dns"

	berrors "github.com/letsencrypt/dcv/errors"
	"github.com/letsencrypt/dcv/features"
)

// CAAParams scopes a CAA check to the ACME account and validation method
// that requested it, needed to evaluate the accounturi and
// validationmethods CAA parameters.
type CAAParams struct {
	AccountURIID     int64
	ValidationMethod string
}

// CheckCAA performs a CAA lookup and validation for domain, run by every
// network-facing Validate method alongside its primary probe — never in
// place of it. ValidateEmail, which makes no network probe, does not run it.
// Returns nil if issuance is permitted.
func (h *Handlers) CheckCAA(ctx context.Context, domain string, params CAAParams) error {
	present, valid, err := h.checkCAARecords(ctx, domain, params)
	if err != nil {
		return berrors.WrapDcv(berrors.DNSLookupIO, err, "checking CAA records for %s", domain)
	}
	h.log.AuditInfof("Checked CAA records for %s, [Present: %t, Method: %s, Valid for issuance: %t]",
		domain, present, params.ValidationMethod, valid)
	if !valid {
		return berrors.NewDcv(berrors.DNSLookupRecordNotFound, "CAA record for %s prevents issuance", domain)
	}
	return nil
}

// caaSet holds CAA records filtered by property tag.
type caaSet struct {
	Issue     []*dns.CAA
	Issuewild []*dns.CAA
	Iodef     []*dns.CAA
	Unknown   []*dns.CAA
}

// criticalUnknown reports whether any unknown-tag record is flagged
// critical. Both the RFC 6844 critical bit (128) and the commonly
// misinterpreted bit (1) are honored.
func (s caaSet) criticalUnknown() bool {
	for _, r := range s.Unknown {
		if (r.Flag & (128 | 1)) != 0 {
			return true
		}
	}
	return false
}

func newCAASet(caas []*dns.CAA) *caaSet {
	var s caaSet
	for _, r := range caas {
		switch strings.ToLower(r.Tag) {
		case "issue":
			s.Issue = append(s.Issue, r)
		case "issuewild":
			s.Issuewild = append(s.Issuewild, r)
		case "iodef":
			s.Iodef = append(s.Iodef, r)
		default:
			s.Unknown = append(s.Unknown, r)
		}
	}
	return &s
}

type caaLookupResult struct {
	records []*dns.CAA
	err     error
}

// getCAASet walks hostname's labels from most to least specific, in
// parallel, and returns the first non-empty CAA set found, per RFC 6844's
// "Certification Authority Processing" algorithm as amended by errata 5065.
func (h *Handlers) getCAASet(ctx context.Context, hostname string) (*caaSet, error) {
	hostname = strings.TrimRight(hostname, ".")
	labels := strings.Split(hostname, ".")
	results := make([]caaLookupResult, len(labels))

	var wg sync.WaitGroup
	for i := range labels {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			records, err := h.dns.LookupCAA(ctx, name)
			results[i] = caaLookupResult{records: records, err: err}
		}(i, strings.Join(labels[i:], "."))
	}
	wg.Wait()

	for _, res := range results {
		if res.err != nil {
			return nil, res.err
		}
		if len(res.records) > 0 {
			return newCAASet(res.records), nil
		}
	}
	return nil, nil
}

func (h *Handlers) checkCAARecords(ctx context.Context, domain string, params CAAParams) (present, valid bool, err error) {
	hostname := strings.ToLower(domain)
	wildcard := strings.HasPrefix(hostname, "*.")
	if wildcard {
		hostname = strings.TrimPrefix(hostname, "*.")
	}
	set, err := h.getCAASet(ctx, hostname)
	if err != nil {
		return false, false, err
	}
	present, valid = h.validateCAASet(set, wildcard, params)
	return present, valid, nil
}

// validateCAASet evaluates a fetched caaSet against this CA's own issuer
// domain and the requesting account/method, per RFC 8659 §5.3 (issuewild
// precedence for wildcard names) and RFC 8657 (accounturi/validationmethods
// parameter binding).
func (h *Handlers) validateCAASet(set *caaSet, wildcard bool, params CAAParams) (present, valid bool) {
	if set == nil {
		return false, true
	}
	if set.criticalUnknown() {
		return true, false
	}
	if len(set.Issue) == 0 && !wildcard {
		return true, true
	}

	records := set.Issue
	if wildcard && len(set.Issuewild) > 0 {
		records = set.Issuewild
	}

	for _, caa := range records {
		parsedDomain, parsedParams, err := parseCAARecord(caa)
		if err != nil {
			continue
		}
		if !caaDomainMatches(parsedDomain, h.issuerDomain) {
			continue
		}
		if features.Enabled(features.CAAAccountURIChecking) {
			if !caaAccountURIMatches(parsedParams, h.accountURIPrefixes, params.AccountURIID) {
				continue
			}
		}
		if !caaValidationMethodMatches(parsedParams, params.ValidationMethod) {
			continue
		}
		return true, true
	}
	return true, false
}

// parseCAARecord extracts the domain and tag=value parameters from an
// issue/issuewild CAA record's value, per RFC 8659 §4.2-4.3.
func parseCAARecord(caa *dns.CAA) (string, map[string]string, error) {
	isWSP := func(r rune) bool { return r == '\t' || r == ' ' }

	parts := strings.Split(caa.Value, ";")
	domain := strings.TrimFunc(parts[0], isWSP)
	paramList := parts[1:]
	params := make(map[string]string)

	if len(paramList) == 1 && strings.TrimFunc(paramList[0], isWSP) == "" {
		return domain, params, nil
	}

	for _, parameter := range paramList {
		tv := strings.SplitN(parameter, "=", 2)
		if len(tv) != 2 {
			return "", nil, fmt.Errorf("parameter not formatted as tag=value: %q", parameter)
		}
		tag := strings.TrimFunc(tv[0], isWSP)
		for _, r := range []rune(tag) {
			if r < 0x30 || (r > 0x39 && r < 0x41) || (r > 0x5a && r < 0x61) || r > 0x7a {
				return "", nil, fmt.Errorf("tag contains disallowed character: %q", tag)
			}
		}
		value := strings.TrimFunc(tv[1], isWSP)
		for _, r := range []rune(value) {
			if r < 0x21 || (r > 0x3a && r < 0x3c) || r > 0x7e {
				return "", nil, fmt.Errorf("value contains disallowed character: %q", value)
			}
		}
		params[tag] = value
	}
	return domain, params, nil
}

func caaDomainMatches(caaDomain, issuerDomain string) bool {
	return caaDomain == issuerDomain
}

// caaAccountURIMatches checks the accounturi CAA parameter, if present,
// against this CA's own account URI prefixes, per RFC 8657 §3.
func caaAccountURIMatches(params map[string]string, accountURIPrefixes []string, accountID int64) bool {
	accountURI, ok := params["accounturi"]
	if !ok {
		return true
	}
	if _, err := url.Parse(accountURI); err != nil {
		return false
	}
	for _, prefix := range accountURIPrefixes {
		if accountURI == fmt.Sprintf("%s%d", prefix, accountID) {
			return true
		}
	}
	return false
}

var validationMethodRegexp = regexp.MustCompile(`^[[:alnum:]-]+$`)

// caaValidationMethodMatches checks the validationmethods CAA parameter, if
// present, against the method actually used, per RFC 8657 §4.
func caaValidationMethodMatches(params map[string]string, method string) bool {
	commaSeparated, ok := params["validationmethods"]
	if !ok {
		return true
	}
	for _, m := range strings.Split(commaSeparated, ",") {
		if !validationMethodRegexp.MatchString(m) {
			return false
		}
		if m == method {
			return true
		}
	}
	return false
}
