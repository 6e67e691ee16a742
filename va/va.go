// Package va implements the method-specific prepare/validate logic for
// every BR and ACME domain control validation method: DNS change (BR
// 3.2.2.4.7), file authentication (BR 3.2.2.4.18), email (BR 3.2.2.4.4 and
// 3.2.2.4.13/14), and ACME HTTP-01/DNS-01/TLS-ALPN-01. Handlers is
// constructed once with its collaborators (DNS client, file client, MPIC
// corroborator) and is then safe for concurrent use — it holds no mutable
// state between calls.
package va

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/jmhodges/clock"
	"github.com/miekg/dns"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/letsencrypt/dcv/acmeutil"
	"github.com/letsencrypt/dcv/bdns"
	"github.com/letsencrypt/dcv/core"
	"github.com/letsencrypt/dcv/emailprovider"
	berrors "github.com/letsencrypt/dcv/errors"
	"github.com/letsencrypt/dcv/evidence"
	"github.com/letsencrypt/dcv/features"
	"github.com/letsencrypt/dcv/fileclient"
	"github.com/letsencrypt/dcv/identifier"
	blog "github.com/letsencrypt/dcv/log"
	"github.com/letsencrypt/dcv/metrics"
	"github.com/letsencrypt/dcv/mpic"
	"github.com/letsencrypt/dcv/psl"
	"github.com/letsencrypt/dcv/random"
	"github.com/letsencrypt/dcv/token"
)

// Corroborator is the subset of mpic.Service every handler depends on,
// declared here so tests can substitute a fake without importing mpic's
// concrete Service.
type Corroborator interface {
	Corroborate(ctx context.Context, spec mpic.Spec) (*mpic.Result, error)
}

// FileFetcher is the subset of fileclient.Client every handler depends on,
// declared here (mirroring Corroborator and bdns.Client) so ValidateFile and
// ValidateACMEHTTP01 can be exercised against a fake without a network.
type FileFetcher interface {
	Fetch(ctx context.Context, host, path string) (*fileclient.Result, error)
}

// Config carries every tunable the method handlers need, mirroring the
// library's recognized configuration options.
type Config struct {
	DNSDomainLabel             string // "" = no labeled-name preference
	FileValidationFilename     string // default "fileauth.txt"
	FileValidationCheckHTTPS   bool
	RandomValueValidityWindow  time.Duration
	MinRandomValueLength       int
	RequestTokenValidityWindow time.Duration
	MPICQuorum                 int
	MPICTotalDeadline          time.Duration
	IssuerDomain               string
	AccountURIPrefixes         []string
}

type handlerMetrics struct {
	validationTime *prometheus.HistogramVec
	caaOutcomes    *prometheus.CounterVec
}

func initMetrics(reg prometheus.Registerer) *handlerMetrics {
	validationTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dcv_validation_duration_seconds",
		Help:    "Time taken to validate a challenge, labeled by method and result.",
		Buckets: metrics.InternetFacingBuckets,
	}, []string{"method", "result"})
	caaOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dcv_caa_outcomes_total",
		Help: "Count of CAA check outcomes, labeled by result.",
	}, []string{"result"})
	metrics.MustRegister(reg, validationTime, caaOutcomes)
	return &handlerMetrics{validationTime: validationTime, caaOutcomes: caaOutcomes}
}

// Handlers implements every method's prepare/validate pair.
type Handlers struct {
	cfg Config

	log blog.Logger
	clk clock.Clock

	dns          bdns.Client
	files        FileFetcher
	emails       *emailprovider.Provider
	psl          *psl.Helper
	corroborator Corroborator

	randomVerifier *random.Verifier
	tokenVerifier  *token.Verifier

	issuerDomain       string
	accountURIPrefixes []string

	metrics *handlerMetrics
}

// New constructs Handlers from its collaborators and configuration.
func New(cfg Config, dns bdns.Client, files FileFetcher, emails *emailprovider.Provider, pslHelper *psl.Helper, corroborator Corroborator, clk clock.Clock, log blog.Logger, reg prometheus.Registerer) *Handlers {
	if cfg.FileValidationFilename == "" {
		cfg.FileValidationFilename = "fileauth.txt"
	}
	if cfg.MPICQuorum == 0 {
		cfg.MPICQuorum = 2
	}
	if log == nil {
		log = blog.NewMock()
	}
	if clk == nil {
		clk = clock.New()
	}
	if reg == nil {
		reg = metrics.NoopRegisterer
	}
	return &Handlers{
		cfg:                cfg,
		log:                log,
		clk:                clk,
		dns:                dns,
		files:              files,
		emails:             emails,
		psl:                pslHelper,
		corroborator:       corroborator,
		randomVerifier:     random.New(random.WithClock(clk), random.WithValidityWindow(orDefault(cfg.RandomValueValidityWindow, random.DefaultValidityWindow)), random.WithMinLength(orDefaultInt(cfg.MinRandomValueLength, random.DefaultLength))),
		tokenVerifier:      token.New(token.WithValidityWindow(orDefault(cfg.RequestTokenValidityWindow, token.DefaultValidityWindow))),
		issuerDomain:       cfg.IssuerDomain,
		accountURIPrefixes: cfg.AccountURIPrefixes,
		metrics:            initMetrics(reg),
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func orDefaultInt(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

// PrepareResult is returned by every method's Prepare call.
type PrepareResult struct {
	State       core.ValidationState
	RandomValue string // set for RANDOM_VALUE-challenge methods
}

func (h *Handlers) observeResult(method core.DcvMethod, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	h.metrics.validationTime.WithLabelValues(string(method), result).Observe(h.clk.Since(start).Seconds())
}

// --- DNS change (BR 3.2.2.4.7) ---

// PrepareDNSChange generates a random value and returns an opaque state.
func (h *Handlers) PrepareDNSChange(domain string) (*PrepareResult, error) {
	if domain == "" {
		return nil, berrors.NewDcv(berrors.DomainRequired, "domain is required")
	}
	rv, err := random.Generate()
	if err != nil {
		return nil, err
	}
	return &PrepareResult{
		State: core.ValidationState{
			Domain:      identifier.DNSIdentifier(domain),
			PrepareTime: h.clk.Now(),
			Method:      core.MethodDNSChange,
		},
		RandomValue: rv,
	}, nil
}

// CAA validation-method identifiers, per the CA/Browser Forum's CAA
// Validation Methods registry (RFC 8657 §4): BR clauses are identified by
// section number, ACME challenges by their challenge-type name.
const (
	caaMethodDNSChange = "3.2.2.4.7"
	caaMethodFileAuth  = "3.2.2.4.18"
	caaMethodHTTP01    = "http-01"
	caaMethodDNS01     = "dns-01"
)

// startCAACheck runs CheckCAA for domain/params on its own goroutine,
// concurrently with the caller's primary probe, and returns a function that
// blocks until the check completes. The result is never consulted unless
// the primary probe itself succeeds, matching the "gate, not a replacement
// for the primary probe" role CAA checking plays.
func (h *Handlers) startCAACheck(ctx context.Context, domain string, params CAAParams) func() error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.CheckCAA(ctx, domain, params)
	}()
	return func() error { return <-errCh }
}

// candidateNames returns the labeled name first (if configured), then the
// bare domain — the "prefer the labeled record, fall back to the bare
// name" rule spec §8 property 5 requires.
func (h *Handlers) candidateNames(domain string) []string {
	if h.cfg.DNSDomainLabel == "" {
		return []string{domain}
	}
	return []string{fmt.Sprintf("_%s.%s", h.cfg.DNSDomainLabel, domain), domain}
}

// ValidateDNSChange validates the BR 3.2.2.4.7 DNS change method: the
// expected secret (a random value or a request token) must appear as a TXT
// value, or be reachable via a CNAME target, at the labeled name or the
// bare domain.
func (h *Handlers) ValidateDNSChange(ctx context.Context, domain string, state core.ValidationState, challengeType core.ChallengeType, randomValue, tokenKey, tokenValue string) (*core.DomainValidationEvidence, error) {
	start := h.clk.Now()
	var err error
	defer func() { h.observeResult(core.MethodDNSChange, start, err) }()

	if err = h.checkExpiry(state); err != nil {
		return nil, err
	}

	waitCAA := h.startCAACheck(ctx, domain, CAAParams{ValidationMethod: caaMethodDNSChange})

	names := h.candidateNames(domain)
	matchedName, dnsType, matched, lookupErr := h.findChallengeRecord(ctx, names, challengeType, randomValue, tokenKey, tokenValue, state.PrepareTime)
	if lookupErr != nil {
		err = lookupErr
		return nil, err
	}
	if !matched {
		err = berrors.NewDcv(berrors.RandomValueNotFound, "no matching TXT or CNAME record found for %s at any of %v", domain, names)
		return nil, err
	}

	result, corrErr := h.corroborator.Corroborate(ctx, mpic.Spec{
		Kind:          mpic.KindDNS,
		DNSName:       matchedName,
		DNSQType:      dnsType,
		Quorum:        h.cfg.MPICQuorum,
		TotalDeadline: h.cfg.MPICTotalDeadline,
	})
	if corrErr != nil {
		err = corrErr
		return nil, err
	}
	if caaErr := waitCAA(); caaErr != nil {
		err = caaErr
		return nil, err
	}
	ev := evidence.New(domain, core.MethodDNSChange, h.clk.Now(), "").
		WithDNSRecord(matchedName, dnsType).
		WithMpicDetails(toMpicDetails(result)).
		WithDNSSECDetails(h.probeDNSSEC(ctx, matchedName)).
		Build()
	if challengeType == core.ChallengeRequestToken {
		ev.RequestToken = randomValue
	} else {
		ev.RandomValue = randomValue
	}
	return &ev, nil
}

// findChallengeRecord looks for the expected secret among the TXT values at
// names, per spec §4.8; if none of the TXT candidates satisfy the
// challenge, it falls back to checking each name's CNAME target, since the
// secret may be published by pointing the name at a CA-constructed target
// rather than by publishing a TXT value directly. Returns the record name
// and DNS type ("TXT" or "CNAME") that matched.
func (h *Handlers) findChallengeRecord(ctx context.Context, names []string, challengeType core.ChallengeType, randomValue, tokenKey, tokenValue string, prepareTime time.Time) (matchedName, dnsType string, matched bool, err error) {
	txts, txtMatchedName, lookupErr := h.dns.LookupTXT(ctx, names)
	if lookupErr == nil {
		matched, err = h.matchChallenge(challengeType, txts, randomValue, tokenKey, tokenValue, prepareTime)
		if err != nil {
			return "", "", false, err
		}
		if matched {
			return txtMatchedName, "TXT", true, nil
		}
	} else if code, ok := berrors.CodeOf(lookupErr); !ok || code != berrors.DNSLookupRecordNotFound {
		return "", "", false, lookupErr
	}

	for _, name := range names {
		target, cnameErr := h.dns.LookupCNAME(ctx, name)
		if cnameErr != nil || target == "" {
			continue
		}
		ok, matchErr := h.matchChallenge(challengeType, []string{target}, randomValue, tokenKey, tokenValue, prepareTime)
		if matchErr != nil {
			return "", "", false, matchErr
		}
		if ok {
			return name, "CNAME", true, nil
		}
	}
	return "", "", false, nil
}

func (h *Handlers) matchChallenge(challengeType core.ChallengeType, candidates []string, randomValue, tokenKey, tokenValue string, prepareTime time.Time) (bool, error) {
	switch challengeType {
	case core.ChallengeRandomValue:
		if err := h.randomVerifier.Verify(randomValue, prepareTime); err != nil {
			return false, err
		}
		for _, c := range candidates {
			if random.Match(c, randomValue) {
				return true, nil
			}
		}
		return false, nil
	case core.ChallengeRequestToken:
		for _, c := range candidates {
			if _, err := h.tokenVerifier.Validate(tokenKey, tokenValue, c); err == nil {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, berrors.NewDcv(berrors.ChallengeTypeRequired, "challenge type required")
	}
}

func (h *Handlers) checkExpiry(state core.ValidationState) error {
	if state.Expired(h.clk.Now(), random.DefaultValidityWindow) {
		return berrors.NewDcv(berrors.RandomValueExpired, "validation state prepared at %s has expired", state.PrepareTime)
	}
	return nil
}

// probeDNSSEC opportunistically assembles DNSSECDetails for name: nil when
// the zone publishes no DS record, Secure false when a DS record exists but
// no RRSIG covering TXT is found, and Secure true with the signer names when
// both are present, per spec §4.3's "optional DNSSEC" characterization. Failures here are never
// fatal to validation — a name with no DNSSEC deployment is the common
// case, not an error.
func (h *Handlers) probeDNSSEC(ctx context.Context, name string) *core.DNSSECDetails {
	dsRecords, err := h.dns.LookupDS(ctx, name)
	if err != nil || len(dsRecords) == 0 {
		return nil
	}
	sigs, err := h.dns.LookupRRSIG(ctx, name, dns.TypeTXT)
	if err != nil || len(sigs) == 0 {
		return &core.DNSSECDetails{Secure: false}
	}
	var signers []string
	seen := make(map[string]bool, len(sigs))
	for _, s := range sigs {
		if !seen[s.SignerName] {
			seen[s.SignerName] = true
			signers = append(signers, s.SignerName)
		}
	}
	return &core.DNSSECDetails{Secure: true, SignerNames: signers}
}

func toMpicDetails(r *mpic.Result) core.MpicDetails {
	if r == nil {
		return core.MpicDetails{}
	}
	return core.MpicDetails{
		Corroborated:           r.Corroborated,
		PrimaryAgentID:         r.PrimaryAgentID,
		NumAgentsCorroborated:  r.NumAgentsCorroborated,
		TotalQuorum:            r.TotalQuorum,
		AttemptCount:           r.AttemptCount,
		PerAgentCorroboration:  r.PerAgentCorroboration,
		NonCorroborationReason: r.NonCorroborationReason,
	}
}

// --- File authentication (BR 3.2.2.4.18) ---

// PrepareFile rejects wildcard domains and returns a random value plus
// state. It builds no URL; ValidateFile fetches
// /.well-known/pki-validation/<cfg.FileValidationFilename>.
func (h *Handlers) PrepareFile(domain string) (*PrepareResult, error) {
	if domain == "" {
		return nil, berrors.NewDcv(berrors.DomainRequired, "domain is required")
	}
	if strings.HasPrefix(domain, "*.") {
		return nil, berrors.NewDcv(berrors.DomainInvalidWildcardNotAllowed, "wildcard domains are not allowed for file validation")
	}
	rv, err := random.Generate()
	if err != nil {
		return nil, err
	}
	return &PrepareResult{
		State: core.ValidationState{
			PrepareTime: h.clk.Now(),
			Method:      core.MethodFileAuth,
		},
		RandomValue: rv,
	}, nil
}

// ValidateFile fetches the validation file over HTTP and accepts if a
// whitespace-separated word of the body is the expected random value, or if
// the body contains a valid request token. Only the HTTP URL is fetched:
// cfg.FileValidationCheckHTTPS is not consulted and no HTTPS fetch is made.
func (h *Handlers) ValidateFile(ctx context.Context, domain string, state core.ValidationState, challengeType core.ChallengeType, randomValue, tokenKey, tokenValue string) (*core.DomainValidationEvidence, error) {
	start := h.clk.Now()
	var err error
	defer func() { h.observeResult(core.MethodFileAuth, start, err) }()

	if strings.HasPrefix(domain, "*.") {
		err = berrors.NewDcv(berrors.DomainInvalidWildcardNotAllowed, "wildcard domains are not allowed for file validation")
		return nil, err
	}
	if err = h.checkExpiry(state); err != nil {
		return nil, err
	}

	waitCAA := h.startCAACheck(ctx, domain, CAAParams{ValidationMethod: caaMethodFileAuth})

	path := "/.well-known/pki-validation/" + h.cfg.FileValidationFilename
	result, fetchErr := h.files.Fetch(ctx, domain, path)
	if fetchErr != nil {
		err = fetchErr
		return nil, err
	}
	matched, matchErr := h.matchChallenge(challengeType, strings.Fields(string(result.Body)), randomValue, tokenKey, tokenValue, state.PrepareTime)
	if matchErr != nil {
		err = matchErr
		return nil, err
	}
	if !matched {
		err = berrors.NewDcv(berrors.FileValidationInvalidContent, "file at %s did not contain the expected secret", result.URL)
		return nil, err
	}

	mpicResult, corrErr := h.corroborator.Corroborate(ctx, mpic.Spec{
		Kind:          mpic.KindFile,
		FileURL:       result.URL,
		Quorum:        h.cfg.MPICQuorum,
		TotalDeadline: h.cfg.MPICTotalDeadline,
	})
	if corrErr != nil {
		err = corrErr
		return nil, err
	}
	if caaErr := waitCAA(); caaErr != nil {
		err = caaErr
		return nil, err
	}

	ev := evidence.New(domain, core.MethodFileAuth, h.clk.Now(), "").
		WithFileURL(result.URL).
		WithMpicDetails(toMpicDetails(mpicResult)).
		Build()
	if challengeType == core.ChallengeRequestToken {
		ev.RequestToken = randomValue
	} else {
		ev.RandomValue = randomValue
	}
	return &ev, nil
}

// --- Email (BR 3.2.2.4.4, 3.2.2.4.13/14) ---

// PrepareEmail discovers candidate addresses via source and pairs each with
// a distinct random value.
func (h *Handlers) PrepareEmail(ctx context.Context, domain string, source emailprovider.Source) ([]emailprovider.Address, core.ValidationState, error) {
	if domain == "" {
		return nil, core.ValidationState{}, berrors.NewDcv(berrors.DomainRequired, "domain is required")
	}
	addrs, err := h.emails.Discover(ctx, source, domain)
	if err != nil {
		return nil, core.ValidationState{}, err
	}
	method := core.MethodEmailConstructed
	if source != emailprovider.SourceConstructed {
		method = core.MethodEmailDNSContact
	}
	return addrs, core.ValidationState{PrepareTime: h.clk.Now(), Method: method}, nil
}

// ValidateEmail is a pure check of the re-supplied (domain, emailAddress,
// randomValue) tuple against the state's expiry and entropy rules; actual
// email delivery and confirmation happen outside this library.
func (h *Handlers) ValidateEmail(domain, emailAddress, randomValue string, state core.ValidationState) (*core.DomainValidationEvidence, error) {
	if err := h.checkExpiry(state); err != nil {
		return nil, err
	}
	if err := h.randomVerifier.Verify(randomValue, state.PrepareTime); err != nil {
		return nil, err
	}
	ev := evidence.New(domain, state.Method, h.clk.Now(), "").
		WithRandomValue(randomValue).
		WithEmailAddress(emailAddress).
		Build()
	return &ev, nil
}

// --- ACME ---

// ValidateACMEHTTP01 fetches /.well-known/acme-challenge/<token> and checks
// the body equals "<token>.<thumbprint>".
func (h *Handlers) ValidateACMEHTTP01(ctx context.Context, domain, acmeToken, thumbprint string) (*core.DomainValidationEvidence, error) {
	start := h.clk.Now()
	var err error
	defer func() { h.observeResult(core.MethodACMEHTTP01, start, err) }()

	waitCAA := h.startCAACheck(ctx, domain, CAAParams{ValidationMethod: caaMethodHTTP01})

	path := "/.well-known/acme-challenge/" + acmeToken
	result, fetchErr := h.files.Fetch(ctx, domain, path)
	if fetchErr != nil {
		err = fetchErr
		return nil, err
	}
	want := acmeutil.KeyAuthorization(acmeToken, thumbprint)
	if strings.TrimSpace(string(result.Body)) != want {
		err = berrors.NewDcv(berrors.RandomValueNotFound, "key authorization mismatch at %s", result.URL)
		return nil, err
	}

	mpicResult, corrErr := h.corroborator.Corroborate(ctx, mpic.Spec{
		Kind:          mpic.KindFile,
		FileURL:       result.URL,
		Quorum:        h.cfg.MPICQuorum,
		TotalDeadline: h.cfg.MPICTotalDeadline,
	})
	if corrErr != nil {
		err = corrErr
		return nil, err
	}
	if caaErr := waitCAA(); caaErr != nil {
		err = caaErr
		return nil, err
	}
	ev := evidence.New(domain, core.MethodACMEHTTP01, h.clk.Now(), "").
		WithFileURL(result.URL).
		WithMpicDetails(toMpicDetails(mpicResult)).
		Build()
	return &ev, nil
}

// acmeChallengeSubdomain is the fixed DNS-01 TXT record label.
const acmeChallengeSubdomain = "_acme-challenge"

// ValidateACMEDNS01 checks the TXT record at _acme-challenge.<domain>
// equals base64url(SHA256("<token>.<thumbprint>")).
func (h *Handlers) ValidateACMEDNS01(ctx context.Context, domain, acmeToken, thumbprint string) (*core.DomainValidationEvidence, error) {
	return h.validateACMEDNS01AtName(ctx, domain, fmt.Sprintf("%s.%s", acmeChallengeSubdomain, domain), acmeToken, thumbprint, core.MethodACMEDNS01)
}

// ValidateDNSAccount01 is the DNS-ACCOUNT-01 variant of DNS-01
// (draft-ietf-acme-dns-account-label-00): the TXT record name additionally
// carries a label derived from the requesting ACME account URI, binding the
// challenge to that specific account.
func (h *Handlers) ValidateDNSAccount01(ctx context.Context, domain, acmeToken, thumbprint, accountURI string) (*core.DomainValidationEvidence, error) {
	if !features.Enabled(features.DNSAccountLabel) {
		return nil, berrors.NotSupportedError("dns-account-01 validation is disabled")
	}
	label, err := h.calculateDNSAccount01Label(accountURI)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s.%s.%s", label, acmeChallengeSubdomain, domain)
	return h.validateACMEDNS01AtName(ctx, domain, name, acmeToken, thumbprint, core.MethodACMEDNS01)
}

// calculateDNSAccount01Label derives the DNS-ACCOUNT-01 label: the first 10
// bytes of SHA-256(accountURI), base32-encoded and underscore-prefixed.
func (h *Handlers) calculateDNSAccount01Label(accountURI string) (string, error) {
	found := false
	for _, prefix := range h.accountURIPrefixes {
		if strings.HasPrefix(accountURI, prefix) {
			found = true
			break
		}
	}
	if !found {
		return "", berrors.NewDcv(berrors.InvalidRequestTokenData, "account URI %q does not match a configured prefix", accountURI)
	}
	sum := sha256.Sum256([]byte(accountURI))
	return "_" + strings.ToLower(base32.StdEncoding.EncodeToString(sum[:10])), nil
}

func (h *Handlers) validateACMEDNS01AtName(ctx context.Context, domain, name, acmeToken, thumbprint string, method core.DcvMethod) (*core.DomainValidationEvidence, error) {
	start := h.clk.Now()
	var err error
	defer func() { h.observeResult(method, start, err) }()

	waitCAA := h.startCAACheck(ctx, domain, CAAParams{ValidationMethod: caaMethodDNS01})

	keyAuth := acmeutil.KeyAuthorization(acmeToken, thumbprint)
	want := acmeutil.DNS01TXTValue(keyAuth)

	txts, _, lookupErr := h.dns.LookupTXT(ctx, []string{name})
	if lookupErr != nil {
		err = lookupErr
		return nil, err
	}
	matched := false
	for _, got := range txts {
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1 {
			matched = true
			break
		}
	}
	if !matched {
		err = berrors.NewDcv(berrors.RandomValueNotFound, "no matching TXT record at %s", name)
		return nil, err
	}

	mpicResult, corrErr := h.corroborator.Corroborate(ctx, mpic.Spec{
		Kind:          mpic.KindDNS,
		DNSName:       name,
		DNSQType:      "TXT",
		Quorum:        h.cfg.MPICQuorum,
		TotalDeadline: h.cfg.MPICTotalDeadline,
	})
	if corrErr != nil {
		err = corrErr
		return nil, err
	}
	if caaErr := waitCAA(); caaErr != nil {
		err = caaErr
		return nil, err
	}
	ev := evidence.New(domain, method, h.clk.Now(), "").
		WithDNSRecord(name, "TXT").
		WithMpicDetails(toMpicDetails(mpicResult)).
		WithDNSSECDetails(h.probeDNSSEC(ctx, name)).
		Build()
	return &ev, nil
}

// ValidateACMETLSALPN01 is out of this library's detail; embedding services
// that need TLS-ALPN-01 implement the TLS handshake and certificate
// inspection themselves and may use this library only for MPIC
// corroboration of their own probe.
func (h *Handlers) ValidateACMETLSALPN01(ctx context.Context, domain string) (*core.DomainValidationEvidence, error) {
	return nil, berrors.NotSupportedError("tls-alpn-01 validation is not implemented by this library")
}
