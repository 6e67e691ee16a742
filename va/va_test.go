package va

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/miekg/dns"

	"github.com/letsencrypt/dcv/core"
	berrors "github.com/letsencrypt/dcv/errors"
	"github.com/letsencrypt/dcv/fileclient"
	"github.com/letsencrypt/dcv/mpic"
	"github.com/letsencrypt/dcv/test"
)

// fakeDNS answers every LookupTXT from a fixed map keyed by name, and
// nothing else — enough to drive the DNS-change and ACME DNS-01 handlers
// without a network.
type fakeDNS struct {
	txt map[string][]string
}

func (f *fakeDNS) LookupTXT(ctx context.Context, names []string) ([]string, string, error) {
	for _, name := range names {
		if v, ok := f.txt[name]; ok {
			return v, name, nil
		}
	}
	return nil, "", berrors.NewDcv(berrors.DNSLookupRecordNotFound, "no TXT record for any of %v", names)
}
func (f *fakeDNS) LookupHost(ctx context.Context, hostname string) ([]net.IP, error) { return nil, nil }
func (f *fakeDNS) LookupCNAME(ctx context.Context, hostname string) (string, error)  { return "", nil }
func (f *fakeDNS) LookupCAA(ctx context.Context, hostname string) ([]*dns.CAA, error) {
	return nil, nil
}
func (f *fakeDNS) LookupMX(ctx context.Context, hostname string) ([]string, error) { return nil, nil }
func (f *fakeDNS) LookupDS(ctx context.Context, hostname string) ([]*dns.DS, error) { return nil, nil }
func (f *fakeDNS) LookupRRSIG(ctx context.Context, hostname string, coveredType uint16) ([]*dns.RRSIG, error) {
	return nil, nil
}

// fakeFileFetcher answers Fetch from a fixed map keyed by "host+path",
// enough to drive ValidateFile and ValidateACMEHTTP01 without a network.
type fakeFileFetcher struct {
	bodies map[string]string
	err    error
}

func (f *fakeFileFetcher) Fetch(ctx context.Context, host, path string) (*fileclient.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.bodies[host+path]
	if !ok {
		return nil, berrors.NewDcv(berrors.FileValidationInvalidStatusCode, "no fixture for %s%s", host, path)
	}
	return &fileclient.Result{Body: []byte(body), URL: "http://" + host + path}, nil
}

// fakeCorroborator always reports a corroborated quorum, so handler tests
// can focus on the single-perspective probe logic.
type fakeCorroborator struct{}

func (fakeCorroborator) Corroborate(ctx context.Context, spec mpic.Spec) (*mpic.Result, error) {
	return &mpic.Result{Corroborated: true, PrimaryAgentID: "primary", NumAgentsCorroborated: 2, TotalQuorum: 2}, nil
}

func newTestHandlers(t *testing.T, dns *fakeDNS) (*Handlers, clock.FakeClock) {
	t.Helper()
	fc := clock.NewFake()
	fc.Set(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	h := New(Config{
		IssuerDomain:       "ca.invalid",
		AccountURIPrefixes: []string{"https://acme.ca.invalid/acme/acct/"},
	}, dns, nil, nil, nil, fakeCorroborator{}, fc, nil, nil)
	return h, fc
}

func TestValidateDNSChangeRandomValue(t *testing.T) {
	dns := &fakeDNS{txt: map[string][]string{
		"example.com": {"the-expected-random-value-0123456789abcdefghijklmn"},
	}}
	h, fc := newTestHandlers(t, dns)

	state := core.ValidationState{PrepareTime: fc.Now(), Method: core.MethodDNSChange}
	ev, err := h.ValidateDNSChange(context.Background(), "example.com", state, core.ChallengeRandomValue,
		"the-expected-random-value-0123456789abcdefghijklmn", "", "")
	test.AssertNotError(t, err, "ValidateDNSChange")
	test.AssertEquals(t, ev.Method, core.MethodDNSChange)
	test.AssertEquals(t, ev.MpicDetails.Corroborated, true)
}

func TestValidateDNSChangePrefersLabeledName(t *testing.T) {
	dns := &fakeDNS{txt: map[string][]string{
		"_dcv-auth.example.com": {"labeled-value-0123456789abcdefghijklmnopqrst"},
		"example.com":           {"bare-value-0123456789abcdefghijklmnopqrstuvwx"},
	}}
	fc := clock.NewFake()
	fc.Set(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	h := New(Config{DNSDomainLabel: "dcv-auth"}, dns, nil, nil, nil, fakeCorroborator{}, fc, nil, nil)

	state := core.ValidationState{PrepareTime: fc.Now(), Method: core.MethodDNSChange}
	ev, err := h.ValidateDNSChange(context.Background(), "example.com", state, core.ChallengeRandomValue,
		"labeled-value-0123456789abcdefghijklmnopqrst", "", "")
	test.AssertNotError(t, err, "ValidateDNSChange")
	test.AssertEquals(t, ev.DNSRecordName, "_dcv-auth.example.com")
}

func TestValidateDNSChangeExpiredState(t *testing.T) {
	dns := &fakeDNS{}
	h, fc := newTestHandlers(t, dns)
	state := core.ValidationState{PrepareTime: fc.Now(), Method: core.MethodDNSChange}
	fc.Add(random31Days())

	_, err := h.ValidateDNSChange(context.Background(), "example.com", state, core.ChallengeRandomValue, "whatever", "", "")
	code, ok := berrors.CodeOf(err)
	test.AssertEquals(t, ok, true)
	test.AssertEquals(t, code, berrors.RandomValueExpired)
}

func random31Days() time.Duration { return 31 * 24 * time.Hour }

func TestValidateACMEDNS01(t *testing.T) {
	keyAuth := "token123.thumbprint456"
	sum := sha256Sum(keyAuth)
	dns := &fakeDNS{txt: map[string][]string{
		"_acme-challenge.example.com": {sum},
	}}
	h, _ := newTestHandlers(t, dns)

	ev, err := h.ValidateACMEDNS01(context.Background(), "example.com", "token123", "thumbprint456")
	test.AssertNotError(t, err, "ValidateACMEDNS01")
	test.AssertEquals(t, ev.DNSRecordName, "_acme-challenge.example.com")
}

func TestValidateACMEDNS01Mismatch(t *testing.T) {
	dns := &fakeDNS{txt: map[string][]string{
		"_acme-challenge.example.com": {"wrong-value"},
	}}
	h, _ := newTestHandlers(t, dns)

	_, err := h.ValidateACMEDNS01(context.Background(), "example.com", "token123", "thumbprint456")
	code, _ := berrors.CodeOf(err)
	test.AssertEquals(t, code, berrors.RandomValueNotFound)
}

func TestCalculateDNSAccount01Label(t *testing.T) {
	dns := &fakeDNS{}
	h, _ := newTestHandlers(t, dns)

	label, err := h.calculateDNSAccount01Label("https://acme.ca.invalid/acme/acct/12345")
	test.AssertNotError(t, err, "calculateDNSAccount01Label")
	if len(label) == 0 || label[0] != '_' {
		t.Fatalf("expected label to start with '_', got %q", label)
	}

	_, err = h.calculateDNSAccount01Label("https://other-ca.invalid/acme/acct/12345")
	test.AssertError(t, err, "calculateDNSAccount01Label should reject an unrecognized account URI prefix")
}

func TestPrepareFileRejectsWildcard(t *testing.T) {
	h, _ := newTestHandlers(t, &fakeDNS{})
	_, err := h.PrepareFile("*.example.com")
	code, _ := berrors.CodeOf(err)
	test.AssertEquals(t, code, berrors.DomainInvalidWildcardNotAllowed)
}

func TestValidateEmailChecksRandomValue(t *testing.T) {
	h, fc := newTestHandlers(t, &fakeDNS{})
	state := core.ValidationState{PrepareTime: fc.Now(), Method: core.MethodEmailConstructed}

	_, err := h.ValidateEmail("example.com", "admin@example.com", "too-short", state)
	code, _ := berrors.CodeOf(err)
	test.AssertEquals(t, code, berrors.RandomValueInsufficientEntropy)
}

func sha256Sum(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func newFileTestHandlers(t *testing.T, files *fakeFileFetcher) (*Handlers, clock.FakeClock) {
	t.Helper()
	fc := clock.NewFake()
	fc.Set(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	h := New(Config{}, &fakeDNS{}, files, nil, nil, fakeCorroborator{}, fc, nil, nil)
	return h, fc
}

func TestValidateFileRandomValue(t *testing.T) {
	files := &fakeFileFetcher{bodies: map[string]string{
		"example.com/.well-known/pki-validation/fileauth.txt": "the-expected-random-value-0123456789abcdefghijklmn",
	}}
	h, fc := newFileTestHandlers(t, files)

	state := core.ValidationState{PrepareTime: fc.Now(), Method: core.MethodFileAuth}
	ev, err := h.ValidateFile(context.Background(), "example.com", state, core.ChallengeRandomValue,
		"the-expected-random-value-0123456789abcdefghijklmn", "", "")
	test.AssertNotError(t, err, "ValidateFile")
	test.AssertEquals(t, ev.Method, core.MethodFileAuth)
	test.AssertEquals(t, ev.MpicDetails.Corroborated, true)
}

func TestValidateFileRejectsWildcard(t *testing.T) {
	h, fc := newFileTestHandlers(t, &fakeFileFetcher{})
	state := core.ValidationState{PrepareTime: fc.Now(), Method: core.MethodFileAuth}
	_, err := h.ValidateFile(context.Background(), "*.example.com", state, core.ChallengeRandomValue, "whatever", "", "")
	code, _ := berrors.CodeOf(err)
	test.AssertEquals(t, code, berrors.DomainInvalidWildcardNotAllowed)
}

func TestValidateFileContentMismatch(t *testing.T) {
	files := &fakeFileFetcher{bodies: map[string]string{
		"example.com/.well-known/pki-validation/fileauth.txt": "not-the-expected-value",
	}}
	h, fc := newFileTestHandlers(t, files)
	state := core.ValidationState{PrepareTime: fc.Now(), Method: core.MethodFileAuth}
	_, err := h.ValidateFile(context.Background(), "example.com", state, core.ChallengeRandomValue,
		"the-expected-random-value-0123456789abcdefghijklmn", "", "")
	code, _ := berrors.CodeOf(err)
	test.AssertEquals(t, code, berrors.FileValidationInvalidContent)
}

func TestValidateACMEHTTP01(t *testing.T) {
	files := &fakeFileFetcher{bodies: map[string]string{
		"example.com/.well-known/acme-challenge/token123": "token123.thumbprint456",
	}}
	h, _ := newFileTestHandlers(t, files)
	ev, err := h.ValidateACMEHTTP01(context.Background(), "example.com", "token123", "thumbprint456")
	test.AssertNotError(t, err, "ValidateACMEHTTP01")
	test.AssertEquals(t, ev.Method, core.MethodACMEHTTP01)
}

func TestValidateACMEHTTP01Mismatch(t *testing.T) {
	files := &fakeFileFetcher{bodies: map[string]string{
		"example.com/.well-known/acme-challenge/token123": "wrong-value",
	}}
	h, _ := newFileTestHandlers(t, files)
	_, err := h.ValidateACMEHTTP01(context.Background(), "example.com", "token123", "thumbprint456")
	code, _ := berrors.CodeOf(err)
	test.AssertEquals(t, code, berrors.RandomValueNotFound)
}
