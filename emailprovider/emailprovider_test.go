package emailprovider

import (
	"context"
	"net"
	"testing"

	"github.com/miekg/dns"

	berrors "github.com/letsencrypt/dcv/errors"
	"github.com/letsencrypt/dcv/psl"
	"github.com/letsencrypt/dcv/test"
)

// fakeDNS answers TXT and CAA lookups from fixed maps, enough to drive
// every discovery strategy without a network.
type fakeDNS struct {
	txt map[string][]string
	caa map[string][]*dns.CAA
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
	return f.caa[hostname], nil
}
func (f *fakeDNS) LookupMX(ctx context.Context, hostname string) ([]string, error) { return nil, nil }
func (f *fakeDNS) LookupDS(ctx context.Context, hostname string) ([]*dns.DS, error) { return nil, nil }
func (f *fakeDNS) LookupRRSIG(ctx context.Context, hostname string, coveredType uint16) ([]*dns.RRSIG, error) {
	return nil, nil
}

func TestDiscoverConstructed(t *testing.T) {
	p := New(&fakeDNS{}, nil)
	addrs, err := p.Discover(context.Background(), SourceConstructed, "example.com")
	test.AssertNotError(t, err, "Discover")
	test.AssertEquals(t, len(addrs), len(constructedLocalParts))

	seen := map[string]bool{}
	for _, a := range addrs {
		test.AssertEquals(t, a.DNSRecordName, "")
		if a.RandomValue == "" {
			t.Fatalf("expected a non-empty random value for %s", a.Email)
		}
		if seen[a.RandomValue] {
			t.Fatalf("random value %q reused across addresses", a.RandomValue)
		}
		seen[a.RandomValue] = true
	}
	test.AssertEquals(t, addrs[0].Email, "admin@example.com")
}

func TestDiscoverDNSTXT(t *testing.T) {
	dnsClient := &fakeDNS{txt: map[string][]string{
		"_validation-contactemail.example.com": {"hostmaster@example.com"},
	}}
	p := New(dnsClient, nil)
	addrs, err := p.Discover(context.Background(), SourceDNSTXT, "example.com")
	test.AssertNotError(t, err, "Discover")
	test.AssertEquals(t, len(addrs), 1)
	test.AssertEquals(t, addrs[0].Email, "hostmaster@example.com")
	test.AssertEquals(t, addrs[0].DNSRecordName, "_validation-contactemail.example.com")
}

func TestDiscoverDNSTXTRejectsMalformedAddress(t *testing.T) {
	dnsClient := &fakeDNS{txt: map[string][]string{
		"_validation-contactemail.example.com": {"not-an-email"},
	}}
	p := New(dnsClient, nil)
	_, err := p.Discover(context.Background(), SourceDNSTXT, "example.com")
	code, ok := berrors.CodeOf(err)
	test.AssertEquals(t, ok, true)
	test.AssertEquals(t, code, berrors.InvalidEmailAddress)
}

func TestDiscoverDNSCAAFallsBackToRegistrableDomain(t *testing.T) {
	dnsClient := &fakeDNS{caa: map[string][]*dns.CAA{
		"example.co.uk": {{Tag: "issue", Value: "ca.invalid; contactemail=webmaster@example.co.uk"}},
	}}
	p := New(dnsClient, psl.New(nil))
	addrs, err := p.Discover(context.Background(), SourceDNSCAA, "www.example.co.uk")
	test.AssertNotError(t, err, "Discover")
	test.AssertEquals(t, len(addrs), 1)
	test.AssertEquals(t, addrs[0].Email, "webmaster@example.co.uk")
	test.AssertEquals(t, addrs[0].DNSRecordName, "example.co.uk")
}

func TestDiscoverDNSCAANoContactEmail(t *testing.T) {
	dnsClient := &fakeDNS{caa: map[string][]*dns.CAA{
		"example.com": {{Tag: "issue", Value: "ca.invalid"}},
	}}
	p := New(dnsClient, nil)
	_, err := p.Discover(context.Background(), SourceDNSCAA, "example.com")
	code, _ := berrors.CodeOf(err)
	test.AssertEquals(t, code, berrors.DNSLookupRecordNotFound)
}

func TestDiscoverUnknownSource(t *testing.T) {
	p := New(&fakeDNS{}, nil)
	_, err := p.Discover(context.Background(), Source("bogus"), "example.com")
	code, _ := berrors.CodeOf(err)
	test.AssertEquals(t, code, berrors.InvalidEmailAddress)
}
