package identifier

import (
	"testing"

	"github.com/letsencrypt/dcv/test"
)

func TestDNSIdentifier(t *testing.T) {
	id := DNSIdentifier("example.com")
	test.AssertEquals(t, id.Type, DNS)
	test.AssertEquals(t, id.Value, "example.com")
	test.AssertEquals(t, id.String(), "dns:example.com")
}

func TestIsWildcard(t *testing.T) {
	test.AssertEquals(t, DNSIdentifier("*.example.com").IsWildcard(), true)
	test.AssertEquals(t, DNSIdentifier("example.com").IsWildcard(), false)
}

func TestBaseDomain(t *testing.T) {
	test.AssertEquals(t, DNSIdentifier("*.example.com").BaseDomain(), "example.com")
	test.AssertEquals(t, DNSIdentifier("example.com").BaseDomain(), "example.com")
}
