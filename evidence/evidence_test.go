package evidence

import (
	"testing"
	"time"

	"github.com/letsencrypt/dcv/core"
	"github.com/letsencrypt/dcv/test"
)

func TestBuilderDefaultsBRVersion(t *testing.T) {
	ev := New("example.com", core.MethodDNSChange, time.Now(), "").Build()
	test.AssertEquals(t, ev.BRVersion, core.DefaultBRVersion)
}

func TestBuilderRespectsExplicitBRVersion(t *testing.T) {
	ev := New("example.com", core.MethodDNSChange, time.Now(), "v2.0.0").Build()
	test.AssertEquals(t, ev.BRVersion, "v2.0.0")
}

func TestBuilderChaining(t *testing.T) {
	now := time.Now()
	ev := New("example.com", core.MethodACMEDNS01, now, "").
		WithDNSRecord("_acme-challenge.example.com", "TXT").
		WithMpicDetails(core.MpicDetails{Corroborated: true, TotalQuorum: 2, NumAgentsCorroborated: 2}).
		Build()

	test.AssertEquals(t, ev.Domain, "example.com")
	test.AssertEquals(t, ev.DNSRecordName, "_acme-challenge.example.com")
	test.AssertEquals(t, ev.DNSType, "TXT")
	test.AssertEquals(t, ev.MpicDetails.Corroborated, true)
	test.AssertEquals(t, ev.ValidationDate, now)
}
