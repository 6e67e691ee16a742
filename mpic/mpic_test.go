package mpic

import (
	"context"
	"testing"
	"time"

	berrors "github.com/letsencrypt/dcv/errors"
	"github.com/letsencrypt/dcv/test"
)

// fakeAgent is a scripted Agent: it returns fixed DNS values, or an error,
// after an optional artificial delay — enough to exercise quorum math
// without a network.
type fakeAgent struct {
	id     string
	values []string
	err    error
	delay  time.Duration
}

func (a *fakeAgent) ID() string { return a.id }

func (a *fakeAgent) ProbeDNS(ctx context.Context, name, qtype string) ([]string, error) {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return a.values, a.err
}

func (a *fakeAgent) ProbeFile(ctx context.Context, rawURL string) (int, string, error) {
	return 200, "", a.err
}

func TestCorroborateQuorumMet(t *testing.T) {
	primary := &fakeAgent{id: "primary", values: []string{"abc123"}}
	secondaries := []Agent{
		&fakeAgent{id: "s1", values: []string{"abc123"}},
		&fakeAgent{id: "s2", values: []string{"abc123"}},
		&fakeAgent{id: "s3", values: []string{"different"}},
	}
	svc := New(primary, secondaries, nil, nil)

	result, err := svc.Corroborate(context.Background(), Spec{Kind: KindDNS, DNSName: "example.com", DNSQType: "TXT", Quorum: 2})
	test.AssertNotError(t, err, "Corroborate")
	test.AssertEquals(t, result.Corroborated, true)
	if result.NumAgentsCorroborated < 2 {
		t.Fatalf("expected at least 2 corroborating secondaries, got %d", result.NumAgentsCorroborated)
	}
}

func TestCorroborateQuorumNotMet(t *testing.T) {
	primary := &fakeAgent{id: "primary", values: []string{"abc123"}}
	secondaries := []Agent{
		&fakeAgent{id: "s1", values: []string{"different-1"}},
		&fakeAgent{id: "s2", values: []string{"different-2"}},
	}
	svc := New(primary, secondaries, nil, nil)

	result, err := svc.Corroborate(context.Background(), Spec{Kind: KindDNS, DNSName: "example.com", DNSQType: "TXT", Quorum: 2})
	test.AssertError(t, err, "Corroborate should fail to reach quorum")
	code, ok := berrors.CodeOf(err)
	test.AssertEquals(t, ok, true)
	test.AssertEquals(t, code, berrors.MPICQuorumNotMet)
	test.AssertEquals(t, result.Corroborated, false)
}

func TestCorroboratePrimaryFailed(t *testing.T) {
	primary := &fakeAgent{id: "primary", err: context.DeadlineExceeded}
	secondaries := []Agent{&fakeAgent{id: "s1", values: []string{"abc123"}}}
	svc := New(primary, secondaries, nil, nil)

	_, err := svc.Corroborate(context.Background(), Spec{Kind: KindDNS, DNSName: "example.com", DNSQType: "TXT", Quorum: 1})
	code, _ := berrors.CodeOf(err)
	test.AssertEquals(t, code, berrors.MPICPrimaryFailed)
}

func TestCorroborateFileEquivalence(t *testing.T) {
	primary := &fakeAgentFile{id: "primary", status: 200, hash: "deadbeef"}
	secondaries := []Agent{
		&fakeAgentFile{id: "s1", status: 200, hash: "deadbeef"},
		&fakeAgentFile{id: "s2", status: 200, hash: "deadbeef"},
	}
	svc := New(primary, secondaries, nil, nil)

	result, err := svc.Corroborate(context.Background(), Spec{Kind: KindFile, FileURL: "https://example.com/fileauth.txt", Quorum: 2})
	test.AssertNotError(t, err, "Corroborate")
	test.AssertEquals(t, result.Corroborated, true)
}

type fakeAgentFile struct {
	id     string
	status int
	hash   string
	err    error
}

func (a *fakeAgentFile) ID() string { return a.id }
func (a *fakeAgentFile) ProbeDNS(ctx context.Context, name, qtype string) ([]string, error) {
	return nil, a.err
}
func (a *fakeAgentFile) ProbeFile(ctx context.Context, rawURL string) (int, string, error) {
	return a.status, a.hash, a.err
}
