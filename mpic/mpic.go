// Package mpic implements Multi-Perspective Issuance Corroboration: one
// probe is run from a primary network perspective and from N secondary
// perspectives, and the overall result is CORROBORATED only if the primary
// succeeded and at least quorum secondaries agree with it under a
// method-specific equivalence relation. This generalizes the validation
// authority's own primary/remote-VA fan-out into a method-agnostic service
// any handler can call.
package mpic

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	berrors "github.com/letsencrypt/dcv/errors"
	blog "github.com/letsencrypt/dcv/log"
	"github.com/letsencrypt/dcv/metrics"
)

var tracer = otel.Tracer("github.com/letsencrypt/dcv/mpic")

// Kind selects the equivalence relation applied to secondary payloads.
type Kind string

const (
	KindDNS  Kind = "dns"
	KindFile Kind = "file"
)

// Agent is a single network vantage point able to run a probe and report
// its outcome. The real implementation speaks to a remote perspective over
// some RPC transport; that transport is outside this package's concern —
// it requires only this interface.
type Agent interface {
	// ID uniquely identifies the agent for audit/evidence purposes.
	ID() string
	// ProbeDNS resolves qtype records for name and returns the set of
	// rdata values observed.
	ProbeDNS(ctx context.Context, name string, qtype string) ([]string, error)
	// ProbeFile fetches rawURL and returns its status code and a hash of
	// its body, suitable for the File equivalence relation.
	ProbeFile(ctx context.Context, rawURL string) (status int, bodyHash string, err error)
}

// Spec describes one corroboration request.
type Spec struct {
	Kind Kind

	// DNS fields.
	DNSName  string
	DNSQType string

	// File fields.
	FileURL string

	// Quorum is the number of secondaries (in addition to the primary)
	// that must corroborate for the result to be CORROBORATED. Default 2.
	Quorum int

	// TotalDeadline bounds the entire fan-out including the primary.
	// Default 20s.
	TotalDeadline time.Duration
}

// AgentResult is one agent's raw outcome, kept for per-agent auditability.
type AgentResult struct {
	AgentID string
	Values  []string // DNS record values, if Kind == KindDNS
	Status  int       // HTTP status, if Kind == KindFile
	Hash    string    // body hash, if Kind == KindFile
	Err     error
}

// Result is the outcome of a corroboration call.
type Result struct {
	Corroborated           bool
	PrimaryAgentID         string
	NumAgentsCorroborated  int
	TotalQuorum            int
	AttemptCount           int
	PerAgentCorroboration  map[string]bool
	NonCorroborationReason string
	PrimaryValues          []string // for KindDNS, the accepted value set
}

// Service runs corroboration across a primary and a pool of secondaries.
type Service struct {
	primary    Agent
	secondaries []Agent
	log        blog.Logger

	fanoutTime *prometheus.HistogramVec
	outcomes   *prometheus.CounterVec
}

// New constructs a Service. primary and secondaries are fixed for the
// lifetime of the Service; callers that need different perspectives per
// call construct a new Service (these are thin wrappers, not connections).
func New(primary Agent, secondaries []Agent, log blog.Logger, reg prometheus.Registerer) *Service {
	if log == nil {
		log = blog.NewMock()
	}
	if reg == nil {
		reg = metrics.NoopRegisterer
	}
	fanoutTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dcv_mpic_fanout_duration_seconds",
		Help:    "Time taken for an MPIC fan-out to reach a decision.",
		Buckets: metrics.InternetFacingBuckets,
	}, []string{"kind", "result"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dcv_mpic_outcomes_total",
		Help: "Count of MPIC corroboration outcomes.",
	}, []string{"kind", "result"})
	metrics.MustRegister(reg, fanoutTime, outcomes)

	return &Service{primary: primary, secondaries: secondaries, log: log, fanoutTime: fanoutTime, outcomes: outcomes}
}

func dnsEquivalent(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

func fileEquivalent(statusA, statusB int, hashA, hashB string) bool {
	return statusA == statusB && hashA == hashB
}

func (s *Service) probe(ctx context.Context, a Agent, spec Spec) AgentResult {
	res := AgentResult{AgentID: a.ID()}
	switch spec.Kind {
	case KindDNS:
		values, err := a.ProbeDNS(ctx, spec.DNSName, spec.DNSQType)
		res.Values = values
		res.Err = err
	case KindFile:
		status, hash, err := a.ProbeFile(ctx, spec.FileURL)
		res.Status = status
		res.Hash = hash
		res.Err = err
	}
	return res
}

// Corroborate runs spec from the primary first and, once the primary has
// succeeded, from every secondary in parallel; the primary is not probed
// concurrently with the secondaries. It returns once quorum is met, quorum
// is mathematically unreachable, or every secondary has responded. A total
// deadline bounds the whole fan-out; perspectives that answer after the
// deadline are discarded.
func (s *Service) Corroborate(ctx context.Context, spec Spec) (*Result, error) {
	ctx, span := tracer.Start(ctx, "mpic.Corroborate")
	defer span.End()
	span.SetAttributes(attribute.String("mpic.kind", string(spec.Kind)))

	quorum := spec.Quorum
	if quorum <= 0 {
		quorum = 2
	}
	deadline := spec.TotalDeadline
	if deadline <= 0 {
		deadline = 20 * time.Second
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	primaryResult := s.probe(ctx, s.primary, spec)
	if primaryResult.Err != nil {
		s.outcomes.WithLabelValues(string(spec.Kind), "primary_failed").Inc()
		s.fanoutTime.WithLabelValues(string(spec.Kind), "primary_failed").Observe(time.Since(start).Seconds())
		return nil, berrors.WrapDcv(berrors.MPICPrimaryFailed, primaryResult.Err, "primary perspective %s failed", primaryResult.AgentID)
	}

	perAgent := map[string]bool{primaryResult.AgentID: true}
	numCorroborated := 0
	remaining := len(s.secondaries)

	secondaryOrder := rand.Perm(len(s.secondaries))
	resultsCh := make(chan AgentResult, len(s.secondaries))

	g, gctx := errgroup.WithContext(ctx)
	for _, idx := range secondaryOrder {
		agent := s.secondaries[idx]
		g.Go(func() error {
			resultsCh <- s.probe(gctx, agent, spec)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(resultsCh)
	}()

	attempts := 1
	var nonCorrobReason string
collect:
	for remaining > 0 {
		select {
		case res, ok := <-resultsCh:
			if !ok {
				break collect
			}
			remaining--
			attempts++
			corroborates := false
			if res.Err == nil {
				switch spec.Kind {
				case KindDNS:
					corroborates = dnsEquivalent(primaryResult.Values, res.Values)
				case KindFile:
					corroborates = fileEquivalent(primaryResult.Status, res.Status, primaryResult.Hash, res.Hash)
				}
			} else if nonCorrobReason == "" {
				nonCorrobReason = res.Err.Error()
			}
			perAgent[res.AgentID] = corroborates
			if corroborates {
				numCorroborated++
			}

			if numCorroborated >= quorum {
				break collect
			}
			// Quorum unreachable: not enough secondaries remain to reach it.
			if numCorroborated+remaining < quorum {
				break collect
			}
		case <-ctx.Done():
			if nonCorrobReason == "" {
				nonCorrobReason = "mpic total deadline exceeded"
			}
			break collect
		}
	}

	result := &Result{
		PrimaryAgentID:        primaryResult.AgentID,
		NumAgentsCorroborated: numCorroborated,
		TotalQuorum:           quorum,
		AttemptCount:          attempts,
		PerAgentCorroboration: perAgent,
		PrimaryValues:         primaryResult.Values,
	}

	label := "not_corroborated"
	if numCorroborated >= quorum {
		result.Corroborated = true
		label = "corroborated"
	} else {
		result.NonCorroborationReason = nonCorrobReason
		if result.NonCorroborationReason == "" {
			result.NonCorroborationReason = "insufficient secondary corroboration"
		}
	}
	s.outcomes.WithLabelValues(string(spec.Kind), label).Inc()
	s.fanoutTime.WithLabelValues(string(spec.Kind), label).Observe(time.Since(start).Seconds())

	if !result.Corroborated {
		return result, berrors.NewDcv(berrors.MPICQuorumNotMet, "%d of %d required secondaries corroborated primary %s: %s",
			numCorroborated, quorum, primaryResult.AgentID, result.NonCorroborationReason)
	}
	span.SetAttributes(
		attribute.Bool("mpic.corroborated", result.Corroborated),
		attribute.Int("mpic.num_corroborated", result.NumAgentsCorroborated),
	)
	return result, nil
}
