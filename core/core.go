// Package core holds the value types shared by every validation method
// handler: the challenge types, the method enum, the opaque validation
// state handle, and the evidence record a successful validation produces.
// Every type here is immutable and value-typed; the library keeps no
// mutable state of its own between prepare and validate.
package core

import (
	"net"
	"time"

	"github.com/letsencrypt/dcv/identifier"
)

// ChallengeType names the family of secret a method handler checks for.
type ChallengeType string

const (
	ChallengeRandomValue  ChallengeType = "RANDOM_VALUE"
	ChallengeRequestToken ChallengeType = "REQUEST_TOKEN"
)

// DcvMethod enumerates the BR clause or ACME challenge a handler
// implements. Unknown is permitted only for ACME prepare calls, where the
// concrete variant is chosen at validate time once the caller knows which
// challenge type the client selected.
type DcvMethod string

const (
	MethodUnknown          DcvMethod = "UNKNOWN"
	MethodDNSChange        DcvMethod = "BR_3_2_2_4_7"
	MethodFileAuth         DcvMethod = "BR_3_2_2_4_18"
	MethodEmailConstructed DcvMethod = "BR_3_2_2_4_4"
	MethodEmailDNSContact  DcvMethod = "BR_3_2_2_4_13_14"
	MethodACMEHTTP01       DcvMethod = "ACME_HTTP_01"
	MethodACMEDNS01        DcvMethod = "ACME_DNS_01"
	MethodACMETLSALPN01    DcvMethod = "ACME_TLS_ALPN_01"
)

// DefaultBRVersion is the Baseline Requirements version evidence records
// cite unless the caller overrides it per invocation.
const DefaultBRVersion = "v2.1.1"

// ValidationState is the opaque handle returned by prepare and re-supplied
// to validate. The library treats Nonce as inert bytes: callers may use it
// to bind the state to a specific order or authorization without the
// library persisting anything itself.
type ValidationState struct {
	Domain      identifier.ACMEIdentifier `json:"domain"`
	PrepareTime time.Time                 `json:"prepareTime"`
	Method      DcvMethod                 `json:"dcvMethod"`
	Nonce       []byte                    `json:"nonce,omitempty"`
}

// Expired reports whether the state is older than window as of now.
func (vs ValidationState) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(vs.PrepareTime) > window
}

// MpicDetails is the corroboration outcome attached to every evidence
// record and to every MPIC_QUORUM_NOT_MET error, for auditability.
//
// Invariant: Corroborated implies at least TotalQuorum entries of
// PerAgentCorroboration are true.
type MpicDetails struct {
	Corroborated           bool            `json:"corroborated"`
	PrimaryAgentID         string          `json:"primaryAgentId"`
	NumAgentsCorroborated  int             `json:"numAgentsCorroborated"`
	TotalQuorum            int             `json:"totalQuorum"`
	AttemptCount           int             `json:"attemptCount"`
	PerAgentCorroboration  map[string]bool `json:"agentIdToCorroboration"`
	NonCorroborationReason string          `json:"nonCorroborationReason,omitempty"`
}

// DNSSECDetails is attached to evidence when the DNS client performed an
// authenticated lookup chain (DS/RRSIG) as part of validation.
type DNSSECDetails struct {
	Secure      bool     `json:"secure"`
	SignerNames []string `json:"signerNames,omitempty"`
}

// DomainValidationEvidence is the protocol's output: an immutable,
// auditor-reproducible record of why a domain was judged validated.
// Exactly one method-specific field set is populated; the rest are left at
// their zero value and omitted from the JSON encoding.
type DomainValidationEvidence struct {
	Domain         string    `json:"domain"`
	Method         DcvMethod `json:"dcvMethod"`
	ValidationDate time.Time `json:"validationDate"`
	BRVersion      string    `json:"brVersion"`

	RandomValue  string `json:"randomValue,omitempty"`
	RequestToken string `json:"requestToken,omitempty"`

	FileURL       string `json:"fileUrl,omitempty"`
	DNSRecordName string `json:"dnsRecordName,omitempty"`
	DNSType       string `json:"dnsType,omitempty"`
	EmailAddress  string `json:"emailAddress,omitempty"`

	MpicDetails   MpicDetails    `json:"mpicDetails"`
	DNSSECDetails *DNSSECDetails `json:"dnssecDetails,omitempty"`
}

// ValidationRecord documents one network hop a handler took while
// gathering evidence (one DNS query, one HTTP fetch including redirect
// hops), kept for audit trails independent of whether it ended up
// contributing to the final evidence.
type ValidationRecord struct {
	Hostname          string    `json:"hostname"`
	Port              string    `json:"port,omitempty"`
	AddressUsed       string    `json:"addressUsed,omitempty"`
	AddressesResolved []net.IP  `json:"addressesResolved,omitempty"`
	URL               string    `json:"url,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}
