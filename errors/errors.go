// Package errors defines the closed error taxonomy used by every validation
// method handler. DcvCode is a closed enum rather than an open string so that
// callers can exhaustively switch on it and so that errors.Is/errors.As work
// uniformly across the library.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType provides a coarse category for BoulderErrors. Only the two
// categories an internal library component actually raises are kept here;
// the wider per-HTTP-status taxonomy (malformed, unauthorized, not found,
// rate limit, ...) belongs to an ACME front-end, which this library does
// not implement.
type ErrorType int

const (
	InternalServer ErrorType = iota
	NotSupported
)

// BoulderError represents an internal library error with a coarse category,
// independent of the finer-grained DcvCode taxonomy below. It is kept for
// components (config loading, dispatch) that only need a coarse category.
type BoulderError struct {
	Type   ErrorType
	Detail string
}

func (be *BoulderError) Error() string {
	return be.Detail
}

// New is a convenience function for creating a new BoulderError.
func New(errType ErrorType, msg string, args ...interface{}) error {
	return &BoulderError{
		Type:   errType,
		Detail: fmt.Sprintf(msg, args...),
	}
}

func InternalServerError(msg string, args ...interface{}) error {
	return New(InternalServer, msg, args...)
}

func NotSupportedError(msg string, args ...interface{}) error {
	return New(NotSupported, msg, args...)
}

// DcvCode is a closed enum of every error a validation method handler can
// surface. It spans four families: Input, Random/Token, Probe, and
// Corroboration. Handlers must use one of these codes; do not introduce
// ad-hoc string errors along a validation path.
type DcvCode int

const (
	_ DcvCode = iota

	// Input family: rejected before any network probe is attempted.
	DomainRequired
	DomainInvalidWildcardNotAllowed
	InvalidEmailAddress
	ChallengeTypeRequired
	RequestTokenDataRequired

	// Random/Token family: the random value or request token scheme failed
	// its own internal checks, independent of the transport that carried it.
	RandomValueNotFound
	RandomValueEmptyTextBody
	RandomValueInsufficientEntropy
	RandomValueExpired
	RequestTokenEmptyTextBody
	RequestTokenErrorNotFound
	RequestTokenErrorInvalidToken
	RequestTokenErrorFutureDate
	RequestTokenErrorDateExpired
	InvalidRequestTokenData

	// Probe family: the underlying DNS or HTTP probe itself failed.
	DNSLookupUnknownHost
	DNSLookupTextParse
	DNSLookupIO
	DNSLookupRecordNotFound
	DNSLookupDNSSECFailure
	FileValidationClientError
	FileValidationInvalidContent
	FileValidationInvalidStatusCode
	FileValidationEmptyResponse

	// Corroboration family: the single-perspective probe succeeded or
	// failed, but Multi-Perspective Issuance Corroboration could not reach a
	// quorum decision.
	MPICPrimaryFailed
	MPICQuorumNotMet
	MPICTimeout
)

var codeNames = map[DcvCode]string{
	DomainRequired:                   "DOMAIN_REQUIRED",
	DomainInvalidWildcardNotAllowed:  "DOMAIN_INVALID_WILDCARD_NOT_ALLOWED",
	InvalidEmailAddress:              "INVALID_EMAIL_ADDRESS",
	ChallengeTypeRequired:            "CHALLENGE_TYPE_REQUIRED",
	RequestTokenDataRequired:         "REQUEST_TOKEN_DATA_REQUIRED",
	RandomValueNotFound:              "RANDOM_VALUE_NOT_FOUND",
	RandomValueEmptyTextBody:         "RANDOM_VALUE_EMPTY_TEXT_BODY",
	RandomValueInsufficientEntropy:   "RANDOM_VALUE_INSUFFICIENT_ENTROPY",
	RandomValueExpired:               "RANDOM_VALUE_EXPIRED",
	RequestTokenEmptyTextBody:        "REQUEST_TOKEN_EMPTY_TEXT_BODY",
	RequestTokenErrorNotFound:        "REQUEST_TOKEN_ERROR_NOT_FOUND",
	RequestTokenErrorInvalidToken:    "REQUEST_TOKEN_ERROR_INVALID_TOKEN",
	RequestTokenErrorFutureDate:      "REQUEST_TOKEN_ERROR_FUTURE_DATE",
	RequestTokenErrorDateExpired:     "REQUEST_TOKEN_ERROR_DATE_EXPIRED",
	InvalidRequestTokenData:          "INVALID_REQUEST_TOKEN_DATA",
	DNSLookupUnknownHost:             "DNS_LOOKUP_UNKNOWN_HOST",
	DNSLookupTextParse:               "DNS_LOOKUP_TEXT_PARSE",
	DNSLookupIO:                      "DNS_LOOKUP_IO",
	DNSLookupRecordNotFound:          "DNS_LOOKUP_RECORD_NOT_FOUND",
	DNSLookupDNSSECFailure:           "DNS_LOOKUP_DNSSEC_FAILURE",
	FileValidationClientError:        "FILE_VALIDATION_CLIENT_ERROR",
	FileValidationInvalidContent:     "FILE_VALIDATION_INVALID_CONTENT",
	FileValidationInvalidStatusCode:  "FILE_VALIDATION_INVALID_STATUS_CODE",
	FileValidationEmptyResponse:      "FILE_VALIDATION_EMPTY_RESPONSE",
	MPICPrimaryFailed:                "MPIC_PRIMARY_FAILED",
	MPICQuorumNotMet:                 "MPIC_QUORUM_NOT_MET",
	MPICTimeout:                      "MPIC_TIMEOUT",
}

// String returns the wire-format name of the code, e.g. "RANDOM_VALUE_EXPIRED".
func (c DcvCode) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("DCV_CODE(%d)", int(c))
}

// inputCodes abort a validation call immediately rather than accumulating.
var inputCodes = map[DcvCode]bool{
	DomainRequired:                  true,
	DomainInvalidWildcardNotAllowed: true,
	InvalidEmailAddress:             true,
	ChallengeTypeRequired:           true,
	RequestTokenDataRequired:        true,
}

// IsInput reports whether c belongs to the Input family, which aborts
// immediately rather than being accumulated across perspectives.
func (c DcvCode) IsInput() bool {
	return inputCodes[c]
}

// DcvError is the concrete error type carrying a DcvCode plus a
// human-readable detail and optional wrapped cause. It implements Unwrap so
// that errors.Is/errors.As work against both the sentinel code and the
// underlying transport error.
type DcvError struct {
	Code   DcvCode
	Detail string
	Cause  error
}

func (e *DcvError) Error() string {
	if e.Detail == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *DcvError) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, NewDcv(code, "")) to match on Code alone,
// ignoring Detail and Cause.
func (e *DcvError) Is(target error) bool {
	t, ok := target.(*DcvError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDcv constructs a DcvError with no wrapped cause.
func NewDcv(code DcvCode, detail string, args ...interface{}) *DcvError {
	return &DcvError{Code: code, Detail: fmt.Sprintf(detail, args...)}
}

// WrapDcv constructs a DcvError that wraps a lower-level cause (a DNS
// resolution error, an HTTP transport error) so that errors.As can still
// recover it.
func WrapDcv(code DcvCode, cause error, detail string, args ...interface{}) *DcvError {
	return &DcvError{Code: code, Detail: fmt.Sprintf(detail, args...), Cause: cause}
}

// CodeOf extracts the DcvCode from err if it is, or wraps, a *DcvError.
func CodeOf(err error) (DcvCode, bool) {
	var de *DcvError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return 0, false
}

// Set accumulates DcvErrors encountered across multiple fallible probes
// (multiple perspectives, multiple candidate domain names) without letting
// one mask another. Its zero value is ready to use.
type Set struct {
	errs []*DcvError
}

// Add records err, wrapping it in a DcvError with code DNSLookupIO if it is
// not already one.
func (s *Set) Add(err error) {
	if err == nil {
		return
	}
	var de *DcvError
	if errors.As(err, &de) {
		s.errs = append(s.errs, de)
		return
	}
	s.errs = append(s.errs, &DcvError{Code: DNSLookupIO, Detail: err.Error(), Cause: err})
}

// Empty reports whether any error has been recorded.
func (s *Set) Empty() bool {
	return len(s.errs) == 0
}

// All returns every recorded error, in the order they were added.
func (s *Set) All() []*DcvError {
	out := make([]*DcvError, len(s.errs))
	copy(out, s.errs)
	return out
}

// Union returns a single error describing every recorded failure, for
// surfacing on the final failure branch of a validation call. Returns nil if
// the set is empty.
func (s *Set) Union() error {
	if len(s.errs) == 0 {
		return nil
	}
	if len(s.errs) == 1 {
		return s.errs[0]
	}
	detail := s.errs[0].Detail
	for _, e := range s.errs[1:] {
		detail += "; " + e.Error()
	}
	return &DcvError{Code: s.errs[0].Code, Detail: detail}
}
