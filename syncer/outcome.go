package syncer

import (
	"errors"

	"github.com/rw-r-r-0644/vjudge-sync/ledger"
	"github.com/rw-r-r-0644/vjudge-sync/vjudge"
)

// Outcome classifies one submission attempt.
type Outcome int

const (
	// Resolved: vjudge recorded the problem.
	Resolved Outcome = iota
	// NoSubmission: vjudge found nothing to mirror. Terminal.
	NoSubmission
	// Rejected: vjudge answered with some other error. Retryable.
	Rejected
	// TransportFailure: no response (timeout, connection, open breaker).
	TransportFailure
	// AuthFailure: the session cookie was rejected (HTTP 401).
	AuthFailure
	// ProtocolFailure: non-200 status or an unparseable body.
	ProtocolFailure
)

var outcomeNames = [...]string{
	Resolved:         "resolved",
	NoSubmission:     "no_submission",
	Rejected:         "rejected",
	TransportFailure: "transport_failure",
	AuthFailure:      "auth_failure",
	ProtocolFailure:  "protocol_failure",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// Terminal reports whether the outcome is written to the ledger.
func (o Outcome) Terminal() bool {
	return o == Resolved || o == NoSubmission
}

// Classify maps the result of vjudge.Client.Submit to an Outcome.
func Classify(rec ledger.Record, err error) Outcome {
	if err != nil {
		var statusErr *vjudge.StatusError
		if errors.As(err, &statusErr) {
			if statusErr.Unauthorized() {
				return AuthFailure
			}
			return ProtocolFailure
		}
		var decodeErr *vjudge.DecodeError
		if errors.As(err, &decodeErr) {
			return ProtocolFailure
		}
		return TransportFailure
	}
	switch {
	case rec.Success():
		return Resolved
	case rec.Message() == ledger.NoRecentSubmissions:
		return NoSubmission
	default:
		return Rejected
	}
}
