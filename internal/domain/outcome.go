package domain

import (
	"github.com/cockroachdb/errors"
)

// OutcomeKind classifies the result of a stage or provider call.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeSoftFailure
	OutcomeHardFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSoftFailure:
		return "soft_failure"
	case OutcomeHardFailure:
		return "hard_failure"
	default:
		return "unknown"
	}
}

// Outcome is a transient tagged result. Payload may be set for soft
// failures so partial content can still be stored for inspection.
type Outcome struct {
	Kind         OutcomeKind
	Payload      []byte
	FinishReason string
	Cause        error
}

// Success wraps a usable payload.
func Success(payload []byte, finishReason string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Payload: payload, FinishReason: finishReason}
}

// SoftFailure marks a response that arrived but is not usable.
func SoftFailure(payload []byte, finishReason string) Outcome {
	return Outcome{Kind: OutcomeSoftFailure, Payload: payload, FinishReason: finishReason}
}

// HardFailure marks a call that produced nothing usable.
func HardFailure(cause error) Outcome {
	if cause == nil {
		cause = errors.New("unspecified failure")
	}
	return Outcome{Kind: OutcomeHardFailure, Cause: cause}
}

// OK reports a successful outcome.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Err renders the outcome as an error, nil on success.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeSoftFailure:
		reason := o.FinishReason
		if reason == "" {
			reason = "error"
		}
		return errors.Newf("soft failure: finish_reason=%s", reason)
	default:
		return o.Cause
	}
}
