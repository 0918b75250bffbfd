package domain

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrUnknownStage is returned for stage names outside the fixed graph.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrNotInput means the stage was asked to advance an item it does not consume.
	ErrNotInput = errors.New("status is not an input of stage")
	// ErrIllegalTransition guards commits that would leave the graph.
	ErrIllegalTransition = errors.New("illegal status transition")
)

// RetryPolicy decides what a failure does to an item's status.
type RetryPolicy int

const (
	// PolicyUnbounded leaves the status unchanged on failure.
	PolicyUnbounded RetryPolicy = iota
	// PolicyBounded allows one retry status before the terminal error.
	PolicyBounded
	// PolicyTerminal goes straight to the error status on failure.
	PolicyTerminal
)

// StageName identifies a pipeline stage.
type StageName string

const (
	StageDownload   StageName = "download"
	StageScrape     StageName = "scrape"
	StageTranslate  StageName = "translate"
	StageRewrite    StageName = "rewrite"
	StageIllustrate StageName = "illustrate"
	StagePublish    StageName = "publish"
)

// Stage is the static definition of one worker's place in the graph.
type Stage struct {
	Name     StageName
	Inputs   []Status
	Success  Status
	Retry    Status
	Failed   Status
	Policy   RetryPolicy
	Artifact string
}

var stages = []Stage{
	{
		Name:     StageDownload,
		Inputs:   []Status{StatusNew},
		Success:  StatusDownloaded,
		Policy:   PolicyUnbounded,
		Artifact: "news",
	},
	{
		Name:     StageScrape,
		Inputs:   []Status{StatusDownloaded},
		Success:  StatusScraped,
		Policy:   PolicyUnbounded,
		Artifact: "scraper",
	},
	{
		Name:     StageTranslate,
		Inputs:   []Status{StatusScraped},
		Success:  StatusTranslated,
		Policy:   PolicyUnbounded,
		Artifact: "translator",
	},
	{
		Name:     StageRewrite,
		Inputs:   []Status{StatusTranslated, StatusRewriterRetry},
		Success:  StatusRewriter,
		Retry:    StatusRewriterRetry,
		Failed:   StatusRewriterError,
		Policy:   PolicyBounded,
		Artifact: "rewriter",
	},
	{
		Name:     StageIllustrate,
		Inputs:   []Status{StatusRewriter, StatusIllustratorRetry},
		Success:  StatusIllustrator,
		Retry:    StatusIllustratorRetry,
		Failed:   StatusIllustratorError,
		Policy:   PolicyBounded,
		Artifact: "illustrator",
	},
	{
		Name:     StagePublish,
		Inputs:   []Status{StatusIllustrator},
		Success:  StatusPublished,
		Failed:   StatusPublishError,
		Policy:   PolicyTerminal,
		Artifact: "publisher",
	},
}

// Stages returns the stage definitions in pipeline order.
func Stages() []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out
}

// LookupStage resolves a stage by name.
func LookupStage(name string) (Stage, error) {
	for _, s := range stages {
		if string(s.Name) == name {
			return s, nil
		}
	}
	return Stage{}, errors.Wrapf(ErrUnknownStage, "%q", name)
}

// Consumes reports whether status is in the stage's input set.
func (s Stage) Consumes(status Status) bool {
	for _, in := range s.Inputs {
		if in == status {
			return true
		}
	}
	return false
}

// Advance computes the next status for an item currently in current after
// the stage produced outcome. It is pure and idempotent.
func (s Stage) Advance(current Status, outcome Outcome) (Status, error) {
	if !s.Consumes(current) {
		return current, errors.Wrapf(ErrNotInput, "stage %s, status %s", s.Name, current)
	}
	if outcome.OK() {
		return s.Success, nil
	}

	switch s.Policy {
	case PolicyBounded:
		if current == s.Retry {
			return s.Failed, nil
		}
		return s.Retry, nil
	case PolicyTerminal:
		return s.Failed, nil
	default:
		return current, nil
	}
}

// Legal reports whether from -> to is an edge of the status graph.
// Staying in place is always legal.
func Legal(from, to Status) bool {
	if from == to {
		return from.Valid()
	}
	for _, s := range stages {
		if !s.Consumes(from) {
			continue
		}
		if to == s.Success {
			return true
		}
		switch s.Policy {
		case PolicyBounded:
			if from == s.Retry && to == s.Failed {
				return true
			}
			if from != s.Retry && to == s.Retry {
				return true
			}
		case PolicyTerminal:
			if to == s.Failed {
				return true
			}
		}
	}
	return false
}

// RequeueTarget returns where an operator requeue sends an errored item.
// These are the only backwards edges and never happen automatically.
func RequeueTarget(status Status) (Status, bool) {
	switch status {
	case StatusRewriterError:
		return StatusTranslated, true
	case StatusIllustratorError:
		return StatusRewriter, true
	case StatusPublishError:
		return StatusIllustrator, true
	}
	return "", false
}

// ErrorStatuses lists statuses eligible for requeue.
func ErrorStatuses() []Status {
	return []Status{StatusRewriterError, StatusIllustratorError, StatusPublishError}
}
