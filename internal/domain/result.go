package domain

import "strings"

// AggregateResult is the joint outcome of one coordinated action batch.
// Results are kept in batch order; actions that were skipped because their
// prerequisite was unavailable do not appear.
type AggregateResult struct {
	Results []ActionResult
}

// AllSucceeded reports whether every launched action succeeded and no
// requested capability was unavailable. An empty batch is all-succeeded.
func (r AggregateResult) AllSucceeded() bool {
	for _, res := range r.Results {
		if res.Outcome != OutcomeSucceeded {
			return false
		}
	}
	return true
}

// Result returns the result recorded for kind.
func (r AggregateResult) Result(kind ActionKind) (ActionResult, bool) {
	for _, res := range r.Results {
		if res.Kind == kind {
			return res, true
		}
	}
	return ActionResult{}, false
}

// Launched reports whether kind is part of the result, including as unavailable.
func (r AggregateResult) Launched(kind ActionKind) bool {
	_, ok := r.Result(kind)
	return ok
}

// Available reports whether kind was requested and could be engaged.
func (r AggregateResult) Available(kind ActionKind) bool {
	res, ok := r.Result(kind)
	return ok && res.Outcome != OutcomeUnavailable
}

// Succeeded reports whether kind was engaged and succeeded.
func (r AggregateResult) Succeeded(kind ActionKind) bool {
	res, ok := r.Result(kind)
	return ok && res.Outcome == OutcomeSucceeded
}

// Failed reports whether kind was engaged and failed.
func (r AggregateResult) Failed(kind ActionKind) bool {
	res, ok := r.Result(kind)
	return ok && res.Outcome == OutcomeFailed
}

// Kinds returns the action kinds of the result in batch order.
func (r AggregateResult) Kinds() []ActionKind {
	kinds := make([]ActionKind, len(r.Results))
	for i, res := range r.Results {
		kinds[i] = res.Kind
	}
	return kinds
}

// String renders the result as "kind=outcome" pairs for logs.
func (r AggregateResult) String() string {
	if len(r.Results) == 0 {
		return "none"
	}
	parts := make([]string, len(r.Results))
	for i, res := range r.Results {
		parts[i] = res.Kind.String() + "=" + res.Outcome.String()
	}
	return strings.Join(parts, ",")
}
