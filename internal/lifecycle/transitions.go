// Package lifecycle holds the project state machine: which states exist, which of them are
// terminal, and which moves each visibility regime allows.
package lifecycle

import "github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"

type Regime string

const (
	RegimePrivate       Regime = "private"
	RegimeCollaborative Regime = "collaborative"
)

var terminal = map[model.ProjectStatus]struct{}{
	model.ProjectCompleted:            {},
	model.ProjectCompletedPartial:     {},
	model.ProjectNotCompleted:         {},
	model.ProjectCancelled:            {},
	model.ProjectCancelledNoAgreement: {},
	model.ProjectCancelledNoBudget:    {},
	model.ProjectUnpaid:               {},
	model.ProjectNotCompletedByMember: {},
}

var known = map[model.ProjectStatus]struct{}{
	model.ProjectDraft:        {},
	model.ProjectPublished:    {},
	model.ProjectPlanned:      {},
	model.ProjectStarted:      {},
	model.ProjectInProgress:   {},
	model.ProjectImplementing: {},
	model.ProjectTesting:      {},
}

// private regime moves freely inside this set.
var privateSet = []model.ProjectStatus{
	model.ProjectDraft,
	model.ProjectStarted,
	model.ProjectImplementing,
	model.ProjectTesting,
	model.ProjectCompleted,
}

var collaborativeGraph = map[model.ProjectStatus][]model.ProjectStatus{
	model.ProjectPublished:    {model.ProjectPlanned, model.ProjectCancelled},
	model.ProjectPlanned:      {model.ProjectStarted, model.ProjectCancelled},
	model.ProjectStarted:      {model.ProjectInProgress, model.ProjectImplementing, model.ProjectCancelled},
	model.ProjectInProgress:   {model.ProjectImplementing, model.ProjectTesting, model.ProjectCompleted},
	model.ProjectImplementing: {model.ProjectTesting, model.ProjectCompleted},
	model.ProjectTesting:      {model.ProjectCompleted, model.ProjectImplementing},
}

func IsTerminal(status model.ProjectStatus) bool {
	_, ok := terminal[status]
	return ok
}

func IsKnown(status model.ProjectStatus) bool {
	if IsTerminal(status) {
		return true
	}
	_, ok := known[status]
	return ok
}

// RegimeFor selects the transition regime from live data: a private project turns
// collaborative as soon as it holds an accepted, non-removed bid.
func RegimeFor(visibility model.ProjectVisibility, bids []model.Bid) Regime {
	if visibility == model.VisibilityPrivate && len(ActiveTeam(bids)) == 0 {
		return RegimePrivate
	}
	return RegimeCollaborative
}

// AcceptsBids reports whether a project takes bids in its current state. Public projects
// recruit before work starts. Private projects take invited members only once they sit in a
// state the collaborative graph can continue from.
func AcceptsBids(visibility model.ProjectVisibility, status model.ProjectStatus) bool {
	if visibility == model.VisibilityPrivate {
		switch status {
		case model.ProjectStarted, model.ProjectImplementing, model.ProjectTesting:
			return true
		}
		return false
	}
	return status == model.ProjectPublished || status == model.ProjectPlanned
}

// InitialStatus is the state a project is published in.
func InitialStatus(visibility model.ProjectVisibility) model.ProjectStatus {
	if visibility == model.VisibilityPrivate {
		return model.ProjectDraft
	}
	return model.ProjectPublished
}

// AllowedNext lists the states reachable in one step. Terminal states have none.
func AllowedNext(regime Regime, from model.ProjectStatus) []model.ProjectStatus {
	if IsTerminal(from) {
		return nil
	}
	if regime == RegimeCollaborative {
		return append([]model.ProjectStatus(nil), collaborativeGraph[from]...)
	}
	next := make([]model.ProjectStatus, 0, len(privateSet)+1)
	for _, s := range privateSet {
		if s != from {
			next = append(next, s)
		}
	}
	return append(next, model.ProjectCancelled)
}

func CanTransition(regime Regime, from, to model.ProjectStatus) bool {
	for _, s := range AllowedNext(regime, from) {
		if s == to {
			return true
		}
	}
	return false
}
