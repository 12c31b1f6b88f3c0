package lifecycle

import "github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"

var memberClosureCodes = map[model.ProjectStatus]struct{}{
	model.ProjectCompleted:            {},
	model.ProjectCompletedPartial:     {},
	model.ProjectNotCompleted:         {},
	model.ProjectCancelledNoAgreement: {},
	model.ProjectUnpaid:               {},
}

var clientClosureCodes = map[model.ProjectStatus]struct{}{
	model.ProjectCompleted:            {},
	model.ProjectCompletedPartial:     {},
	model.ProjectCancelled:            {},
	model.ProjectCancelledNoBudget:    {},
	model.ProjectNotCompletedByMember: {},
}

var needsJustification = map[model.ProjectStatus]struct{}{
	model.ProjectCompletedPartial:     {},
	model.ProjectNotCompleted:         {},
	model.ProjectCancelledNoAgreement: {},
	model.ProjectUnpaid:               {},
	model.ProjectNotCompletedByMember: {},
}

// ClosureAllowed reports whether a role may close a project with the given code.
// Administrators may use any terminal code.
func ClosureAllowed(role model.Role, code model.ProjectStatus) bool {
	if !IsTerminal(code) {
		return false
	}
	switch role {
	case model.RoleAdmin:
		return true
	case model.RoleMember:
		_, ok := memberClosureCodes[code]
		return ok
	case model.RoleClient:
		_, ok := clientClosureCodes[code]
		return ok
	default:
		return false
	}
}

// ClosureOnly reports whether a status can only be entered by closing the project with a
// reason. completed and cancelled are also reachable through ordinary transitions.
func ClosureOnly(status model.ProjectStatus) bool {
	return IsTerminal(status) && status != model.ProjectCompleted && status != model.ProjectCancelled
}

func RequiresJustification(code model.ProjectStatus) bool {
	_, ok := needsJustification[code]
	return ok
}

// RejectsPendingBids reports whether entering status closes the bidding round.
func RejectsPendingBids(status model.ProjectStatus) bool {
	return IsTerminal(status)
}
