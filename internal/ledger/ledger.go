// Package ledger derives Solicitud state and budget figures from its assignments.
// Every function re-scans the children it is given; nothing is cached.
package ledger

import (
	"github.com/google/uuid"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
)

const hourEpsilon = 1e-9

// Live filters out rejected assignments.
func Live(assignments []model.Asignacion) []model.Asignacion {
	live := make([]model.Asignacion, 0, len(assignments))
	for _, a := range assignments {
		if a.Status != model.AsignacionRechazado {
			live = append(live, a)
		}
	}
	return live
}

func AssignedHours(assignments []model.Asignacion) float64 {
	total := 0.0
	for _, a := range Live(assignments) {
		total += a.AssignedHours
	}
	return total
}

func ConsumedHours(assignments []model.Asignacion) float64 {
	total := 0.0
	for _, a := range assignments {
		total += a.ConsumedHours
	}
	return total
}

// Unallocated is the part of the budget not promised to any live assignment.
func Unallocated(total float64, assignments []model.Asignacion) float64 {
	return total - AssignedHours(assignments)
}

func Fits(hours, total float64, assignments []model.Asignacion) bool {
	return hours-Unallocated(total, assignments) <= hourEpsilon
}

func HasLiveMember(assignments []model.Asignacion, memberID uuid.UUID) bool {
	for _, a := range Live(assignments) {
		if a.MemberID == memberID {
			return true
		}
	}
	return false
}

func isActive(status model.AsignacionStatus) bool {
	switch status {
	case model.AsignacionAprobado, model.AsignacionEnProgreso, model.AsignacionPreConfirmado:
		return true
	default:
		return false
	}
}

// Aggregate recomputes the Solicitud state after a child state change.
func Aggregate(assignments []model.Asignacion) model.SolicitudStatus {
	if len(assignments) == 0 {
		return model.SolicitudPendiente
	}
	var pending, rejected, working, active int
	for _, a := range assignments {
		switch a.Status {
		case model.AsignacionPendiente:
			pending++
		case model.AsignacionRechazado:
			rejected++
		}
		if a.Status == model.AsignacionAprobado || a.Status == model.AsignacionEnProgreso {
			working++
		}
		if isActive(a.Status) {
			active++
		}
	}
	switch {
	case rejected == len(assignments):
		return model.SolicitudCancelado
	case pending > 0 && working > 0:
		return model.SolicitudParcial
	case pending == 0 && active > 0:
		return model.SolicitudEnProgreso
	case pending == 0:
		return model.SolicitudCompletado
	default:
		return model.SolicitudPendiente
	}
}

// AfterConfirmation is the Solicitud state once the client confirmed an assignment:
// completed only when nothing is left open and the whole budget was consumed.
func AfterConfirmation(total float64, assignments []model.Asignacion) model.SolicitudStatus {
	for _, a := range assignments {
		if a.Status != model.AsignacionCompletado && a.Status != model.AsignacionRechazado {
			return model.SolicitudEnProgreso
		}
	}
	if total-ConsumedHours(assignments) > hourEpsilon {
		return model.SolicitudEnProgreso
	}
	return model.SolicitudCompletado
}

// AfterProgress moves a Solicitud still in an early state into en_progreso once work
// has been reported against one of its assignments.
func AfterProgress(current model.SolicitudStatus) model.SolicitudStatus {
	if current == model.SolicitudPendiente || current == model.SolicitudParcial {
		return model.SolicitudEnProgreso
	}
	return current
}

// CloseOutRemaining is the pre-confirmation consumption policy: the member's whole
// allotment counts as consumed, including hours never reported.
func CloseOutRemaining(a *model.Asignacion) float64 {
	released := a.AssignedHours - a.ConsumedHours
	a.ConsumedHours = a.AssignedHours
	return released
}

// RemainingAllotment is what the member may still report on an assignment.
func RemainingAllotment(a model.Asignacion) float64 {
	return a.AssignedHours - a.ConsumedHours
}

func ExceedsAllotment(a model.Asignacion, hours float64) bool {
	return hours-RemainingAllotment(a) > hourEpsilon
}
