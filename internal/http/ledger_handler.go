package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/service"
)

type createSolicitudRequest struct {
	TotalHours   float64                   `json:"total_hours" binding:"required"`
	DiscountTier int                       `json:"discount_tier"`
	Notes        string                    `json:"notes"`
	Assignments  []service.AssignmentInput `json:"assignments"`
}

func (h *Handler) createSolicitud(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req createSolicitudRequest
	if !h.bind(c, &req) {
		return
	}
	detail, err := h.ledger.CreateSolicitud(c.Request.Context(), service.CreateSolicitudInput{
		Principal:    principal,
		TotalHours:   req.TotalHours,
		DiscountTier: req.DiscountTier,
		Notes:        req.Notes,
		Assignments:  req.Assignments,
	})
	h.respond(c, http.StatusCreated, detail, err)
}

func (h *Handler) getSolicitud(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	detail, err := h.ledger.GetSolicitud(c.Request.Context(), principal, id)
	h.respond(c, http.StatusOK, detail, err)
}

type addAssignmentRequest struct {
	MemberID uuid.UUID `json:"member_id" binding:"required"`
	Hours    float64   `json:"hours" binding:"required"`
	Task     string    `json:"task"`
}

func (h *Handler) addAssignment(c *gin.Context) {
	var req addAssignmentRequest
	principal, id, ok := h.request(c, &req)
	if !ok {
		return
	}
	asignacion, err := h.ledger.AddAssignment(c.Request.Context(), service.AddAssignmentInput{
		Principal:   principal,
		SolicitudID: id,
		AssignmentInput: service.AssignmentInput{
			MemberID: req.MemberID,
			Hours:    req.Hours,
			Task:     req.Task,
		},
	})
	h.respond(c, http.StatusCreated, asignacion, err)
}

type respondAssignmentRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

func (h *Handler) respondAssignment(c *gin.Context) {
	var req respondAssignmentRequest
	principal, id, ok := h.request(c, &req)
	if !ok {
		return
	}
	asignacion, err := h.ledger.RespondAssignment(c.Request.Context(), service.RespondAssignmentInput{
		Principal:    principal,
		AsignacionID: id,
		Approve:      req.Approve,
		Reason:       req.Reason,
	})
	h.respond(c, http.StatusOK, asignacion, err)
}

type reportProgressRequest struct {
	Hours           float64 `json:"hours"`
	Narrative       string  `json:"narrative"`
	EvidenceURL     string  `json:"evidence_url"`
	PreConfirmation bool    `json:"pre_confirmation"`
}

func (h *Handler) reportProgress(c *gin.Context) {
	var req reportProgressRequest
	principal, id, ok := h.request(c, &req)
	if !ok {
		return
	}
	result, err := h.ledger.ReportProgress(c.Request.Context(), service.ReportProgressInput{
		Principal:       principal,
		AsignacionID:    id,
		Hours:           req.Hours,
		Narrative:       req.Narrative,
		EvidenceURL:     req.EvidenceURL,
		PreConfirmation: req.PreConfirmation,
	})
	h.respond(c, http.StatusCreated, result, err)
}

func (h *Handler) preConfirm(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	asignacion, err := h.ledger.PreConfirm(c.Request.Context(), principal, id)
	h.respond(c, http.StatusOK, asignacion, err)
}

func (h *Handler) confirmCompletion(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	asignacion, err := h.ledger.ConfirmCompletion(c.Request.Context(), principal, id)
	h.respond(c, http.StatusOK, asignacion, err)
}
