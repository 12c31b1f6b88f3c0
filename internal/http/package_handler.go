package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/schedule"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/service"
)

type purchaseRequest struct {
	MemberID         uuid.UUID             `json:"member_id" binding:"required"`
	Title            string                `json:"title"`
	TotalHours       float64               `json:"total_hours" binding:"required"`
	Windows          []service.WindowInput `json:"windows"`
	PaymentReference string                `json:"payment_reference"`
}

func (h *Handler) purchasePackage(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req purchaseRequest
	if !h.bind(c, &req) {
		return
	}
	purchase, err := h.packages.Purchase(c.Request.Context(), service.PurchaseInput{
		Principal:        principal,
		MemberID:         req.MemberID,
		Title:            req.Title,
		TotalHours:       req.TotalHours,
		Windows:          req.Windows,
		PaymentReference: req.PaymentReference,
	})
	h.respond(c, http.StatusCreated, purchase, err)
}

func (h *Handler) getPurchase(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	detail, err := h.packages.GetPurchase(c.Request.Context(), principal, id)
	h.respond(c, http.StatusOK, detail, err)
}

type respondPurchaseRequest struct {
	Decision service.Decision `json:"decision" binding:"required"`
	Note     string           `json:"note"`
}

func (h *Handler) respondPurchase(c *gin.Context) {
	var req respondPurchaseRequest
	principal, id, ok := h.request(c, &req)
	if !ok {
		return
	}
	purchase, err := h.packages.Respond(c.Request.Context(), service.RespondInput{
		Principal:  principal,
		PurchaseID: id,
		Decision:   req.Decision,
		Note:       req.Note,
	})
	h.respond(c, http.StatusOK, purchase, err)
}

func (h *Handler) cancelPurchase(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	purchase, err := h.packages.Cancel(c.Request.Context(), principal, id)
	h.respond(c, http.StatusOK, purchase, err)
}

type closePurchaseRequest struct {
	Report string `json:"report" binding:"required"`
}

func (h *Handler) closePurchase(c *gin.Context) {
	var req closePurchaseRequest
	principal, id, ok := h.request(c, &req)
	if !ok {
		return
	}
	purchase, err := h.packages.Close(c.Request.Context(), service.ClosePurchaseInput{
		Principal:  principal,
		PurchaseID: id,
		Report:     req.Report,
	})
	h.respond(c, http.StatusOK, purchase, err)
}

type windowsRequest struct {
	Windows []service.WindowInput `json:"windows"`
}

func (h *Handler) replacePackageAvailability(c *gin.Context) {
	var req windowsRequest
	principal, id, ok := h.request(c, &req)
	if !ok {
		return
	}
	rows, err := h.packages.ReplaceAvailability(c.Request.Context(), principal, id, req.Windows)
	h.respond(c, http.StatusOK, gin.H{"availability": rows}, err)
}

func (h *Handler) exportSessions(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	result, err := h.packages.ExportSessions(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, result.FileName, result.ContentType, result.Content)
}

func (h *Handler) availableSlots(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	slots, err := h.scheduling.AvailableSlots(c.Request.Context(), principal, id, c.Query("date"))
	h.respond(c, http.StatusOK, slots, err)
}

type scheduleSessionRequest struct {
	Date  string          `json:"date" binding:"required"`
	Start *schedule.Clock `json:"start" binding:"required"`
	End   *schedule.Clock `json:"end" binding:"required"`
	Notes string          `json:"notes"`
}

func (h *Handler) scheduleSession(c *gin.Context) {
	var req scheduleSessionRequest
	principal, id, ok := h.request(c, &req)
	if !ok {
		return
	}
	session, err := h.scheduling.ScheduleSession(c.Request.Context(), service.ScheduleSessionInput{
		Principal:  principal,
		PurchaseID: id,
		Date:       req.Date,
		Start:      *req.Start,
		End:        *req.End,
		Notes:      req.Notes,
	})
	h.respond(c, http.StatusCreated, session, err)
}

func (h *Handler) completeSession(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	session, err := h.scheduling.CompleteSession(c.Request.Context(), principal, id)
	h.respond(c, http.StatusOK, session, err)
}

func (h *Handler) cancelSession(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	session, err := h.scheduling.CancelSession(c.Request.Context(), principal, id)
	h.respond(c, http.StatusOK, session, err)
}

func (h *Handler) markNoShow(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	session, err := h.scheduling.MarkNoShow(c.Request.Context(), principal, id)
	h.respond(c, http.StatusOK, session, err)
}

type proposeChangeRequest struct {
	Date   string          `json:"date" binding:"required"`
	Start  *schedule.Clock `json:"start" binding:"required"`
	End    *schedule.Clock `json:"end" binding:"required"`
	Reason string          `json:"reason" binding:"required"`
}

func (h *Handler) proposeChange(c *gin.Context) {
	var req proposeChangeRequest
	principal, id, ok := h.request(c, &req)
	if !ok {
		return
	}
	session, err := h.scheduling.ProposeChange(c.Request.Context(), service.ProposeChangeInput{
		Principal: principal,
		SessionID: id,
		Date:      req.Date,
		Start:     *req.Start,
		End:       *req.End,
		Reason:    req.Reason,
	})
	h.respond(c, http.StatusOK, session, err)
}

func (h *Handler) acceptChange(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	session, err := h.scheduling.AcceptChange(c.Request.Context(), principal, id)
	h.respond(c, http.StatusOK, session, err)
}

func (h *Handler) rejectChange(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	session, err := h.scheduling.RejectChange(c.Request.Context(), principal, id)
	h.respond(c, http.StatusOK, session, err)
}

func (h *Handler) memberSlots(c *gin.Context) {
	_, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	slots, err := h.availability.MemberSlots(c.Request.Context(), id, c.Query("date"))
	h.respond(c, http.StatusOK, slots, err)
}

func (h *Handler) memberAvailability(c *gin.Context) {
	_, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	rows, err := h.availability.ListMemberAvailability(c.Request.Context(), id)
	h.respond(c, http.StatusOK, gin.H{"availability": rows}, err)
}

func (h *Handler) setMemberAvailability(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req windowsRequest
	if !h.bind(c, &req) {
		return
	}
	rows, err := h.availability.SetMemberAvailability(c.Request.Context(), principal, req.Windows)
	h.respond(c, http.StatusOK, gin.H{"availability": rows}, err)
}

type exceptionRequest struct {
	Date   string              `json:"date" binding:"required"`
	Kind   model.ExceptionKind `json:"kind" binding:"required"`
	Start  *schedule.Clock     `json:"start"`
	End    *schedule.Clock     `json:"end"`
	Reason string              `json:"reason"`
}

func (h *Handler) addException(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req exceptionRequest
	if !h.bind(c, &req) {
		return
	}
	exception, err := h.availability.AddException(c.Request.Context(), service.ExceptionInput{
		Principal: principal,
		Date:      req.Date,
		Kind:      req.Kind,
		Start:     req.Start,
		End:       req.End,
		Reason:    req.Reason,
	})
	h.respond(c, http.StatusOK, exception, err)
}

func (h *Handler) removeException(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	date := strings.TrimSpace(c.Param("date"))
	if err := h.availability.RemoveException(c.Request.Context(), principal, date); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
