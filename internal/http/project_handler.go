package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/service"
)

type createProjectRequest struct {
	Title           string                  `json:"title" binding:"required"`
	Description     string                  `json:"description"`
	Visibility      model.ProjectVisibility `json:"visibility" binding:"required"`
	ClientID        *uuid.UUID              `json:"client_id"`
	MaxParticipants int                     `json:"max_participants"`
	Budget          float64                 `json:"budget"`
	Requirements    []string                `json:"requirements"`
}

func (h *Handler) createProject(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req createProjectRequest
	if !h.bind(c, &req) {
		return
	}
	project, err := h.projects.CreateProject(c.Request.Context(), service.CreateProjectInput{
		Principal:       principal,
		Title:           req.Title,
		Description:     req.Description,
		Visibility:      req.Visibility,
		ClientID:        req.ClientID,
		MaxParticipants: req.MaxParticipants,
		Budget:          req.Budget,
		Requirements:    req.Requirements,
		RemoteAddr:      c.ClientIP(),
	})
	h.respond(c, http.StatusCreated, project, err)
}

func (h *Handler) getProject(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	detail, err := h.projects.GetProject(c.Request.Context(), principal, id)
	h.respond(c, http.StatusOK, detail, err)
}

func (h *Handler) listTeam(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	team, err := h.projects.ListTeam(c.Request.Context(), principal, id)
	h.respond(c, http.StatusOK, gin.H{"team": team}, err)
}

type submitBidRequest struct {
	Amount   float64 `json:"amount"`
	Proposal string  `json:"proposal"`
}

func (h *Handler) submitBid(c *gin.Context) {
	var req submitBidRequest
	principal, id, ok := h.request(c, &req)
	if !ok {
		return
	}
	bid, err := h.projects.SubmitBid(c.Request.Context(), service.SubmitBidInput{
		Principal: principal,
		ProjectID: id,
		Amount:    req.Amount,
		Proposal:  req.Proposal,
	})
	h.respond(c, http.StatusCreated, bid, err)
}

type transitionRequest struct {
	Status model.ProjectStatus `json:"status" binding:"required"`
}

func (h *Handler) attemptTransition(c *gin.Context) {
	var req transitionRequest
	principal, id, ok := h.request(c, &req)
	if !ok {
		return
	}
	project, err := h.projects.AttemptTransition(c.Request.Context(), service.TransitionInput{
		Principal: principal,
		ProjectID: id,
		Target:    req.Status,
	})
	h.respond(c, http.StatusOK, project, err)
}

type closeProjectRequest struct {
	Reason        model.ProjectStatus `json:"reason" binding:"required"`
	Justification string              `json:"justification"`
}

func (h *Handler) closeProject(c *gin.Context) {
	var req closeProjectRequest
	principal, id, ok := h.request(c, &req)
	if !ok {
		return
	}
	result, err := h.projects.CloseWithReason(c.Request.Context(), service.CloseProjectInput{
		Principal:     principal,
		ProjectID:     id,
		Reason:        req.Reason,
		Justification: req.Justification,
	})
	h.respond(c, http.StatusOK, result, err)
}

type setRequirementRequest struct {
	Done bool `json:"done"`
}

func (h *Handler) setRequirement(c *gin.Context) {
	var req setRequirementRequest
	principal, id, ok := h.request(c, &req)
	if !ok {
		return
	}
	requirementID, ok := h.pathID(c, "requirementId")
	if !ok {
		return
	}
	err := h.projects.SetRequirement(c.Request.Context(), service.SetRequirementInput{
		Principal:     principal,
		ProjectID:     id,
		RequirementID: requirementID,
		Done:          req.Done,
	})
	h.respond(c, http.StatusOK, gin.H{"done": req.Done}, err)
}

func (h *Handler) acceptBid(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	bid, err := h.projects.AcceptBid(c.Request.Context(), service.BidDecisionInput{Principal: principal, BidID: id})
	h.respond(c, http.StatusOK, bid, err)
}

func (h *Handler) rejectBid(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	bid, err := h.projects.RejectBid(c.Request.Context(), service.BidDecisionInput{Principal: principal, BidID: id})
	h.respond(c, http.StatusOK, bid, err)
}

func (h *Handler) markWorkFinished(c *gin.Context) {
	principal, id, ok := h.request(c, nil)
	if !ok {
		return
	}
	progress, err := h.projects.MarkWorkFinished(c.Request.Context(), principal, id)
	h.respond(c, http.StatusOK, progress, err)
}

type removeParticipantRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) removeParticipant(c *gin.Context) {
	var req removeParticipantRequest
	principal, id, ok := h.request(c, &req)
	if !ok {
		return
	}
	bid, err := h.projects.RemoveParticipant(c.Request.Context(), service.RemoveParticipantInput{
		Principal: principal,
		BidID:     id,
		Reason:    req.Reason,
	})
	h.respond(c, http.StatusOK, bid, err)
}
