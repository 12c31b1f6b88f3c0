package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/http/middleware"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/service"
)

type Services struct {
	Projects     *service.ProjectService
	Packages     *service.PackageService
	Scheduling   *service.SchedulingService
	Availability *service.AvailabilityService
	Ledger       *service.LedgerService
}

type Handler struct {
	projects     *service.ProjectService
	packages     *service.PackageService
	scheduling   *service.SchedulingService
	availability *service.AvailabilityService
	ledger       *service.LedgerService
	log          zerolog.Logger
}

func NewHandler(services Services, log zerolog.Logger) *Handler {
	return &Handler{
		projects:     services.Projects,
		packages:     services.Packages,
		scheduling:   services.Scheduling,
		availability: services.Availability,
		ledger:       services.Ledger,
		log:          log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/projects", h.createProject)
	protected.GET("/projects/:id", h.getProject)
	protected.GET("/projects/:id/team", h.listTeam)
	protected.POST("/projects/:id/bids", h.submitBid)
	protected.POST("/projects/:id/transitions", h.attemptTransition)
	protected.POST("/projects/:id/close", h.closeProject)
	protected.PATCH("/projects/:id/requirements/:requirementId", h.setRequirement)
	protected.POST("/bids/:id/accept", h.acceptBid)
	protected.POST("/bids/:id/reject", h.rejectBid)
	protected.POST("/bids/:id/work-finished", h.markWorkFinished)
	protected.POST("/bids/:id/remove", h.removeParticipant)

	protected.POST("/packages", h.purchasePackage)
	protected.GET("/packages/:id", h.getPurchase)
	protected.POST("/packages/:id/respond", h.respondPurchase)
	protected.POST("/packages/:id/cancel", h.cancelPurchase)
	protected.POST("/packages/:id/close", h.closePurchase)
	protected.PUT("/packages/:id/availability", h.replacePackageAvailability)
	protected.GET("/packages/:id/slots", h.availableSlots)
	protected.POST("/packages/:id/sessions", h.scheduleSession)
	protected.GET("/packages/:id/sessions/export", h.exportSessions)
	protected.POST("/sessions/:id/complete", h.completeSession)
	protected.POST("/sessions/:id/cancel", h.cancelSession)
	protected.POST("/sessions/:id/no-show", h.markNoShow)
	protected.POST("/sessions/:id/change", h.proposeChange)
	protected.POST("/sessions/:id/change/accept", h.acceptChange)
	protected.POST("/sessions/:id/change/reject", h.rejectChange)

	protected.GET("/members/:id/slots", h.memberSlots)
	protected.GET("/members/:id/availability", h.memberAvailability)
	protected.PUT("/me/availability", h.setMemberAvailability)
	protected.PUT("/me/exceptions", h.addException)
	protected.DELETE("/me/exceptions/:date", h.removeException)

	protected.POST("/solicitudes", h.createSolicitud)
	protected.GET("/solicitudes/:id", h.getSolicitud)
	protected.POST("/solicitudes/:id/asignaciones", h.addAssignment)
	protected.POST("/asignaciones/:id/respond", h.respondAssignment)
	protected.POST("/asignaciones/:id/avances", h.reportProgress)
	protected.POST("/asignaciones/:id/pre-confirm", h.preConfirm)
	protected.POST("/asignaciones/:id/confirm", h.confirmCompletion)
}

// principal aborts with 401 when the auth middleware did not run.
func (h *Handler) principal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
	}
	return principal, ok
}

func (h *Handler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// request reads the principal, the :id path parameter and an optional JSON body.
func (h *Handler) request(c *gin.Context, req any) (model.Principal, uuid.UUID, bool) {
	principal, ok := h.principal(c)
	if !ok {
		return model.Principal{}, uuid.Nil, false
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return model.Principal{}, uuid.Nil, false
	}
	if req != nil && !h.bind(c, req) {
		return model.Principal{}, uuid.Nil, false
	}
	return principal, id, true
}

func (h *Handler) respond(c *gin.Context, status int, body any, err error) {
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(status, body)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case service.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func sendFile(c *gin.Context, name, contentType string, content []byte) {
	c.Header("Content-Disposition", "attachment; filename=\""+name+"\"")
	c.Data(http.StatusOK, contentType, content)
}
