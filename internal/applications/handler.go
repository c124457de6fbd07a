package applications

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"internship-matcher/internal/shared/auth"
	"internship-matcher/internal/shared/server/middleware"
	"internship-matcher/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/applications", middleware.RequireRole(auth.RoleStudent), h.submit)
	rg.GET("/applications", h.list)
	rg.GET("/applications/:id", h.get)
	rg.POST("/applications/:id/transitions", h.transition)
}

// ActorFromContext maps the authenticated role onto a state machine actor.
func ActorFromContext(c *gin.Context) Actor {
	kind := ActorApplicant
	switch middleware.UserRoleFromContext(c) {
	case auth.RoleEmployer:
		kind = ActorEmployer
	case auth.RoleAdmin:
		kind = ActorAdmin
	}
	return Actor{Kind: kind, ID: middleware.UserIDFromContext(c)}
}

func (h *Handler) submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation", "invalid JSON body", nil)
		return
	}
	c.Set(middleware.OpportunityIDKey, req.OpportunityID)

	app, err := h.Svc.Submit(c.Request.Context(), middleware.UserIDFromContext(c), req)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set(middleware.ApplicationIDKey, app.ID)
	c.Set(middleware.StatusTransitionKey, string(app.State))
	respond.Created(c, app)
}

func (h *Handler) transition(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.ApplicationIDKey, id)

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation", "invalid JSON body", nil)
		return
	}
	app, err := h.Svc.Transition(c.Request.Context(), id, ActorFromContext(c), req)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set(middleware.OpportunityIDKey, app.OpportunityID)
	c.Set(middleware.StatusTransitionKey, string(app.State))
	respond.OK(c, app)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.ApplicationIDKey, id)
	app, err := h.Svc.Get(c.Request.Context(), id, ActorFromContext(c))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, app)
}

func (h *Handler) list(c *gin.Context) {
	actor := ActorFromContext(c)
	oppID := strings.TrimSpace(c.Query("opportunityId"))

	var (
		apps []Application
		err  error
	)
	if oppID != "" {
		c.Set(middleware.OpportunityIDKey, oppID)
		apps, err = h.Svc.ListForOpportunity(c.Request.Context(), oppID, actor)
	} else {
		apps, err = h.Svc.ListForProfile(c.Request.Context(), actor.ID)
	}
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"applications": apps, "total": len(apps)})
}
