package catalog

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
	rg.GET("/opportunities", h.list)
	rg.GET("/opportunities/:id", h.get)
	rg.PUT("/opportunities/:id", middleware.RequireRole(auth.RoleEmployer, auth.RoleAdmin), h.put)
}

func (h *Handler) put(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set(middleware.OpportunityIDKey, id)

	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation", "invalid JSON body", nil)
		return
	}
	in.ID = id

	var (
		o   Opportunity
		err error
	)
	if middleware.UserRoleFromContext(c) == auth.RoleEmployer {
		o, err = h.Svc.IngestAs(c.Request.Context(), middleware.UserIDFromContext(c), in)
	} else {
		o, err = h.Svc.Ingest(c.Request.Context(), in)
	}
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, o)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.OpportunityIDKey, id)
	o, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, o)
}

func (h *Handler) list(c *gin.Context) {
	opps := h.Svc.List(h.Svc.now(), Filter{
		Sector:   c.Query("sector"),
		Location: c.Query("location"),
	})
	if opps == nil {
		opps = []Opportunity{}
	}
	respond.OK(c, gin.H{"opportunities": opps, "total": len(opps)})
}
