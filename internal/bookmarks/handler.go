package bookmarks

import (
	"github.com/gin-gonic/gin"

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
	rg.GET("/bookmarks", h.list)
	rg.PUT("/bookmarks/:opportunityId", h.save)
	rg.DELETE("/bookmarks/:opportunityId", h.remove)
	rg.POST("/bookmarks/:opportunityId/toggle", h.toggle)
}

func (h *Handler) toggle(c *gin.Context) {
	oppID := c.Param("opportunityId")
	c.Set(middleware.OpportunityIDKey, oppID)
	saved, err := h.Svc.Toggle(c.Request.Context(), middleware.UserIDFromContext(c), oppID)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"saved": saved})
}

func (h *Handler) save(c *gin.Context) {
	oppID := c.Param("opportunityId")
	c.Set(middleware.OpportunityIDKey, oppID)
	if err := h.Svc.Save(c.Request.Context(), middleware.UserIDFromContext(c), oppID); err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"saved": true})
}

func (h *Handler) remove(c *gin.Context) {
	oppID := c.Param("opportunityId")
	c.Set(middleware.OpportunityIDKey, oppID)
	if err := h.Svc.Remove(c.Request.Context(), middleware.UserIDFromContext(c), oppID); err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"saved": false})
}

func (h *Handler) list(c *gin.Context) {
	opps, err := h.Svc.Opportunities(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, opps)
}
