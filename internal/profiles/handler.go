package profiles

import (
	"net/http"

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
	rg.PUT("/profile", h.put)
	rg.GET("/profile", h.get)
}

func (h *Handler) put(c *gin.Context) {
	var raw RawProfile
	if err := c.ShouldBindJSON(&raw); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation", "invalid JSON body", nil)
		return
	}
	profile, err := h.Svc.Save(c.Request.Context(), middleware.UserIDFromContext(c), raw)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, profile)
}

func (h *Handler) get(c *gin.Context) {
	profile, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, profile)
}
