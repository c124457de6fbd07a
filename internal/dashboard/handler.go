package dashboard

import (
	"github.com/gin-gonic/gin"

	"internship-matcher/internal/shared/server/middleware"
	"internship-matcher/internal/shared/server/respond"
)

// Handler exposes the dashboard endpoint.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/dashboard", h.get)
}

func (h *Handler) get(c *gin.Context) {
	sum, err := h.Svc.Summarize(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, sum)
}
