package matching

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"internship-matcher/internal/catalog"
	"internship-matcher/internal/profiles"
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
	rg.GET("/recommendations", h.forUser)
	rg.POST("/recommendations", h.forProfile)
}

func (h *Handler) forUser(c *gin.Context) {
	q, ok := parseQuery(c)
	if !ok {
		return
	}
	page, err := h.Svc.ForUser(c.Request.Context(), middleware.UserIDFromContext(c), q)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, page)
}

func (h *Handler) forProfile(c *gin.Context) {
	q, ok := parseQuery(c)
	if !ok {
		return
	}
	var raw profiles.RawProfile
	if err := c.ShouldBindJSON(&raw); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation", "invalid JSON body", nil)
		return
	}
	if strings.TrimSpace(raw.UserID) == "" {
		raw.UserID = middleware.UserIDFromContext(c)
	}
	page, err := h.Svc.ForProfile(raw, q)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, page)
}

func parseQuery(c *gin.Context) (Query, bool) {
	q := Query{Filter: catalog.Filter{
		Sector:   c.Query("sector"),
		Location: c.Query("location"),
	}}
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"offset", &q.Offset},
		{"limit", &q.Limit},
	} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respond.Error(c, http.StatusBadRequest, "validation", p.name+" must be a non-negative integer",
				respond.ErrorDetails{Field: p.name})
			return Query{}, false
		}
		*p.dst = n
	}
	return q, true
}
