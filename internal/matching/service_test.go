package matching

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"internship-matcher/internal/catalog"
	"internship-matcher/internal/profiles"
	"internship-matcher/internal/shared/apperr"
)

type fixture struct {
	index    *catalog.Index
	profiles *profiles.Service
	svc      *Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	index := catalog.NewIndex()
	for _, o := range []catalog.Opportunity{
		frontendOpportunity("front-1"),
		func() catalog.Opportunity {
			o := frontendOpportunity("full")
			o.Openings = 0
			return o
		}(),
		func() catalog.Opportunity {
			o := frontendOpportunity("fin")
			o.Sector = "finance"
			o.RequiredSkills = []string{"react"}
			return o
		}(),
	} {
		require.NoError(t, index.Upsert(o))
	}
	profileSvc := profiles.NewService(profiles.NewNormalizer(nil), profiles.NewMemoryRepo())
	svc := NewService(index, profileSvc, nil)
	svc.Now = func() time.Time { return evalTime }
	return fixture{index: index, profiles: profileSvc, svc: svc}
}

func rawStudent() profiles.RawProfile {
	return profiles.RawProfile{
		UserID:          "stu-1",
		Skills:          []string{"reactjs", "js"},
		EducationLevel:  "B.Tech",
		FieldOfStudy:    "CSE",
		SectorInterests: []string{"software"},
		Location:        "Bengaluru",
	}
}

func TestForUserUsesStoredProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ForUser(ctx, "stu-1", Query{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.profiles.Save(ctx, "stu-1", rawStudent())
	require.NoError(t, err)

	page, err := f.svc.ForUser(ctx, "stu-1", Query{})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	assert.Equal(t, "fin", page.Matches[0].Opportunity.ID)
	assert.Equal(t, "front-1", page.Matches[1].Opportunity.ID)
	assert.InDelta(t, 0.55, page.Matches[1].Score, 1e-9)
}

func TestForProfileWithFilter(t *testing.T) {
	f := newFixture(t)
	page, err := f.svc.ForProfile(rawStudent(), Query{Filter: catalog.Filter{Sector: "Information Technology"}})
	require.NoError(t, err)
	require.Len(t, page.Matches, 1)
	assert.Equal(t, "front-1", page.Matches[0].Opportunity.ID)
}

func TestForProfileValidation(t *testing.T) {
	f := newFixture(t)
	raw := rawStudent()
	raw.Skills, raw.ResumeSkills = nil, nil
	_, err := f.svc.ForProfile(raw, Query{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestBestScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.profiles.Save(ctx, "stu-1", rawStudent())
	require.NoError(t, err)

	score, ok, err := f.svc.BestScore(ctx, "stu-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 0.65, score, 1e-9)
}

func TestRecommendationsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", "stu-1")
		c.Next()
	})
	NewHandler(f.svc).RegisterRoutes(router.Group("/api/v1"))

	body, _ := json.Marshal(map[string]any{
		"skills":          []string{"React"},
		"educationLevel":  "Undergraduate",
		"fieldOfStudy":    "CS",
		"sectorInterests": []string{"IT"},
		"location":        "Bangalore",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations?limit=1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var page Page
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Limit)
	require.Len(t, page.Matches, 1)
	assert.NotEmpty(t, page.Matches[0].Reasons)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/recommendations?offset=abc", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/recommendations", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
