package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"internship-matcher/internal/applications"
	"internship-matcher/internal/catalog"
	"internship-matcher/internal/shared/apperr"
)

var now = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type fakeApps map[applications.State]int

func (f fakeApps) CountByState(ctx context.Context, profileID string) (map[applications.State]int, error) {
	return f, nil
}

type fakeMarks struct {
	n   int
	err error
}

func (f fakeMarks) Count(ctx context.Context, profileID string) (int, error) { return f.n, f.err }

type fakeBest struct {
	score float64
	ok    bool
	err   error
}

func (f fakeBest) BestScore(ctx context.Context, userID string) (float64, bool, error) {
	return f.score, f.ok, f.err
}

func testIndex(t *testing.T) *catalog.Index {
	t.Helper()
	index := catalog.NewIndex()
	for _, o := range []catalog.Opportunity{
		{ID: "a", Openings: 1, Deadline: now.Add(time.Hour), Status: catalog.StatusOpen},
		{ID: "b", Openings: 2, Deadline: now.Add(time.Hour), Status: catalog.StatusOpen},
		{ID: "full", Openings: 0, Deadline: now.Add(time.Hour), Status: catalog.StatusOpen},
		{ID: "closed", Openings: 1, Deadline: now.Add(time.Hour), Status: catalog.StatusClosed},
	} {
		if err := index.Upsert(o); err != nil {
			t.Fatalf("seed %s: %v", o.ID, err)
		}
	}
	return index
}

func TestSummarize(t *testing.T) {
	apps := fakeApps{
		applications.StateSubmitted:     2,
		applications.StateUnderReview:   1,
		applications.StateOfferExtended: 1,
		applications.StateWithdrawn:     3,
	}
	svc := NewService(apps, fakeMarks{n: 4}, fakeBest{score: 0.65, ok: true}, testIndex(t))
	svc.Now = func() time.Time { return now }

	sum, err := svc.Summarize(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.TotalApplications != 7 || sum.OpenApplications != 3 {
		t.Fatalf("total=%d open=%d", sum.TotalApplications, sum.OpenApplications)
	}
	if sum.Bookmarks != 4 || sum.ActiveOpportunities != 2 {
		t.Fatalf("bookmarks=%d active=%d", sum.Bookmarks, sum.ActiveOpportunities)
	}
	if !sum.HasProfile || sum.BestMatchScore == nil || *sum.BestMatchScore != 0.65 {
		t.Fatalf("best score = %v, hasProfile = %v", sum.BestMatchScore, sum.HasProfile)
	}
	if !sum.GeneratedAt.Equal(now) {
		t.Fatalf("generatedAt = %v", sum.GeneratedAt)
	}
}

func TestSummarizeWithoutProfile(t *testing.T) {
	svc := NewService(fakeApps{}, fakeMarks{}, fakeBest{err: apperr.NotFound("profile", "stu-1")}, testIndex(t))
	sum, err := svc.Summarize(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.HasProfile || sum.BestMatchScore != nil {
		t.Fatalf("expected no profile data, got %+v", sum)
	}
}

func TestSummarizeNoMatchClearsFloor(t *testing.T) {
	svc := NewService(fakeApps{}, fakeMarks{}, fakeBest{}, testIndex(t))
	sum, err := svc.Summarize(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !sum.HasProfile || sum.BestMatchScore != nil {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestSummarizeErrors(t *testing.T) {
	svc := NewService(fakeApps{}, fakeMarks{err: errors.New("redis down")}, fakeBest{}, testIndex(t))
	if _, err := svc.Summarize(context.Background(), "stu-1"); err == nil {
		t.Fatalf("expected store error")
	}
	if _, err := svc.Summarize(context.Background(), ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDashboardHTTP(t *testing.T) {
	svc := NewService(fakeApps{applications.StateSubmitted: 1}, fakeMarks{n: 2}, fakeBest{score: 0.5, ok: true}, testIndex(t))
	svc.Now = func() time.Time { return now }

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", "stu-1")
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Applications   map[string]int `json:"applications"`
		Bookmarks      int            `json:"bookmarks"`
		BestMatchScore *float64       `json:"bestMatchScore"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Applications["submitted"] != 1 || body.Bookmarks != 2 || body.BestMatchScore == nil {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}
