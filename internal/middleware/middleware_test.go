package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-activity-portal/internal/models"
)

type staticUser struct{ user *models.User }

func (s staticUser) CurrentUser() *models.User { return s.user }

type recordedRequest struct {
	method, path string
	status       int
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []recordedRequest
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recordedRequest{method: method, path: path, status: status})
}

func TestRequireUserBlocksAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", RequireUser(staticUser{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "sign in required")
}

func TestRequireUserStoresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var seen *models.User
	r.GET("/private", RequireUser(staticUser{user: &models.User{Username: "mchen"}}), func(c *gin.Context) {
		seen = UserFromContext(c)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "mchen", seen.Username)
}

func TestAttachUserNeverBlocks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/public", AttachUser(staticUser{}), func(c *gin.Context) {
		assert.Nil(t, UserFromContext(c))
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/public", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(observer, "/metrics"))
	r.POST("/activities/:name/signup", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, target := range []string{"/activities/Chess%20Club/signup", "/activities/Art/signup"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, target, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, []recordedRequest{
		{method: http.MethodPost, path: "/activities/:name/signup", status: http.StatusCreated},
		{method: http.MethodPost, path: "/activities/:name/signup", status: http.StatusCreated},
		{method: http.MethodGet, path: "unmatched", status: http.StatusNotFound},
	}, observer.seen)
}
