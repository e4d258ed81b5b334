package handler

import "github.com/gin-gonic/gin"

// Routes bundles the portal handlers for registration.
type Routes struct {
	Activities    *ActivityHandler
	Announcements *AnnouncementHandler
	Auth          *AuthHandler
	Metrics       *MetricsHandler
}

// Guards resolve the signed-in user. AttachUser runs on every API route,
// RequireUser only on announcement management.
type Guards struct {
	AttachUser  gin.HandlerFunc
	RequireUser gin.HandlerFunc
}

// Register mounts the portal API under prefix.
func (r Routes) Register(engine *gin.Engine, prefix string, guards Guards) {
	engine.GET("/health", r.Metrics.Health)
	engine.GET("/metrics", r.Metrics.Prometheus)

	api := engine.Group(prefix, guards.AttachUser)

	activities := api.Group("/activities")
	activities.GET("", r.Activities.List)
	activities.PUT("/filters", r.Activities.UpdateFilters)
	activities.POST("/refresh", r.Activities.Refresh)
	activities.GET("/export", r.Activities.Export)
	activities.POST("/:name/signup", r.Activities.Signup)
	activities.POST("/:name/unregister", r.Activities.Unregister)

	announcements := api.Group("/announcements")
	announcements.GET("/banner", r.Announcements.Banner)
	announcements.POST("/:id/dismiss", r.Announcements.Dismiss)

	managed := announcements.Group("", guards.RequireUser)
	managed.GET("", r.Announcements.List)
	managed.POST("", r.Announcements.Create)
	managed.PUT("/:id", r.Announcements.Update)
	managed.DELETE("/:id", r.Announcements.Delete)

	auth := api.Group("/auth")
	auth.POST("/login", r.Auth.Login)
	auth.POST("/logout", r.Auth.Logout)
	auth.GET("/me", r.Auth.Me)
}
