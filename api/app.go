// Package api provides the HTTP handlers and middleware for the campaign
// landing page and its admin panel.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mozanhq/campaign-go/email"
	"github.com/mozanhq/campaign-go/leads"
	"github.com/mozanhq/campaign-go/pkg/config"
	"github.com/mozanhq/campaign-go/store"
	"github.com/mozanhq/campaign-go/users"
)

// App wires the HTTP layer to the repositories. Everything is injected
// explicitly; there is no package-level state.
type App struct {
	Store  *store.Store
	Leads  *leads.Repository
	Users  *users.Repository
	Config *config.Config
	Events *Broadcaster
	// Email is nil when notifications are disabled.
	Email *email.Client
}

// RegisterRoutes attaches all endpoints. Registration, the duplicate
// pre-check, and login are public; everything else sits behind the admin
// JWT middleware.
func (a *App) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/v1/leads", a.RegisterLeadHandler)
	r.POST("/api/v1/leads/check", a.CheckDuplicateHandler)
	r.POST("/api/v1/auth/login", a.LoginHandler)
	r.POST("/api/v1/auth/logout", a.LogoutHandler)
	r.GET("/api/v1/db/status", a.DBStatusHandler)

	admin := r.Group("/api/v1", AdminRequired(a.Config.JWTSecret))
	{
		admin.GET("/leads", a.GetLeadsHandler)
		admin.PUT("/leads/:id", a.UpdateLeadHandler)
		admin.PUT("/leads/:id/tracking", a.UpdateLeadTrackingHandler)
		admin.DELETE("/leads", a.ClearLeadsHandler)
		admin.GET("/leads/export.csv", a.ExportCSVHandler)

		admin.GET("/db/snapshot", a.ExportSnapshotHandler)
		admin.POST("/db/reset", a.ResetHandler)

		admin.GET("/dashboard/stats", a.DashboardStatsHandler)
		admin.GET("/dashboard/events", a.EventsHandler)

		admin.GET("/users", a.GetUsersHandler)
		admin.POST("/users", a.AddUserHandler)
		admin.DELETE("/users/:id", a.DeleteUserHandler)
		admin.PUT("/users/:id/password", a.UpdateUserPasswordHandler)
	}
}
