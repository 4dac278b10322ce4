package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/config"
	"github.com/stemsi/pemetaan-keswa/internal/handler"
	"github.com/stemsi/pemetaan-keswa/internal/middleware"
	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/response"
	"github.com/stemsi/pemetaan-keswa/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	User      *handler.UserHandler
	Role      *handler.RoleHandler
	Template  *handler.TemplateHandler
	Survey    *handler.SurveyHandler
	Region    *handler.RegionHandler
	Facility  *handler.FacilityHandler
	Media     *handler.MediaHandler
	Dashboard *handler.DashboardHandler
	Monitor   *handler.MonitorHandler
	System    *handler.SystemHandler
	WS        *handler.WSHandler
}

func perm(p model.Permission) gin.HandlerFunc {
	return middleware.RequirePermission(string(p))
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log can tag every line with it.
	router.Use(response.RequestIDMiddleware())
	router.Use(response.AccessLogMiddleware(log))

	// Uploaded files are already compressed images or PDFs.
	brotliConfig := middleware.DefaultBrotliConfig
	brotliConfig.Skipper = middleware.SkipPathPrefixes("/uploads", "/ws/")
	router.Use(middleware.BrotliWithConfig(brotliConfig))

	// Serve uploaded media files statically with aggressive caching (1 year).
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	router.GET("/healthz", handlers.System.Health)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute)
	authed := []gin.HandlerFunc{
		middleware.RequireJWT(authService),
		middleware.CheckSingleDeviceSession(authService, log),
	}

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.GET("/me", append(authed, handlers.Auth.Me)...)
		auth.POST("/logout", append(authed, handlers.Auth.Logout)...)
	}

	// ─── 2. API Group (JWT + Single Device + RBAC) ─────────────────────
	api := router.Group("/api/v1")
	api.Use(authed...)
	api.Use(middleware.NoStore())
	{
		// Users
		api.GET("/users", perm(model.PermissionUsersRead), handlers.User.ListUsers)
		api.GET("/users/:id", perm(model.PermissionUsersRead), handlers.User.GetUser)
		api.POST("/users", perm(model.PermissionUsersWrite), handlers.User.CreateUser)
		api.PUT("/users/:id", perm(model.PermissionUsersWrite), handlers.User.UpdateUser)
		api.DELETE("/users/:id/session", perm(model.PermissionUsersWrite), handlers.User.ResetSession)

		// Roles
		api.GET("/roles", perm(model.PermissionRolesRead), handlers.Role.ListRoles)
		api.GET("/roles/permissions", perm(model.PermissionRolesRead), handlers.Role.GetPermissions)
		api.GET("/roles/:id", perm(model.PermissionRolesRead), handlers.Role.GetRole)
		api.POST("/roles", perm(model.PermissionRolesWrite), handlers.Role.CreateRole)
		api.PUT("/roles/:id", perm(model.PermissionRolesWrite), handlers.Role.UpdateRole)
		api.DELETE("/roles/:id", perm(model.PermissionRolesWrite), handlers.Role.DeleteRole)

		// Templates
		templates := api.Group("/templates")
		{
			templates.GET("", handlers.Template.ListTemplates)
			templates.GET("/:id", handlers.Template.GetTemplate)
			templates.POST("/:id/evaluate", handlers.Template.EvaluateTemplate)
			templates.POST("", perm(model.PermissionTemplatesWrite), handlers.Template.CreateTemplate)
			templates.PUT("/:id", perm(model.PermissionTemplatesWrite), handlers.Template.UpdateTemplate)
			templates.POST("/:id/versions", perm(model.PermissionTemplatesWrite), handlers.Template.NewVersion)
			templates.GET("/:id/lint", perm(model.PermissionTemplatesWrite), handlers.Template.LintTemplate)
			templates.POST("/:id/publish", perm(model.PermissionTemplatesPublish), handlers.Template.PublishTemplate)
			templates.POST("/:id/archive", perm(model.PermissionTemplatesPublish), handlers.Template.ArchiveTemplate)
			templates.GET("/:id/monitor", perm(model.PermissionMonitorRead), handlers.Monitor.MonitorTemplateSSE)
			templates.GET("/:id/monitor/snapshot", perm(model.PermissionMonitorRead), handlers.Monitor.GetSnapshot)
		}

		// Surveys
		surveys := api.Group("/surveys")
		{
			surveys.GET("", handlers.Survey.ListSurveys)
			surveys.GET("/:id", handlers.Survey.GetSurvey)
			surveys.GET("/:id/outline", handlers.Survey.GetSurveyOutline)
			surveys.POST("", perm(model.PermissionSurveysWrite), handlers.Survey.CreateSurvey)
			surveys.PUT("/:id", perm(model.PermissionSurveysWrite), handlers.Survey.SaveSurveyDraft)
			surveys.POST("/:id/finalize", perm(model.PermissionSurveysWrite), handlers.Survey.FinalizeSurvey)
		}

		// Region
		api.GET("/regions/districts", handlers.Region.GetRegion)
		api.PUT("/regions/districts", perm(model.PermissionRegionsWrite), handlers.Region.ReplaceDistricts)

		// Facilities
		facilities := api.Group("/facilities")
		{
			facilities.GET("", perm(model.PermissionFacilitiesRead), handlers.Facility.ListFacilities)
			facilities.GET("/:id", perm(model.PermissionFacilitiesRead), handlers.Facility.GetFacility)
			facilities.POST("", perm(model.PermissionFacilitiesWrite), handlers.Facility.CreateFacility)
			facilities.PUT("/:id", perm(model.PermissionFacilitiesWrite), handlers.Facility.UpdateFacility)
			facilities.DELETE("/:id", perm(model.PermissionFacilitiesWrite), handlers.Facility.DeleteFacility)
		}

		// Media upload (FILE answers), limited per user.
		uploadLimiter := middleware.NewKeyedRateLimiter(60, time.Minute, middleware.ByUser)
		api.POST("/media/upload",
			perm(model.PermissionMediaUpload),
			uploadLimiter.Middleware(),
			handlers.Media.UploadMedia,
		)

		// Dashboard is open to every signed-in user.
		api.GET("/dashboard", handlers.Dashboard.GetDashboardData)
		api.GET("/system/metrics",
			middleware.RequireAnyPermission(string(model.PermissionMonitorRead), string(model.PermissionUsersRead)),
			handlers.System.Metrics,
		)
	}

	// ─── 3. WebSocket Group (query token auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireWSAuth(authService),
		middleware.CheckSingleDeviceSession(authService, log),
		perm(model.PermissionSurveysWrite),
	)
	{
		ws.GET("/surveys/:id/stream", handlers.WS.SurveyWebSocketStream)
	}

	return router
}
