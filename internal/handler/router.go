package handler

import (
	"log/slog"
	"net/http"

	"student-registry/internal/apperr"
	"student-registry/internal/config"
	"student-registry/internal/metrics"
	"student-registry/internal/middleware"
	"student-registry/internal/service"
	"student-registry/pkg/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies groups everything the HTTP layer needs
type Dependencies struct {
	DB       *gorm.DB
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	CORS     config.CORSConfig
	Creds    *service.CredentialService
	Users    *service.UserService
	Students *service.StudentService
	Chat     *service.ChatService
	Audit    *service.AuditService
}

// NewRouter builds the gin engine with every route of the registry
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(deps.Logger),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(deps.CORS),
	)

	authHandler := NewAuthHandler(deps.Users)
	studentHandler := NewStudentHandler(deps.Students)
	userHandler := NewUserHandler(deps.Users)
	chatHandler := NewChatHandler(deps.Chat)
	auditHandler := NewAuditHandler(deps.Audit)

	r.GET("/", func(c *gin.Context) {
		utils.MessageResponse(c, "Welcome to the student registry API")
	})
	r.GET("/health", healthCheck(deps.DB))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// Public routes
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)

	authed := r.Group("/")
	authed.Use(middleware.AuthMiddleware(deps.Creds))
	{
		authed.GET("/me", authHandler.Me)
		authed.POST("/logout", authHandler.Logout)

		students := authed.Group("/students")
		{
			students.GET("", middleware.RequirePermission(service.OpReadStudent), studentHandler.List)
			students.GET("/:id", middleware.RequirePermission(service.OpReadStudent), studentHandler.Get)
			students.POST("", middleware.RequirePermission(service.OpWriteStudent), studentHandler.Create)
			students.PUT("/:id", middleware.RequirePermission(service.OpWriteStudent), studentHandler.Update)
			students.DELETE("/:id", middleware.RequirePermission(service.OpWriteStudent), studentHandler.Delete)
		}

		// Owner-only routes
		users := authed.Group("/users")
		users.Use(middleware.RequirePermission(service.OpManageUsers))
		{
			users.GET("", userHandler.List)
			users.DELETE("/:username", userHandler.Delete)
			users.POST("/:username/suspend", userHandler.Suspend)
			users.POST("/:username/unsuspend", userHandler.Unsuspend)
			users.POST("/:username/role", userHandler.ChangeRole)
		}
		authed.GET("/audit", middleware.RequirePermission(service.OpManageUsers), auditHandler.List)

		authed.GET("/chat", chatHandler.Recent)
		authed.POST("/chat", middleware.RequirePermission(service.OpChatPost), chatHandler.Post)
	}

	r.NoRoute(func(c *gin.Context) {
		utils.ErrorResponse(c, http.StatusNotFound, apperr.Kind(apperr.ErrNotFound), "Route not found")
	})

	return r
}

func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			_ = c.Error(err)
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"success": err == nil,
			"data": gin.H{
				"status":  status,
				"service": "student-registry",
			},
		})
	}
}
