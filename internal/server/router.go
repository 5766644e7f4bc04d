// Package server wires services, handlers and middleware into the HTTP router.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "ledgerbook/internal/docs" // Import swagger docs
	"ledgerbook/internal/handlers"
	"ledgerbook/internal/middleware"
	"ledgerbook/internal/notify"
	"ledgerbook/internal/services"
)

// Services bundles the business services the router exposes.
type Services struct {
	Users    services.UserServicer
	Tasks    services.TaskServicer
	Books    services.ReceiptBookServicer
	Receipts services.ReceiptServicer
	Expenses services.ExpenseServicer
	Reports  services.ReportServicer
	Audit    services.AuditServicer
}

// NewServices builds every service on top of one database handle.
func NewServices(db *gorm.DB, policy services.LoginPolicy, notifier notify.ReportNotifier) *Services {
	aggregator := services.NewAggregatorService(db)
	return &Services{
		Users:    services.NewUserService(db, policy),
		Tasks:    services.NewTaskService(db),
		Books:    services.NewReceiptBookService(db),
		Receipts: services.NewReceiptService(db),
		Expenses: services.NewExpenseService(db),
		Reports:  services.NewReportService(db, aggregator, notifier),
		Audit:    services.NewAuditService(db),
	}
}

// Options holds the router settings taken from configuration.
type Options struct {
	PipelineAPIKey    string
	CORSAllowedOrigin string
	RequestTimeout    time.Duration
}

// NewRouter returns the gin engine serving /api/v1.
func NewRouter(svc *Services, opts Options) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Users, svc.Audit)
	userHandler := handlers.NewUserHandler(svc.Users, svc.Audit)
	taskHandler := handlers.NewTaskHandler(svc.Tasks, svc.Audit)
	bookHandler := handlers.NewReceiptBookHandler(svc.Books, svc.Audit)
	receiptHandler := handlers.NewReceiptHandler(svc.Receipts, svc.Audit)
	expenseHandler := handlers.NewExpenseHandler(svc.Expenses, svc.Audit)
	reportHandler := handlers.NewReportHandler(svc.Reports, svc.Audit)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(opts.CORSAllowedOrigin))
	router.Use(middleware.RequestTimeout(opts.RequestTimeout))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	v1.GET("/reports/published", reportHandler.GetPublished)

	// Scheduled publication
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(opts.PipelineAPIKey))
	pipeline.POST("/reports/publish", reportHandler.PipelinePublish)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	users := protected.Group("/users")
	users.POST("", userHandler.CreateUser)
	users.GET("", userHandler.ListUsers)
	users.GET("/:id", userHandler.GetUser)
	users.PUT("/:id/active", userHandler.SetUserActive)
	users.DELETE("/:id", userHandler.DeleteUser)

	tasks := protected.Group("/tasks")
	tasks.POST("", taskHandler.CreateTask)
	tasks.GET("", taskHandler.ListTasks)
	tasks.GET("/:id", taskHandler.GetTask)
	tasks.PUT("/:id", taskHandler.UpdateTask)
	tasks.DELETE("/:id", taskHandler.DeleteTask)

	books := protected.Group("/receipt-books")
	books.POST("", bookHandler.CreateBook)
	books.GET("", bookHandler.ListBooks)
	books.GET("/:id", bookHandler.GetBook)
	books.POST("/:id/assign", bookHandler.AssignBook)
	books.POST("/:id/close", bookHandler.CloseBook)
	books.PUT("/:id/range", bookHandler.UpdateBookRange)

	receipts := protected.Group("/receipts")
	receipts.GET("/next-number", bookHandler.NextNumber)
	receipts.POST("", receiptHandler.IssueReceipt)
	receipts.GET("", receiptHandler.ListReceipts)
	receipts.GET("/:id", receiptHandler.GetReceipt)
	receipts.PUT("/:id", receiptHandler.UpdateReceipt)

	expenseTypes := protected.Group("/expense-types")
	expenseTypes.POST("", expenseHandler.CreateExpenseType)
	expenseTypes.GET("", expenseHandler.ListExpenseTypes)
	expenseTypes.PUT("/:id", expenseHandler.UpdateExpenseType)
	expenseTypes.DELETE("/:id", expenseHandler.DeleteExpenseType)

	expenses := protected.Group("/expenses")
	expenses.POST("", expenseHandler.RecordExpense)
	expenses.GET("", expenseHandler.ListExpenses)
	expenses.GET("/:id", expenseHandler.GetExpense)

	reports := protected.Group("/reports")
	reports.GET("/financials", reportHandler.Financials)
	reports.POST("/publish", reportHandler.Publish)
	reports.GET("/history", reportHandler.History)

	return router
}
