package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/server/handlers"
	"github.com/nicefood/prodtrack/internal/service/auth"
)

// Handlers groups the resource handlers served by the API.
type Handlers struct {
	Session   *handlers.SessionHandler
	Directory *handlers.DirectoryHandler
	Ledger    *handlers.LedgerHandler
	Period    *handlers.PeriodHandler
	Recipe    *handlers.RecipeHandler
	Report    *handlers.ReportHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, authn *auth.Authenticator, allowedOrigins []string, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))
	r.Use(cors.New(corsConfig(allowedOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.POST("/session", h.Session.Login)

	authed := api.Group("")
	authed.Use(basicAuthMiddleware(authn, logger))
	authed.GET("/me", h.Session.Me)
	authed.PUT("/me/current-period", h.Session.SetCurrentPeriod)
	authed.GET("/sections", h.Directory.ListSections)

	admin := authed.Group("")
	admin.Use(adminOnly(logger))
	admin.POST("/sections", h.Directory.CreateSection)
	admin.GET("/users", h.Directory.ListUsers)
	admin.POST("/users", h.Directory.CreateUser)
	admin.PUT("/users/:id", h.Directory.UpdateUser)
	admin.DELETE("/users/:id", h.Directory.DeleteUser)
	admin.POST("/periods", h.Period.CreatePeriod)
	admin.DELETE("/periods/:key", h.Period.DeletePeriod)
	admin.GET("/periods/jobs", h.Period.ListJobs)
	admin.POST("/periods/jobs/:id/resume", h.Period.ResumeJob)
	admin.POST("/periods/opening-copy", h.Period.CopyOpening)
	admin.POST("/recipes/parse", h.Recipe.ParseWorkbook)
	admin.POST("/recipes/parse-sheet", h.Recipe.ParseSheet)

	section := authed.Group("/sections/:section")
	section.Use(sectionGate(logger))
	section.GET("/materials/:kind", h.Ledger.ListMaterials)
	section.POST("/materials/:kind", h.Ledger.CreateMaterial)
	section.PUT("/materials/:kind/:id", h.Ledger.UpdateMaterial)
	section.DELETE("/materials/:kind/:id", h.Ledger.DeleteMaterial)

	section.GET("/products", h.Ledger.ListProducts)
	section.POST("/products", h.Ledger.CreateProduct)
	section.GET("/products/:id", h.Ledger.GetProduct)
	section.PUT("/products/:id", h.Ledger.UpdateProduct)
	section.DELETE("/products/:id", h.Ledger.DeleteProduct)
	section.POST("/products/:id/bom/:kind", h.Ledger.AddBOMItem)
	section.DELETE("/products/:id/bom/:kind/:materialId", h.Ledger.RemoveBOMItem)
	section.GET("/products/:id/recipe", h.Report.Recipe)

	section.GET("/info", h.Ledger.GetInfoTemplate)
	section.POST("/info", h.Ledger.AddInfoFields)
	section.DELETE("/info/:key", h.Ledger.RemoveInfoField)

	section.GET("/daily", h.Report.Daily)
	section.GET("/codes.xlsx", h.Report.Codes)

	sectionAdmin := section.Group("")
	sectionAdmin.Use(adminOnly(logger))
	sectionAdmin.POST("/products/:id/import", h.Recipe.ImportProduct)
	sectionAdmin.POST("/recipes/import", h.Recipe.ImportAll)

	logger.Info("router initialized")

	return r
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range allowedOrigins {
		if o == "*" {
			cfg.AllowOrigins = nil
			cfg.AllowOriginFunc = func(string) bool { return true }
			break
		}
	}
	if len(cfg.AllowOrigins) == 0 && cfg.AllowOriginFunc == nil {
		cfg.AllowOrigins = []string{"http://localhost:3000"}
	}
	return cfg
}
