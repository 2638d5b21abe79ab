package handlers

import (
	"net/http"

	"wiki-engine/config"
	"wiki-engine/helper"
	"wiki-engine/markup"
	"wiki-engine/middleware"
	"wiki-engine/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const serviceName = "wiki-engine"

type Services struct {
	Auth      services.AuthService
	Articles  services.ArticleService
	Revisions services.RevisionService
	Edits     services.EditService
	Views     services.ViewService
}

type RouterOptions struct {
	Wiki   config.WikiConfig
	Logger *zap.Logger
	// Gatherer backs /metrics. Nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
}

// NewRouter wires every HTTP route. Article routes are mounted under
// Wiki.BasePath so generated wiki links resolve to them.
func NewRouter(svc Services, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := helper.NewHTTPHelper()
	linker := markup.NewLinker(opts.Wiki.BasePath)
	auth := middleware.NewAuth(svc.Auth, h)

	authHandler := NewAuthHandler(svc.Auth, h)
	articleHandler := NewArticleHandler(svc.Articles, svc.Revisions, svc.Views, linker, opts.Wiki, h)
	editHandler := NewEditHandler(svc.Edits, svc.Views, linker, h)

	router := gin.New()
	// Titles may contain an escaped slash.
	router.UseRawPath = true
	router.UnescapePathValues = true

	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Recovery(logger))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	{
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
		}

		v1.GET("/profile", auth.Required(), authHandler.GetProfile)
		v1.GET("/changes", auth.Optional(), articleHandler.GetChanges)
		v1.POST("/preview", editHandler.Preview)
	}

	articles := router.Group(linker.BasePath)
	articles.Use(auth.Optional())
	{
		articles.GET("", articleHandler.GetArticles)
		articles.GET("/:title", articleHandler.GetArticle)
		articles.GET("/:title/history", articleHandler.GetHistory)
		articles.GET("/:title/history/:number", articleHandler.GetArticleVersion)
		articles.POST("/:title/history/:number/removed", articleHandler.SetVersionRemoved)
		articles.GET("/:title/diff", articleHandler.GetDiff)
		articles.GET("/:title/changes", articleHandler.GetChanges)
		articles.POST("/:title/status", articleHandler.UpdateStatus)
		articles.POST("/:title/rename", articleHandler.Rename)

		articles.GET("/:title/edit", editHandler.BeginEdit)
		articles.POST("/:title/edit", editHandler.CommitEdit)
		articles.POST("/:title/revert", editHandler.Revert)
		articles.DELETE("/:title/lease", middleware.RequireRole(h, opts.Wiki.ModeratorRoles...), editHandler.BreakLease)
	}

	return router
}
