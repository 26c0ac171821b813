package api

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/ajharbinger/pacman-arcade/internal/auth"
	"github.com/ajharbinger/pacman-arcade/internal/services"
	"github.com/ajharbinger/pacman-arcade/pkg/config"
)

//go:embed templates/*.html
var templateFS embed.FS

// LoadTemplates parses the embedded page templates
func LoadTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, svc *services.Services, cfg *config.Config) error {
	tmpl, err := LoadTemplates()
	if err != nil {
		return err
	}
	r.SetHTMLTemplate(tmpl)

	jwtService := auth.NewJWTService(cfg.JWTSecret)

	authHandler := NewAuthHandler(svc.Auth)
	scoreHandler := NewScoreHandler(svc.Score, cfg.LeaderboardSize)
	healthHandler := NewHealthHandler(svc.Health)

	r.GET("/health", healthHandler.GetHealth)
	r.GET("/", IndexPage)

	pages := r.Group("/")
	pages.Use(auth.PageMiddleware(jwtService, "/"))
	{
		pages.GET("/profile", scoreHandler.ProfilePage)
	}

	// Public routes
	public := r.Group("/api/v1")
	{
		public.POST("/auth/login", authHandler.Login)
		public.POST("/auth/register", authHandler.Register)
		public.POST("/auth/logout", authHandler.Logout)
	}

	// Protected routes
	protected := r.Group("/api/v1")
	protected.Use(auth.JWTMiddleware(jwtService))
	protected.Use(auth.CSRFMiddleware())
	{
		protected.GET("/highscore", scoreHandler.GetHighScore)
		protected.POST("/highscore", scoreHandler.SubmitScore)
		protected.GET("/leaderboard", scoreHandler.GetLeaderboard)
		protected.GET("/profile", scoreHandler.GetProfile)
	}

	return nil
}
