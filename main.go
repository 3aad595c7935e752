package main

import (
	"log"
	"net/http"
	"strings"

	"tcg-arbitrage/internal/api"
	"tcg-arbitrage/internal/config"
	"tcg-arbitrage/internal/database"
	"tcg-arbitrage/internal/services/notify"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	mailer := notify.NewMailer(cfg.MailRelayURL, cfg.MailRelayToken, cfg.AppURL)
	if !mailer.Enabled() {
		log.Println("Mail relay not configured, alert emails disabled")
	}

	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Serve static files from the build directory
	r.Static("/static", "./web/build/static")
	r.StaticFile("/favicon.ico", "./web/build/favicon.ico")
	r.GET("/", func(c *gin.Context) {
		c.File("./web/build/index.html")
	})
	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	// SPA fallback for client-side routing
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || strings.HasPrefix(c.Request.URL.Path, "/static/") {
			c.Status(http.StatusNotFound)
			return
		}
		c.File("./web/build/index.html")
	})

	// API routes
	apiGroup := r.Group("/api/v1")
	api.SetupRoutes(apiGroup, db, mailer)

	log.Printf("Server starting on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
