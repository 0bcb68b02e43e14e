package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"sirius-system/config"
	"sirius-system/internal/gateway/middleware"
	"sirius-system/internal/pdv/handler"
)

func main() {
	cfg := config.LoadConfig()

	pdvHandler := handler.NewPDVHandler(cfg.ERP.BaseURL)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit("300-M"))

	api := r.Group("/api/v1", middleware.JWTAuth())
	pdvHandler.RegisterRoutes(api)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	port := ":" + getPort("8081")
	log.Printf(" 💰 PDV terminal service listening on %s", port)
	if err := r.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getPort(fallback string) string {
	if p := os.Getenv("PDV_PORT"); p != "" {
		return p
	}
	return fallback
}
