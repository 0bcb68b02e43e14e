package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"sirius-system/config"
	"sirius-system/internal/database"
	"sirius-system/internal/gateway/middleware"
	"sirius-system/internal/services/erp/handler"
)

func main() {
	cfg := config.LoadConfig()

	redisClient := config.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	if err := database.MigrateERPDB(db); err != nil {
		log.Fatalf("Failed to migrate ERP database: %v", err)
	}

	erpHandler := handler.NewERPHandler(db, redisClient)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit("100-M"))

	api := r.Group("/api/v1", middleware.JWTAuth())
	{
		pdv := api.Group("/pdv")
		{
			pdv.GET("/next-number", erpHandler.NextOrderNumber)
			pdv.GET("/default-client", erpHandler.DefaultClient)
			pdv.GET("/products/search", erpHandler.SearchProducts)
			pdv.GET("/clients/search", erpHandler.SearchClients)
			pdv.GET("/payment-methods", erpHandler.ListPaymentMethods)
			pdv.POST("/orders/finalize", erpHandler.FinalizeOrder)
		}

		orders := api.Group("/orders")
		{
			orders.GET("", erpHandler.ListOrders)
			orders.GET("/:id", erpHandler.GetOrder)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	port := ":" + getPort("8080")
	log.Printf(" 🏢 ERP service listening on %s", port)
	if err := r.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getPort(fallback string) string {
	if p := os.Getenv("ERP_PORT"); p != "" {
		return p
	}
	return fallback
}
