package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"stock-simulator/config"
	"stock-simulator/handlers"
	"stock-simulator/ledger"
	"stock-simulator/middleware"
	"stock-simulator/models"
	"stock-simulator/portfolio"
	"stock-simulator/quotes"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	// Initialize PostgreSQL and Redis connections.
	config.InitDB()
	config.InitRedis()

	// Get underlying SQL DB and close it properly
	sqlDB, err := config.DB.DB()
	if err != nil {
		log.Fatal("Failed to get database instance: ", err)
	}
	defer sqlDB.Close()

	// Auto-migrate models.
	if err := config.DB.AutoMigrate(&models.User{}, &models.Transaction{}); err != nil {
		log.Fatal("Failed to migrate models:", err)
	}

	provider := quotes.NewAlphaVantage(os.Getenv("ALPHA_VANTAGE_API_KEY"), config.Rdb)
	store := ledger.New(config.DB)
	engine := portfolio.New(store, provider)

	router := gin.Default()

	// Public routes
	router.POST("/signup", handlers.Signup)
	router.POST("/login", handlers.Login)

	// Protected routes
	auth := router.Group("/")
	auth.Use(middleware.JWTAuth())
	{
		auth.POST("/logout", handlers.Logout)
		auth.POST("/change-password", handlers.ChangePassword)
		auth.GET("/portfolio", handlers.GetPortfolio(engine))
		auth.GET("/quote/:symbol", handlers.GetQuote(engine))
		auth.POST("/buy", handlers.Buy(engine))
		auth.POST("/sell", handlers.Sell(engine))
		auth.GET("/history", handlers.History(engine))
		auth.POST("/deposit", handlers.Deposit(engine))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	router.Run(":" + port)
}
