package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gastro-system/config"
	"gastro-system/internal/database"
	"gastro-system/internal/gateway/handlers"
	"gastro-system/internal/gateway/middleware"
	cataloghandler "gastro-system/internal/services/catalog/handler"
	preptaskhandler "gastro-system/internal/services/preptask/handler"
	purchasehandler "gastro-system/internal/services/purchase/handler"
	recipehandler "gastro-system/internal/services/recipe/handler"
	stockhandler "gastro-system/internal/services/stock/handler"
	userhandler "gastro-system/internal/services/user/handler"
	"gastro-system/internal/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetJWTSecret(cfg.Auth.JWTSecret)

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := database.SeedRoles(db); err != nil {
		log.Fatalf("Failed to seed roles: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)

	stockSvc := stockhandler.NewStockHandler(db, redisClient)
	recipeSvc := recipehandler.NewRecipeHandler(db, redisClient)
	taskSvc := preptaskhandler.NewPrepTaskHandler(db, stockSvc)
	purchaseSvc := purchasehandler.NewPurchaseHandler(db, stockSvc)
	catalogSvc := cataloghandler.NewCatalogHandler(db, redisClient)
	userSvc := userhandler.NewUserHandler(db, cfg.Auth.TokenTTL)

	stockHandler := handlers.NewStockHTTPHandler(stockSvc)
	recipeHandler := handlers.NewRecipeHTTPHandler(recipeSvc)
	taskHandler := handlers.NewPrepTaskHTTPHandler(taskSvc)
	purchaseHandler := handlers.NewPurchaseHTTPHandler(purchaseSvc)
	catalogHandler := handlers.NewCatalogHTTPHandler(catalogSvc)
	userHandler := handlers.NewUserHTTPHandler(userSvc)

	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(middleware.Metrics())
	r.Use(middleware.RateLimit("300-M"))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/register", userHandler.Register)
			auth.POST("/login", userHandler.Login)
		}
	}

	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(func(role string) int32 {
		return userSvc.AccessLevelFor(context.Background(), role)
	}))
	manager := middleware.RequireAccessLevel(2)
	{
		users := protected.Group("/users")
		{
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
		}

		ingredients := protected.Group("/ingredients")
		{
			ingredients.GET("", catalogHandler.ListIngredients)
			ingredients.GET("/stock", stockHandler.AggregateByIngredient)
			ingredients.GET("/stock/low", stockHandler.ListLowStock)
			ingredients.GET("/:id", catalogHandler.GetIngredient)
			ingredients.POST("", manager, catalogHandler.CreateIngredient)
			ingredients.PUT("/:id", manager, catalogHandler.UpdateIngredient)
			ingredients.DELETE("/:id", manager, catalogHandler.DeleteIngredient)
		}

		locations := protected.Group("/locations")
		{
			locations.GET("", catalogHandler.ListLocations)
			locations.GET("/:id", catalogHandler.GetLocation)
			locations.POST("", manager, catalogHandler.CreateLocation)
		}

		suppliers := protected.Group("/suppliers")
		{
			suppliers.GET("", catalogHandler.ListSuppliers)
			suppliers.GET("/:id", catalogHandler.GetSupplier)
			suppliers.POST("", manager, catalogHandler.CreateSupplier)
		}

		holdings := protected.Group("/stock-holdings")
		{
			holdings.GET("", stockHandler.ListHoldings)
			holdings.POST("", stockHandler.AddHolding)
			holdings.PUT("/:id/quantity", stockHandler.SetHoldingQuantity)
			holdings.POST("/:id/adjust", stockHandler.AdjustHoldingQuantity)
			holdings.DELETE("/:id", manager, stockHandler.DeleteHolding)
		}
		protected.GET("/stock-movements", stockHandler.ListMovements)

		recipes := protected.Group("/prep-recipes")
		{
			recipes.GET("", recipeHandler.ListRecipes)
			recipes.GET("/:id", recipeHandler.GetRecipe)
			recipes.GET("/:id/required-inputs", recipeHandler.RequiredInputs)
			recipes.POST("", manager, recipeHandler.CreateRecipe)
			recipes.PUT("/:id", manager, recipeHandler.UpdateRecipe)
			recipes.DELETE("/:id", manager, recipeHandler.DeleteRecipe)
		}

		tasks := protected.Group("/prep-tasks")
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.POST("", manager, taskHandler.CreateTask)
			tasks.PATCH("/:id", taskHandler.PatchTask)
		}

		orders := protected.Group("/purchase-orders")
		{
			orders.GET("", purchaseHandler.ListOrders)
			orders.GET("/:id", purchaseHandler.GetOrder)
			orders.POST("", manager, purchaseHandler.CreateOrder)
			orders.POST("/:id/submit", manager, purchaseHandler.Submit)
			orders.POST("/:id/approve", manager, purchaseHandler.Approve)
			orders.POST("/:id/receive", purchaseHandler.Receive)
			orders.POST("/:id/cancel", manager, purchaseHandler.Cancel)
		}
	}

	addr := ":" + cfg.Server.Port
	log.Printf("Starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
