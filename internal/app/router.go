package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/snackfleet-backend/internal/data/aggregates"
	"github.com/yungbote/snackfleet-backend/internal/handlers"
)

func wireRouter(machineArena, snackArena *aggregates.Arena, reposet Repos) *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Operator"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	machineHandler := handlers.NewMachineHandler(machineArena)
	snackHandler := handlers.NewSnackHandler(snackArena)
	queryHandler := handlers.NewQueryHandler(reposet.MachineViews, reposet.SnackViews, reposet.SnackStats, reposet.Purchases)
	healthcheckHandler := handlers.NewHealthcheckHandler()

	router.GET("/healthz", healthcheckHandler.Healthz)

	machines := router.Group("/machines")
	{
		machines.POST("", machineHandler.Initialize)
		machines.POST("/:id/remove", machineHandler.Remove)
		machines.POST("/:id/load-money", machineHandler.LoadMoney)
		machines.POST("/:id/unload-money", machineHandler.UnloadMoney)
		machines.POST("/:id/insert-money", machineHandler.InsertMoney)
		machines.POST("/:id/return-money", machineHandler.ReturnMoney)
		machines.POST("/:id/load-snacks", machineHandler.LoadSnacks)
		machines.POST("/:id/unload-snacks", machineHandler.UnloadSnacks)
		machines.POST("/:id/buy", machineHandler.BuySnack)
		machines.GET("", queryHandler.ListMachines)
		machines.GET("/:id", queryHandler.GetMachine)
		machines.GET("/:id/purchases", queryHandler.ListMachinePurchases)
	}

	snacks := router.Group("/snacks")
	{
		snacks.POST("", snackHandler.Initialize)
		snacks.PUT("/:id", snackHandler.Update)
		snacks.DELETE("/:id", snackHandler.Delete)
		snacks.GET("", queryHandler.ListSnacks)
		snacks.GET("/:id", queryHandler.GetSnack)
	}

	router.GET("/stats/snacks", queryHandler.ListSnackStats)

	return router
}
