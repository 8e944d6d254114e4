package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"debatehub/config"
	"debatehub/db"
	"debatehub/internal/notify"
	"debatehub/routes"
	"debatehub/services"
	"debatehub/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig("./config/config.prod.yml")
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	store, err := db.Connect(cfg.Database.URI)
	if err != nil {
		log.Fatalf("Error connecting to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Disconnect(ctx); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	var notifier services.Notifier
	if cfg.Redis.Addr != "" {
		redisNotifier, err := notify.NewRedisNotifier(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Error connecting to Redis: %v", err)
		}
		notifier = redisNotifier
	} else {
		log.Println("Redis not configured, notifications will be logged only")
		notifier = notify.LogNotifier{}
	}

	ensemble, err := services.NewGeminiEnsemble(context.Background(), cfg.Gemini.ApiKey, cfg.JudgeTimeout())
	if err != nil {
		log.Fatalf("Error creating Gemini client: %v", err)
	}

	services.Init(services.Options{
		Store:                store,
		Verdicts:             ensemble,
		Statements:           ensemble,
		Notifier:             notifier,
		PanelSize:            cfg.Debate.PanelSize,
		WaitingTTL:           cfg.WaitingTTL(),
		AiMinDelay:           cfg.AiMinDelay(),
		DefaultTotalRounds:   cfg.Debate.DefaultTotalRounds,
		DefaultRoundDuration: cfg.RoundDuration(),
	})

	seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := utils.SeedJudges(seedCtx, store); err != nil {
		log.Fatalf("Error seeding judges: %v", err)
	}
	if err := utils.SeedAIUsers(seedCtx, store); err != nil {
		log.Fatalf("Error seeding AI users: %v", err)
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Cron-Secret"},
		AllowCredentials: true,
	}))

	routes.SetupDebateRoutes(router)
	routes.SetupCronRoutes(router, cfg.Cron.Secret)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}
