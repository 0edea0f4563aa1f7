package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mozanhq/campaign-go/api"
	"github.com/mozanhq/campaign-go/email"
	"github.com/mozanhq/campaign-go/leads"
	"github.com/mozanhq/campaign-go/pkg/config"
	"github.com/mozanhq/campaign-go/store"
	"github.com/mozanhq/campaign-go/users"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found -- config defaults will be used")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	blobs, err := store.NewFileBlobStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open data directory: %v", err)
	}

	st, err := store.Open(blobs, store.Options{
		DefaultAdminPassword: cfg.AdminPassword,
	})
	if err != nil {
		log.Fatalf("Failed to open lead store: %v", err)
	}
	defer st.Close()

	app := &api.App{
		Store:  st,
		Leads:  leads.NewRepository(st),
		Users:  users.NewRepository(st),
		Config: cfg,
		Events: api.NewBroadcaster(),
	}

	if mailer, err := email.NewClientFromEnv(); err != nil {
		log.Printf("Lead notifications disabled: %v", err)
	} else {
		app.Email = mailer
		log.Println("Lead notifications enabled")
	}

	r := gin.New()
	r.Use(gin.Recovery(), api.FilteredLogger(), api.RequestID())
	r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			"Cache-Control", // for SSE
		},
		AllowCredentials: true,
		ExposeHeaders: []string{
			"Content-Type", "Content-Disposition", "Cache-Control", "X-Request-ID",
		},
	}))

	app.RegisterRoutes(r)

	log.Printf("Starting server on %s", cfg.BindAddress)
	if err := r.Run(cfg.BindAddress); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
