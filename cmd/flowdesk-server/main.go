package main

import (
	"log"
	"os"

	"github.com/flowdesk/flowdesk/pkg/flowdesk/auth"
	"github.com/flowdesk/flowdesk/pkg/flowdesk/database"
	"github.com/flowdesk/flowdesk/pkg/flowdesk/models"
	"github.com/flowdesk/flowdesk/pkg/flowdesk/modules"
	"github.com/flowdesk/flowdesk/pkg/flowdesk/ratelimit"
	"github.com/flowdesk/flowdesk/pkg/flowdesk/sso"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

func main() {
	// Get database path from environment or use default
	dbPath := os.Getenv("FLOWDESK_DB_PATH")
	if dbPath == "" {
		dbPath = "flowdesk.db"
	}

	// Connect to database
	if err := database.Connect(dbPath); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := models.AutoMigrate(database.GetDB()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Create default organization and owner if the database is empty
	if err := ensureOwnerExists(); err != nil {
		log.Fatalf("Failed to ensure owner user exists: %v", err)
	}

	// Set up Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "flowdesk",
			})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(database.GetDB())
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Module registry admin routes (session + elevated role required)
		modulesHandler := modules.NewHandler(database.GetDB())
		adminGroup := api.Group("/admin")
		adminGroup.Use(auth.AuthMiddleware(), auth.RequireElevated())
		modulesHandler.RegisterRoutes(adminGroup)
	}

	// SSO routes live outside /api: modules call /sso/verify without a
	// platform session. Issuance and logout are limited per user; verification
	// shares one global bucket across all modules.
	ssoHandler := sso.NewHandler(database.GetDB(), sso.ConfigFromEnv())
	ssoHandler.RegisterRoutes(r.Group("/sso"),
		ratelimit.PerUser(1, 10),
		ratelimit.Global(20, 40),
	)

	// Housekeeper: sweep long-expired token rows on a schedule
	c := cron.New()
	_, err := c.AddFunc("@every 15m", func() {
		count, err := ssoHandler.Service().Cleanup()
		if err != nil {
			log.Printf("SSO token cleanup failed: %v", err)
		} else if count > 0 {
			log.Printf("SSO token cleanup removed %d rows", count)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule SSO token cleanup: %v", err)
	}
	c.Start()
	defer c.Stop()

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Flowdesk server on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// ensureOwnerExists creates a default organization and owner user if no
// user exists yet, so a fresh install can be logged into.
func ensureOwnerExists() error {
	db := database.GetDB()

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil // Users already exist
	}

	org := models.Organization{
		Name:     "Flowdesk",
		Slug:     "flowdesk",
		IsActive: true,
	}
	if err := db.Create(&org).Error; err != nil {
		return err
	}

	hashedPassword, err := auth.HashPassword("changeme")
	if err != nil {
		return err
	}

	owner := models.User{
		Email:          "owner@flowdesk.local",
		PasswordHash:   hashedPassword,
		FirstName:      "Default",
		LastName:       "Owner",
		Role:           models.RoleOwner,
		IsActive:       true,
		OrganizationID: org.ID,
	}
	if err := db.Create(&owner).Error; err != nil {
		return err
	}

	log.Printf("Created default owner user: owner@flowdesk.local (password: changeme)")
	return nil
}
