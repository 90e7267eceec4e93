package main

import (
	"context"
	"flag"
	"log"
	"os"

	"authgate/internal/config"
	"authgate/internal/db"
	"authgate/internal/model"
	"authgate/internal/repository"
	"authgate/internal/service"
)

// Bootstrap creates an administrator account without going through the
// HTTP API. Same semantics as POST /admin/setup: insert-if-absent by
// email, silently a no-op when the admin already exists.
func main() {
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("email and password are required (flags or ADMIN_EMAIL/ADMIN_PASSWORD)")
	}

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if err := gormDB.AutoMigrate(&model.Admin{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	adminRepo := repository.NewAdminRepository(gormDB)
	adminService := service.NewAdminService(adminRepo, nil, nil, nil)

	if err := adminService.Setup(context.Background(), *email, *password); err != nil {
		log.Fatalf("admin setup: %v", err)
	}

	log.Printf("admin credentials stored for %s", *email)
}
