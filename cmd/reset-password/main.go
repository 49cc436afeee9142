package main

import (
	"context"
	"flag"

	"go.uber.org/zap"

	"go-pos-inventory/internal/config"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/pkg/database"
	"go-pos-inventory/pkg/logger"
)

func main() {
	email := flag.String("email", "admin@example.com", "account to reset")
	password := flag.String("password", "admin123", "new password")
	flag.Parse()

	log := logger.Must(logger.New(logger.Options{Mode: "development", Level: "info"}))
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	db, err := database.ConnectPostgres(database.Config{DSN: cfg.Database.DSN}, log)
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}

	ctx := context.Background()
	users := repository.NewUserRepo(db)
	user, err := users.FindByEmail(ctx, *email)
	if err != nil {
		log.Fatal("user not found", zap.String("email", *email), zap.Error(err))
	}

	if err := user.SetPassword(*password); err != nil {
		log.Fatal("hash password", zap.Error(err))
	}
	if err := users.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		log.Fatal("update password", zap.Error(err))
	}
	// sign out every device still holding the old password's session
	if err := users.StartSession(ctx, user.ID, ""); err != nil {
		log.Fatal("reset session", zap.Error(err))
	}

	log.Info("password reset", zap.String("email", *email))
}
