package main

import (
	"context"
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-notes-api/config"
	"github.com/oksasatya/go-notes-api/internal/domain/entity"
	"github.com/oksasatya/go-notes-api/internal/domain/repository"
	pginfra "github.com/oksasatya/go-notes-api/internal/infrastructure/postgres"
	"github.com/oksasatya/go-notes-api/pkg/helpers"
)

// seed creates a demo account with a few notes. Running it twice reuses the account.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	users := pginfra.NewUserRepository(pool)
	notes := pginfra.NewNoteRepository(pool)

	const (
		email    = "demo@example.com"
		password = "password123"
	)

	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		hash, err := helpers.HashPassword(password)
		if err != nil {
			logger.Fatalf("failed to hash password: %v", err)
		}
		u = &entity.User{Username: "demoUser", Email: email, Password: hash}
		if err := users.Create(ctx, u); err != nil {
			logger.Fatalf("failed to seed user: %v", err)
		}
	case err != nil:
		logger.Fatalf("failed to look up user: %v", err)
	}
	helpers.LogInfo(logger, "seeded user", logrus.Fields{"id": u.ID, "email": email, "password": password})

	existing, err := notes.ListByUser(ctx, u.ID)
	if err != nil {
		logger.Fatalf("failed to list notes: %v", err)
	}
	if len(existing) > 0 {
		logger.WithField("count", len(existing)).Info("notes already present, skipping")
		return
	}

	samples := []entity.Note{
		{Title: "Welcome", Description: "Create, pin and search your notes."},
		{Title: "Groceries", Description: "milk, eggs, bread"},
		{Title: "Ideas", Description: "Try the search endpoint with a word from this note."},
	}
	for i := range samples {
		n := samples[i]
		n.UserID = u.ID
		if err := notes.Create(ctx, &n); err != nil {
			logger.Fatalf("failed to seed note: %v", err)
		}
		if i == 0 {
			if _, err := notes.SetPinned(ctx, u.ID, n.ID, true); err != nil {
				logger.Fatalf("failed to pin note: %v", err)
			}
		}
	}
	helpers.LogInfo(logger, "seeded notes", logrus.Fields{"count": len(samples)})
}
