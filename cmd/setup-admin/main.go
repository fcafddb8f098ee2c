package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/auth"
	"github.com/dearher/bagstore/internal/infrastructure/store"
	"github.com/dearher/bagstore/internal/observability/logger"
	"github.com/dearher/bagstore/internal/readmodel"
)

var errEmailRequired = errors.New("--email is required")

type userUpserter interface {
	UpsertUser(ctx context.Context, u *readmodel.UserReadModel) error
}

func main() {
	_ = godotenv.Load()

	databaseURL := pflag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	email := pflag.String("email", "", "admin email")
	password := pflag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (min 8 characters)")
	name := pflag.String("name", "Admin", "display name")
	pflag.Parse()

	log, err := logger.New(logger.Config{Level: "info", Format: "console"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.ConnectPostgres(ctx, *databaseURL)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if err := store.Migrate(db, log); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	u, err := setupAdmin(ctx, store.NewPostgresUserStore(db), *email, *password, *name, time.Now().UTC())
	if err != nil {
		log.Fatal("admin setup failed", zap.Error(err))
	}
	log.Info("admin ready", zap.String("email", u.Email), zap.String("role", u.Role))
}

// setupAdmin creates the admin account or, when the email already exists,
// resets its password and promotes it.
func setupAdmin(ctx context.Context, users userUpserter, email, password, name string, now time.Time) (*readmodel.UserReadModel, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errEmailRequired
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &readmodel.UserReadModel{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		Role:         readmodel.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.UpsertUser(ctx, u); err != nil {
		return nil, fmt.Errorf("save admin: %w", err)
	}
	return u, nil
}
