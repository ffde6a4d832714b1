// Command parish-init-user creates an account directly in the database and
// optionally grants it the full permission catalogue. Meant for bootstrapping
// the first administrator of a fresh deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parishkit/parish-idm/pkg/account"
	"github.com/parishkit/parish-idm/pkg/audit"
	"github.com/parishkit/parish-idm/pkg/config"
	"github.com/parishkit/parish-idm/pkg/permission"
)

func main() {
	email := flag.String("email", "", "Email of the new user (required)")
	password := flag.String("password", "", "Password for the new user (required)")
	displayName := flag.String("display-name", "", "Display name of the new user")
	grantAll := flag.Bool("grant-all", false, "Grant every leaf permission to the new user")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(-1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.ToDatabaseURL())
	if err != nil {
		slog.Error("Failed creating dbpool", "db", cfg.Database.Database, "host", cfg.Database.Host)
		os.Exit(-1)
	}
	defer pool.Close()

	userRepo := account.NewPostgresUserRepository(pool)
	permissionRepo := permission.NewPostgresRepository(pool)
	accountService := account.NewAccountService(userRepo, audit.NoopRecorder{})

	user, err := accountService.Register(ctx, account.CreateUserParams{
		Email:       *email,
		DisplayName: *displayName,
		IsActive:    true,
	})
	if err != nil {
		slog.Error("Failed to create user", "email", *email, "err", err)
		os.Exit(-1)
	}

	hasher := account.NewPbkdf2Hasher()
	hash, err := hasher.Hash(*password, user.Salt)
	if err != nil {
		slog.Error("Failed to hash password", "err", err)
		os.Exit(-1)
	}
	if err := userRepo.ReplaceCredential(ctx, account.CredentialParams{
		UserID:       user.ID,
		PasswordHash: hash,
		Salt:         user.Salt,
	}); err != nil {
		slog.Error("Failed to set credential", "err", err)
		os.Exit(-1)
	}

	if *grantAll {
		for _, p := range permission.All() {
			if permission.IsGroup(p.ID) {
				continue
			}
			if err := permissionRepo.Assign(ctx, permission.Assignment{
				UserID:       user.ID,
				PermissionID: p.ID,
				AssignedBy:   user.ID,
			}); err != nil {
				slog.Error("Failed to assign permission", "permission", p.Name, "err", err)
				os.Exit(-1)
			}
		}
		slog.Info("Granted full permission catalogue", "user_uuid", user.UUID)
	}

	slog.Info("User created", "user_uuid", user.UUID, "email", *email)
}
