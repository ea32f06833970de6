// seed creates a SysAdmin account for local development. Running it again only re-grants the role.
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecthomas/kong"

	"mentorhub/backend/internal/config"
	"mentorhub/backend/internal/db"
	"mentorhub/backend/internal/identity/service"
	"mentorhub/backend/internal/logger"
	"mentorhub/backend/internal/security"
	sessionrepo "mentorhub/backend/internal/session/repository"
	userdomain "mentorhub/backend/internal/user/domain"
	userrepo "mentorhub/backend/internal/user/repository"
)

var cli struct {
	EnvFile  string `help:"Path to an env file read before the environment." default:".env" type:"path"`
	Username string `help:"Admin username." default:"admin" env:"SEED_ADMIN_USERNAME"`
	Email    string `help:"Admin email." default:"admin@example.com" env:"SEED_ADMIN_EMAIL"`
	Password string `help:"Admin password." required:"" env:"SEED_ADMIN_PASSWORD"`
}

func main() {
	k := kong.Parse(&cli, kong.Description("Seed a MentorHub SysAdmin account."))
	k.FatalIfErrorf(seed(context.Background()))
}

func seed(ctx context.Context) error {
	cfg, err := config.LoadFile(cli.EnvFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Store != config.StorePostgres {
		return errors.New("seed requires STORE=postgres")
	}
	log := logger.Setup(cfg.Debug)

	pool, err := db.NewPool(ctx, &db.PoolConfig{ConnString: cfg.DatabaseURL, MaxConns: 2, MinConns: 1}, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	tokens, err := security.NewTokenProviderFromSettings(security.SigningSettings{
		Secret:     cfg.JWTSecret,
		PrivateKey: cfg.JWTPrivateKey,
		PublicKey:  cfg.JWTPublicKey,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
	})
	if err != nil {
		return fmt.Errorf("token provider: %w", err)
	}
	users := userrepo.NewPostgresRepository(pool)
	auth := service.NewAuthService(
		users,
		sessionrepo.NewPostgresRepository(pool),
		security.NewHasher(cfg.BcryptCost),
		tokens,
		service.Config{DefaultRole: cfg.DefaultRole},
		service.WithLogger(log),
	)

	var userID string
	profile, err := auth.Register(ctx, service.RegisterInput{
		Name:     "System",
		Surname:  "Administrator",
		Username: cli.Username,
		Email:    cli.Email,
		Password: cli.Password,
	})
	switch {
	case err == nil:
		userID = profile.ID
		log.Info().Str("username", cli.Username).Msg("admin user created")
	case errors.Is(err, service.ErrUsernameTaken):
		existing, err := users.GetByUsername(ctx, cli.Username)
		if err != nil {
			return fmt.Errorf("look up %q: %w", cli.Username, err)
		}
		if existing == nil {
			return fmt.Errorf("user %q vanished during seeding", cli.Username)
		}
		userID = existing.ID
		log.Info().Str("username", cli.Username).Msg("admin user already exists")
	default:
		return fmt.Errorf("register admin: %w", err)
	}

	if err := auth.AssignRole(ctx, userID, userdomain.RoleSysAdmin); err != nil {
		return fmt.Errorf("grant %s: %w", userdomain.RoleSysAdmin, err)
	}
	log.Info().Str("user_id", userID).Msg("seed completed")
	return nil
}
