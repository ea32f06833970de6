// migrate applies or rolls back the embedded SQL migrations and reports the schema version.
package main

import (
	"errors"
	"fmt"

	"github.com/alecthomas/kong"

	"mentorhub/backend/internal/config"
	"mentorhub/backend/internal/db/migrate"
)

var cli struct {
	EnvFile   string `help:"Path to an env file read before the environment." default:".env" type:"path"`
	Direction string `help:"Migration direction." default:"up" enum:"up,down"`
	Status    bool   `help:"Print the applied version instead of migrating."`
}

func main() {
	k := kong.Parse(&cli, kong.Description("Run MentorHub database migrations."))

	cfg, err := config.LoadFile(cli.EnvFile)
	k.FatalIfErrorf(err)
	if cfg.DatabaseURL == "" {
		k.Fatalf("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	if cli.Status {
		version, dirty, err := migrate.Status(cfg.DatabaseURL)
		if errors.Is(err, migrate.ErrNoVersion) {
			fmt.Println("no migrations applied")
			return
		}
		k.FatalIfErrorf(err)
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		return
	}

	k.FatalIfErrorf(migrate.Run(cfg.DatabaseURL, migrate.Direction(cli.Direction)))
}
