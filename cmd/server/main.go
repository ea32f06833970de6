// server runs the MentorHub auth API: HTTP on HTTP_ADDR and the gRPC health service on HEALTH_GRPC_ADDR.
package main

import (
	"context"

	"github.com/alecthomas/kong"
)

var version = "dev"

var cli struct {
	EnvFile string           `help:"Path to an env file read before the environment." default:".env" type:"path"`
	Version kong.VersionFlag `help:"Print the version and exit."`
}

func main() {
	ctx := context.Background()
	k := kong.Parse(&cli,
		kong.Description("MentorHub authentication server."),
		kong.Vars{"version": version},
	)
	k.FatalIfErrorf(run(ctx, cli.EnvFile))
}
