// Command sessionctl administers collection sessions directly against the
// configured storage backend.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/paperloop/paperloop-backend/internal/collection/events"
	"github.com/paperloop/paperloop-backend/internal/collection/repository"
	"github.com/paperloop/paperloop-backend/internal/collection/service"
	"github.com/paperloop/paperloop-backend/pkg/actor"
	"github.com/paperloop/paperloop-backend/pkg/config"
	"github.com/paperloop/paperloop-backend/pkg/logger"
	"github.com/paperloop/paperloop-backend/pkg/messaging"
	"github.com/paperloop/paperloop-backend/pkg/permissions"
	"github.com/spf13/cobra"
)

// Output formats
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// app carries what every subcommand shares. cfg stays nil until the
// root command loads it, unless a test injected one.
type app struct {
	out    io.Writer
	errOut io.Writer
	cfg    *config.Config
	log    *logger.Logger

	output    string
	actorID   string
	actorName string
	actorRole string
	verbose   bool
}

func main() {
	a := &app{out: os.Stdout, errOut: os.Stderr}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "sessionctl",
		Short:         "Manage paper collection sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch a.output {
			case outputTable, outputJSON, outputYAML:
			default:
				return fmt.Errorf("unknown output format %q (table, json, yaml)", a.output)
			}

			if a.cfg == nil {
				cfg, err := config.LoadWithValidation("sessionctl")
				if err != nil {
					return err
				}
				a.cfg = cfg
			}
			if a.log == nil {
				a.log = logger.Nop()
				if a.verbose {
					a.log = logger.NewWithWriter("sessionctl", config.EnvDevelopment, a.errOut)
				}
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.output, "output", "o", outputTable, "output format: table, json or yaml")
	flags.StringVar(&a.actorID, "actor-id", config.GetEnv("PAPERLOOP_ACTOR_ID", ""), "acting user id (defaults to the system actor)")
	flags.StringVar(&a.actorName, "actor-name", config.GetEnv("PAPERLOOP_ACTOR_NAME", ""), "acting user display name")
	flags.StringVar(&a.actorRole, "actor-role", permissions.RoleAdmin, "acting user role")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log to stderr")

	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(sessionCmd(a))
	root.AddCommand(collectionCmd(a))
	root.AddCommand(problemCmd(a))
	root.AddCommand(commentCmd(a))
	root.AddCommand(tokenCmd(a))
	return root
}

// actor returns the acting user. Without --actor-id commands run as the
// system actor.
func (a *app) actor() actor.Actor {
	if a.actorID == "" {
		return actor.SystemActor()
	}
	return actor.Actor{
		ID:          a.actorID,
		Name:        a.actorName,
		Role:        a.actorRole,
		Permissions: permissions.ForRole(a.actorRole),
	}
}

// withService opens the configured storage, builds a session service on
// it and closes everything once fn returns
func (a *app) withService(ctx context.Context, fn func(ctx context.Context, svc *service.SessionService) error) error {
	store, err := repository.Open(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := []service.Option{
		service.WithDirectory(store.Directory),
		service.WithScoring(service.ScoringFromConfig(a.cfg.Scoring)),
		service.WithLogger(a.log),
	}

	if a.cfg.RabbitMQ.Enabled {
		rmq, err := messaging.New(&a.cfg.RabbitMQ, a.log)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer rmq.Close()

		publisher, err := events.NewCollectionEventPublisher(rmq, a.log)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithPublisher(publisher))
	}

	return fn(ctx, service.NewSessionService(store.Sessions, opts...))
}
