package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"
	"github.com/venohr/stepflow/pkg/cmd"
	"github.com/venohr/stepflow/pkg/engine"
	"github.com/venohr/stepflow/pkg/log"
	"github.com/venohr/stepflow/pkg/otelhelper"
	"github.com/venohr/stepflow/pkg/worker"
)

const leaseTTL = 2 * time.Minute

func main() {
	command := &cli.Command{
		Name:                  "stepflow-worker",
		Usage:                 "Start a worker to execute process steps",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker list (empty for in-process event bus)",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the cross-instance process lease (empty for local lease)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:     "provisioning-url",
				Usage:    "Base URL of the provisioning service",
				Required: true,
				Sources:  cli.EnvVars("PROVISIONING_URL"),
			},
			&cli.StringFlag{
				Name:    "notification-url",
				Usage:   "Base URL of the notification service",
				Sources: cli.EnvVars("NOTIFICATION_URL"),
			},
			&cli.StringFlag{
				Name:    "mailing-url",
				Usage:   "Base URL of the mailing service",
				Sources: cli.EnvVars("MAILING_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log output format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("stepflow-worker").With("worker_id", workerID)
			logger.InfoContext(ctx, "Initializing Stepflow Worker")

			tracer, err := otelhelper.NewTracer(ctx, "stepflow-worker")
			if err != nil {
				return err
			}

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("kafka-brokers"), "stepflow-worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			collaborators := cmd.NewCollaborators(
				command.String("provisioning-url"),
				command.String("notification-url"),
				command.String("mailing-url"),
				logger,
			)

			registry := cmd.NewRegistry(persistence, collaborators, logger)

			lease, err := newLease(command.String("redis-url"), workerID)
			if err != nil {
				return err
			}

			executor := engine.NewExecutor(persistence, registry, eventBus, tracer, logger, workerID)

			w := worker.New(workerID, persistence, eventBus, executor, lease, logger)
			if err := w.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func newLease(redisURL, workerID string) (worker.Lease, error) {
	if redisURL == "" {
		return worker.NewLocalLease(), nil
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	return worker.NewRedisLease(redis.NewClient(options), workerID, leaseTTL), nil
}
