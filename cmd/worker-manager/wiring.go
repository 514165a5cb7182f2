package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ticketpin-workers/internal/common/aws"
	"ticketpin-workers/internal/common/config"
	"ticketpin-workers/internal/common/database"
	"ticketpin-workers/internal/common/logger"
	"ticketpin-workers/internal/common/secrets"
	"ticketpin-workers/internal/fulfillment"
	"ticketpin-workers/internal/pipeline"
)

// dependencies holds the optional backing services. Only those the
// configuration asks for are connected.
type dependencies struct {
	postgres      *database.PostgresClient
	elasticsearch *database.ElasticsearchClient
	redis         *database.RedisClient
	sns           *aws.SNSClient
	ses           *aws.SESClient
}

func connectDependencies(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (*dependencies, error) {
	deps := &dependencies{}

	if cfg.Recording.Postgres {
		err := retryWithBackoff(func() error {
			var err error
			deps.postgres, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return deps.postgres.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		zapLog.Info("PostgreSQL connected successfully")
	}

	if cfg.Recording.Elasticsearch {
		err := retryWithBackoff(func() error {
			var err error
			deps.elasticsearch, err = database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
			if err != nil {
				return err
			}
			return deps.elasticsearch.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			deps.Close()
			return nil, err
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	if cfg.Secrets.Backend == config.SecretsBackendRedis {
		deps.redis = database.NewRedis(cfg.Database.Redis)
		err := retryWithBackoff(func() error {
			return deps.redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			deps.Close()
			return nil, err
		}
		zapLog.Info("Redis connected successfully")
	}

	var err error
	if cfg.Notifications.SNS.Enabled {
		if deps.sns, err = aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region); err != nil {
			deps.Close()
			return nil, err
		}
	}
	if cfg.Notifications.SES.Enabled {
		if deps.ses, err = aws.NewSESClient(ctx, cfg.Notifications.AWS.Region); err != nil {
			deps.Close()
			return nil, err
		}
	}

	return deps, nil
}

func (d *dependencies) Close() {
	if d.postgres != nil {
		_ = d.postgres.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
}

// checks returns readiness probes for the connected services.
func (d *dependencies) checks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{}
	if d.postgres != nil {
		checks["postgres"] = d.postgres.Ping
	}
	if d.elasticsearch != nil {
		checks["elasticsearch"] = d.elasticsearch.Ping
	}
	if d.redis != nil {
		checks["redis"] = d.redis.Ping
	}
	return checks
}

// buildCredentials resolves keys per run. The redis backend lets operators
// rotate keys without restarting the worker.
func buildCredentials(cfg *config.Config, redis *database.RedisClient) pipeline.CredentialSource {
	if cfg.Secrets.Backend == config.SecretsBackendRedis && redis != nil {
		return pipeline.NewStoreCredentials(secrets.NewRedisStore(redis.Client, cfg.Secrets.RedisKey))
	}
	return pipeline.NewStoreCredentials(secrets.NewStaticStore(map[string]string{
		pipeline.SecretImageAPIKey:   cfg.Pipeline.Image.APIKey,
		pipeline.SecretPinningAPIKey: cfg.Pipeline.Pinning.APIKey,
	}))
}

func buildRecorder(ctx context.Context, cfg *config.Config, deps *dependencies, log logger.Logger) (*fulfillment.MultiRecorder, error) {
	var sinks []fulfillment.Recorder

	if deps.postgres != nil {
		pg := fulfillment.NewPostgresRecorder(deps.postgres.DB)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("postgres recorder: %w", err)
		}
		sinks = append(sinks, pg)
	}
	if deps.elasticsearch != nil {
		sinks = append(sinks, fulfillment.NewElasticsearchRecorder(deps.elasticsearch.Client, cfg.Database.Elasticsearch.Index))
	}
	if deps.sns != nil {
		sinks = append(sinks, fulfillment.NewSNSNotifier(deps.sns, cfg.Notifications.SNS.TopicARN))
	}
	if deps.ses != nil {
		n := cfg.Notifications.SES
		sinks = append(sinks, fulfillment.NewSESAlerter(deps.ses, n.FromEmail, n.To, string(pipeline.KindConfiguration)))
	}

	return fulfillment.NewMultiRecorder(log, sinks...), nil
}
