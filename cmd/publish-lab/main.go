package main

import (
	"context"
	"time"

	"github.com/ctf-labs/lab-publisher/pkg/common/config"
	"github.com/ctf-labs/lab-publisher/pkg/common/failure"
	"github.com/ctf-labs/lab-publisher/pkg/common/kafka"
	"github.com/ctf-labs/lab-publisher/pkg/common/logger"
	"github.com/ctf-labs/lab-publisher/pkg/credentials"
	"github.com/ctf-labs/lab-publisher/pkg/issue"
	"github.com/ctf-labs/lab-publisher/pkg/lab"
	"github.com/ctf-labs/lab-publisher/pkg/publisher"
	"github.com/ctf-labs/lab-publisher/pkg/store"
)

func main() {
	logger.Init()
	cfg := config.Load()

	if err := run(context.Background(), cfg); err != nil {
		logger.WithFields(map[string]interface{}{
			"kind":  string(failure.KindOf(err)),
			"field": failure.FieldOf(err),
		}).WithError(err).Fatal("Lab publish failed")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := config.RequireEnv(cfg.RequiredEnvVars()...); err != nil {
		return err
	}

	tpl, err := issue.LoadTemplate(cfg.IssueTemplatePath)
	if err != nil {
		return failure.Configuration("ISSUE_TEMPLATE_PATH", err)
	}
	extractor, err := issue.NewExtractor(tpl)
	if err != nil {
		return failure.Configuration("ISSUE_TEMPLATE_PATH", err)
	}

	var sa *credentials.ServiceAccount
	if cfg.StoreDriver == config.DriverFirestore {
		sa, err = credentials.Parse(cfg.ServiceAccountJSON)
		if err != nil {
			return err
		}
	}

	writer, err := store.Open(ctx, cfg, sa)
	if err != nil {
		return err
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.WithField("error", err.Error()).Warn("failed to close store")
		}
	}()

	var notifier publisher.Notifier
	if cfg.NotificationsEnabled() {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.LabEventsTopic)
		defer producer.Close()
		notifier = producer
	}

	svc := publisher.NewService(extractor, lab.NewBuilder(time.Now), writer, notifier, cfg.LabsCollection).
		WithNotifyTimeout(cfg.NotifyTimeout)
	res, err := svc.Publish(ctx, publisher.InputFromConfig(cfg))
	if err != nil {
		return err
	}

	logger.WithField("document_id", res.DocumentID).Infof("Lab %q is live", res.Lab.Title)
	return nil
}
