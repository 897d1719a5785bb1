package publisher

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ctf-labs/lab-publisher/pkg/common/config"
	"github.com/ctf-labs/lab-publisher/pkg/common/failure"
	"github.com/ctf-labs/lab-publisher/pkg/common/logger"
	"github.com/ctf-labs/lab-publisher/pkg/common/models"
	"github.com/ctf-labs/lab-publisher/pkg/issue"
	"github.com/ctf-labs/lab-publisher/pkg/lab"
	"github.com/ctf-labs/lab-publisher/pkg/observability/metrics"
	"github.com/ctf-labs/lab-publisher/pkg/store"
)

const (
	eventSource          = "lab-publisher"
	defaultNotifyTimeout = 5 * time.Second
)

// Notifier announces a published lab. It is optional.
type Notifier interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Input is everything the pipeline needs about one approved issue.
type Input struct {
	Body        string
	Number      string
	URL         string
	CreatedAt   string
	SubmittedBy string
	ApprovedBy  string
}

func InputFromConfig(cfg *config.Config) Input {
	return Input{
		Body:        cfg.IssueBody,
		Number:      cfg.IssueNumber,
		URL:         cfg.IssueHTMLURL,
		CreatedAt:   cfg.IssueCreatedAt,
		SubmittedBy: cfg.IssueUserLogin,
		ApprovedBy:  cfg.ApprovedByLogin,
	}
}

// Validate checks for blank values the same way the environment check does
// and returns the parsed issue number.
func (in Input) Validate() (int, error) {
	required := []struct {
		name  string
		value string
	}{
		{config.EnvIssueBody, in.Body},
		{config.EnvIssueNumber, in.Number},
		{config.EnvIssueHTMLURL, in.URL},
		{config.EnvIssueCreatedAt, in.CreatedAt},
		{config.EnvIssueUserLogin, in.SubmittedBy},
		{config.EnvApprovedBy, in.ApprovedBy},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return 0, failure.Configuration(r.name, fmt.Errorf("missing required issue input %s", r.name))
		}
	}

	number, err := strconv.Atoi(strings.TrimSpace(in.Number))
	if err != nil || number <= 0 {
		return 0, failure.Configuration(config.EnvIssueNumber, fmt.Errorf("%s must be a positive integer, got %q", config.EnvIssueNumber, in.Number))
	}
	return number, nil
}

type Result struct {
	DocumentID string
	Lab        *models.Lab
}

type Service struct {
	extractor  *issue.Extractor
	builder    *lab.Builder
	writer     store.Writer
	notifier      Notifier
	collection    string
	notifyTimeout time.Duration
}

func NewService(extractor *issue.Extractor, builder *lab.Builder, writer store.Writer, notifier Notifier, collection string) *Service {
	return &Service{
		extractor:     extractor,
		builder:       builder,
		writer:        writer,
		notifier:      notifier,
		collection:    collection,
		notifyTimeout: defaultNotifyTimeout,
	}
}

// WithNotifyTimeout bounds how long a notification may hold up a finished
// publish. Non-positive values keep the default.
func (s *Service) WithNotifyTimeout(d time.Duration) *Service {
	if d > 0 {
		s.notifyTimeout = d
	}
	return s
}

// Publish runs extract, build and write for one issue. Each stage either
// hands its value to the next or returns a tagged failure that ends the run.
func (s *Service) Publish(ctx context.Context, in Input) (*Result, error) {
	metrics.ObservePublishAttempt()

	res, err := s.publish(ctx, in)
	if err != nil {
		metrics.ObserveFailure(err)
		return nil, err
	}

	metrics.ObservePublished()
	return res, nil
}

func (s *Service) publish(ctx context.Context, in Input) (*Result, error) {
	number, err := in.Validate()
	if err != nil {
		return nil, err
	}

	sub, err := s.extractor.Extract(in.Body)
	if err != nil {
		return nil, err
	}

	rec := s.builder.Build(sub, lab.IssueMeta{
		Number:      number,
		URL:         in.URL,
		CreatedAt:   in.CreatedAt,
		SubmittedBy: in.SubmittedBy,
		ApprovedBy:  in.ApprovedBy,
	})
	docID := lab.DocumentID(number)

	logger.WithFields(map[string]interface{}{
		"issue_number": number,
		"document_id":  docID,
		"collection":   s.collection,
	}).Infof("Publishing lab for issue #%d: %q", number, rec.Title)

	if err := s.writer.Upsert(ctx, s.collection, docID, rec.Fields()); err != nil {
		return nil, failure.Persistence(fmt.Errorf("Failed to publish lab to %s/%s: %w", s.collection, docID, err))
	}

	logger.WithField("document_id", docID).Info("Lab published successfully with flag hash.")

	s.notify(ctx, docID, rec)

	return &Result{DocumentID: docID, Lab: rec}, nil
}

// notify runs after the write was acknowledged, so a failure here is only
// logged.
func (s *Service) notify(ctx context.Context, docID string, rec *models.Lab) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()

	err := s.notifier.PublishEvent(ctx, models.EventLabPublished, eventSource, map[string]interface{}{
		"document_id":    docID,
		"collection":     s.collection,
		"issue_number":   rec.GithubIssueNumber,
		"issue_url":      rec.GithubIssueURL,
		"title":          rec.Title,
		"challenge_type": rec.ChallengeType,
		"author_name":    rec.AuthorName,
		"approved_by":    rec.ApprovedBy,
	})
	if err != nil {
		metrics.ObserveNotificationFailure()
		logger.WithField("document_id", docID).WithError(err).Warn("failed to announce published lab")
	}
}
