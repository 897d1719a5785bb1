package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/ctf-labs/lab-publisher/pkg/common/failure"
)

var (
	publishAttempts      atomic.Int64
	publishSucceeded     atomic.Int64
	configurationErrors  atomic.Int64
	credentialErrors     atomic.Int64
	contentErrors        atomic.Int64
	persistenceErrors    atomic.Int64
	webhooksIgnored      atomic.Int64
	notificationFailures atomic.Int64
)

func ObservePublishAttempt() {
	publishAttempts.Add(1)
}

func ObservePublished() {
	publishSucceeded.Add(1)
}

// ObserveFailure counts err under its failure kind. Untagged errors are
// counted as persistence failures, the only stage that talks to the network.
func ObserveFailure(err error) {
	switch failure.KindOf(err) {
	case failure.KindConfiguration:
		configurationErrors.Add(1)
	case failure.KindCredential:
		credentialErrors.Add(1)
	case failure.KindContent:
		contentErrors.Add(1)
	default:
		persistenceErrors.Add(1)
	}
}

func ObserveWebhookIgnored() {
	webhooksIgnored.Add(1)
}

func ObserveNotificationFailure() {
	notificationFailures.Add(1)
}

type Snapshot struct {
	Attempts             int64
	Published            int64
	ConfigurationErrors  int64
	CredentialErrors     int64
	ContentErrors        int64
	PersistenceErrors    int64
	WebhooksIgnored      int64
	NotificationFailures int64
}

func Current() Snapshot {
	return Snapshot{
		Attempts:             publishAttempts.Load(),
		Published:            publishSucceeded.Load(),
		ConfigurationErrors:  configurationErrors.Load(),
		CredentialErrors:     credentialErrors.Load(),
		ContentErrors:        contentErrors.Load(),
		PersistenceErrors:    persistenceErrors.Load(),
		WebhooksIgnored:      webhooksIgnored.Load(),
		NotificationFailures: notificationFailures.Load(),
	}
}

func WritePrometheus(w http.ResponseWriter) {
	s := Current()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP labs_publish_attempts_total Number of lab publish attempts.\n")
	fmt.Fprintf(w, "# TYPE labs_publish_attempts_total counter\n")
	fmt.Fprintf(w, "labs_publish_attempts_total %d\n", s.Attempts)

	fmt.Fprintf(w, "# HELP labs_published_total Number of labs written to the document store.\n")
	fmt.Fprintf(w, "# TYPE labs_published_total counter\n")
	fmt.Fprintf(w, "labs_published_total %d\n", s.Published)

	fmt.Fprintf(w, "# HELP labs_publish_failures_total Number of failed publish attempts by failure kind.\n")
	fmt.Fprintf(w, "# TYPE labs_publish_failures_total counter\n")
	fmt.Fprintf(w, "labs_publish_failures_total{kind=%q} %d\n", failure.KindConfiguration, s.ConfigurationErrors)
	fmt.Fprintf(w, "labs_publish_failures_total{kind=%q} %d\n", failure.KindCredential, s.CredentialErrors)
	fmt.Fprintf(w, "labs_publish_failures_total{kind=%q} %d\n", failure.KindContent, s.ContentErrors)
	fmt.Fprintf(w, "labs_publish_failures_total{kind=%q} %d\n", failure.KindPersistence, s.PersistenceErrors)

	fmt.Fprintf(w, "# HELP labs_webhooks_ignored_total Number of webhook deliveries that did not trigger a publish.\n")
	fmt.Fprintf(w, "# TYPE labs_webhooks_ignored_total counter\n")
	fmt.Fprintf(w, "labs_webhooks_ignored_total %d\n", s.WebhooksIgnored)

	fmt.Fprintf(w, "# HELP labs_notification_failures_total Number of lab.published events that could not be sent.\n")
	fmt.Fprintf(w, "# TYPE labs_notification_failures_total counter\n")
	fmt.Fprintf(w, "labs_notification_failures_total %d\n", s.NotificationFailures)
}
