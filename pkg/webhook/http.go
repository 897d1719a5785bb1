package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ctf-labs/lab-publisher/pkg/common/failure"
	"github.com/ctf-labs/lab-publisher/pkg/common/logger"
	"github.com/ctf-labs/lab-publisher/pkg/common/models"
	"github.com/ctf-labs/lab-publisher/pkg/observability/metrics"
	"github.com/ctf-labs/lab-publisher/pkg/publisher"
	"github.com/gorilla/mux"
)

type Publisher interface {
	Publish(ctx context.Context, in publisher.Input) (*publisher.Result, error)
}

type HTTPHandler struct {
	service       Publisher
	secret        []byte
	approvalLabel string
	maxBody       int64
	allowUnsigned bool
}

// NewHTTPHandler builds the GitHub webhook handler. Deliveries without a valid
// signature are rejected, including when no secret is configured, unless
// AllowUnsigned was called.
func NewHTTPHandler(service Publisher, secret string, approvalLabel string, maxBody int64) *HTTPHandler {
	return &HTTPHandler{
		service:       service,
		secret:        []byte(secret),
		approvalLabel: approvalLabel,
		maxBody:       maxBody,
	}
}

// AllowUnsigned accepts deliveries without a signature when no secret is set.
// Only meant for local development.
func (h *HTTPHandler) AllowUnsigned() *HTTPHandler {
	h.allowUnsigned = true
	return h
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/webhooks/github", h.handleGitHub).Methods(http.MethodPost)
}

func (h *HTTPHandler) authorized(body []byte, signature string) bool {
	if len(h.secret) == 0 {
		return h.allowUnsigned
	}
	return VerifySignature(h.secret, body, signature)
}

func (h *HTTPHandler) handleGitHub(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.WithField("error", err.Error()).Warn("failed to read webhook body")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !h.authorized(body, r.Header.Get("X-Hub-Signature-256")) {
		logger.WithField("request_id", r.Header.Get("X-Request-ID")).Warn("webhook signature mismatch")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	switch r.Header.Get("X-GitHub-Event") {
	case EventPing:
		writeJSON(w, http.StatusOK, models.PublishResponse{Status: "pong"})
		return
	case EventIssues:
	default:
		h.ignore(w, "unsupported event")
		return
	}

	var event IssuesEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logger.WithField("error", err.Error()).Warn("invalid issues payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !event.IsApproval(h.approvalLabel) {
		h.ignore(w, "not an approval")
		return
	}

	res, err := h.service.Publish(r.Context(), event.ToInput())
	if err != nil {
		status := statusFor(err)
		entry := logger.WithFields(map[string]interface{}{
			"issue_number": event.Issue.Number,
			"kind":         string(failure.KindOf(err)),
			"field":        failure.FieldOf(err),
		})
		if status >= http.StatusInternalServerError {
			entry.WithError(err).Error("failed to publish lab")
		} else {
			entry.WithError(err).Warn("rejected lab submission")
		}
		writeJSON(w, status, models.PublishResponse{Status: "failed", Reason: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, models.PublishResponse{Status: "published", DocumentID: res.DocumentID})
}

func (h *HTTPHandler) ignore(w http.ResponseWriter, reason string) {
	metrics.ObserveWebhookIgnored()
	writeJSON(w, http.StatusAccepted, models.PublishResponse{Status: "ignored", Reason: reason})
}

func statusFor(err error) int {
	var fe *failure.Error
	if !errors.As(err, &fe) {
		return http.StatusInternalServerError
	}
	switch fe.Kind {
	case failure.KindConfiguration:
		return http.StatusBadRequest
	case failure.KindContent:
		return http.StatusUnprocessableEntity
	case failure.KindPersistence:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
