package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ctf-labs/lab-publisher/pkg/common/logger"
	"github.com/ctf-labs/lab-publisher/pkg/common/models"
	"github.com/ctf-labs/lab-publisher/pkg/issue"
	"github.com/ctf-labs/lab-publisher/pkg/lab"
	"github.com/ctf-labs/lab-publisher/pkg/publisher"
	"github.com/ctf-labs/lab-publisher/pkg/store"
	"github.com/gorilla/mux"
)

const secret = "s3cret"

const body = "### Submitter Name\nAlice\n### Challenge Name\nBuffer Basics\n### Challenge Type\npwn\n" +
	"### Challenge Description\nOverflow.\n### Flag\nFLAG{test}\n### Solution\nSend 64 bytes.\n"

func newService(t *testing.T, writer store.Writer) *publisher.Service {
	t.Helper()
	ex, err := issue.NewExtractor(issue.DefaultTemplate())
	if err != nil {
		t.Fatalf("failed to create extractor: %v", err)
	}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return publisher.NewService(ex, lab.NewBuilder(func() time.Time { return now }), writer, nil, "labs")
}

func mount(handler *HTTPHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(Recovery)
	handler.Register(router)
	return router
}

func newRouter(t *testing.T, writer store.Writer) *mux.Router {
	t.Helper()
	return mount(NewHTTPHandler(newService(t, writer), secret, "approved", 1<<20))
}

func labeledEvent(label, issueBody string) []byte {
	event := IssuesEvent{
		Action: ActionLabeled,
		Label:  &Label{Name: label},
		Issue: Issue{
			Number:    42,
			HTMLURL:   "https://github.com/org/labs/issues/42",
			Body:      issueBody,
			CreatedAt: "2024-05-01T10:00:00Z",
			User:      User{Login: "alice"},
		},
		Sender: User{Login: "bob"},
	}
	raw, _ := json.Marshal(event)
	return raw
}

func deliver(router http.Handler, event string, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(payload))
	req.Header.Set("X-GitHub-Event", event)
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) models.PublishResponse {
	t.Helper()
	var resp models.PublishResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestApprovalLabelPublishesLab(t *testing.T) {
	writer := store.NewMemoryWriter()
	payload := labeledEvent("Approved", body)

	rec := deliver(newRouter(t, writer), EventIssues, payload, Sign([]byte(secret), payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode(t, rec)
	if resp.Status != "published" || resp.DocumentID != "issue-42" {
		t.Fatalf("unexpected response %+v", resp)
	}

	doc, ok := writer.Get("labs", "issue-42")
	if !ok {
		t.Fatal("expected stored document")
	}
	if doc["approvedBy"] != "bob" || doc["submittedByGithub"] != "alice" {
		t.Fatalf("unexpected identities %v / %v", doc["approvedBy"], doc["submittedByGithub"])
	}
}

func TestBadSignatureIsRejected(t *testing.T) {
	writer := store.NewMemoryWriter()
	payload := labeledEvent("approved", body)

	rec := deliver(newRouter(t, writer), EventIssues, payload, Sign([]byte("wrong"), payload))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if writer.Writes != 0 {
		t.Fatal("no write expected")
	}
}

func TestOtherLabelsAreIgnored(t *testing.T) {
	writer := store.NewMemoryWriter()
	payload := labeledEvent("needs-review", body)

	rec := deliver(newRouter(t, writer), EventIssues, payload, Sign([]byte(secret), payload))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if decode(t, rec).Status != "ignored" {
		t.Fatal("expected ignored status")
	}
	if writer.Writes != 0 {
		t.Fatal("no write expected")
	}
}

func TestUnsupportedEventIsIgnored(t *testing.T) {
	payload := []byte(`{"action":"created"}`)
	rec := deliver(newRouter(t, store.NewMemoryWriter()), "issue_comment", payload, Sign([]byte(secret), payload))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
}

func TestPingIsAcknowledged(t *testing.T) {
	payload := []byte(`{"zen":"Keep it logically awesome."}`)
	rec := deliver(newRouter(t, store.NewMemoryWriter()), EventPing, payload, Sign([]byte(secret), payload))
	if rec.Code != http.StatusOK || decode(t, rec).Status != "pong" {
		t.Fatalf("unexpected ping response %d %s", rec.Code, rec.Body.String())
	}
}

func TestMissingSectionIsUnprocessable(t *testing.T) {
	writer := store.NewMemoryWriter()
	payload := labeledEvent("approved", "### Submitter Name\nAlice\n")

	rec := deliver(newRouter(t, writer), EventIssues, payload, Sign([]byte(secret), payload))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if writer.Writes != 0 {
		t.Fatal("no write expected")
	}
}

func TestStoreFailureIsBadGateway(t *testing.T) {
	writer := store.NewMemoryWriter()
	writer.Err = http.ErrHandlerTimeout
	payload := labeledEvent("approved", body)

	rec := deliver(newRouter(t, writer), EventIssues, payload, Sign([]byte(secret), payload))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestMalformedPayloadIsBadRequest(t *testing.T) {
	payload := []byte(`{"action":`)
	rec := deliver(newRouter(t, store.NewMemoryWriter()), EventIssues, payload, Sign([]byte(secret), payload))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRecoveryTurnsPanicInto500(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestUnsignedDeliveryRejectedWithoutSecret(t *testing.T) {
	writer := store.NewMemoryWriter()
	router := mount(NewHTTPHandler(newService(t, writer), "", "approved", 1<<20))
	payload := labeledEvent("approved", body)

	rec := deliver(router, EventIssues, payload, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if writer.Writes != 0 {
		t.Fatalf("expected no writes, got %d", writer.Writes)
	}
}

func TestUnsignedDeliveryRejectedWithSecret(t *testing.T) {
	writer := store.NewMemoryWriter()
	payload := labeledEvent("approved", body)

	rec := deliver(newRouter(t, writer), EventIssues, payload, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if writer.Writes != 0 {
		t.Fatalf("expected no writes, got %d", writer.Writes)
	}
}

func TestAllowUnsignedAcceptsDeliveryWithoutSecret(t *testing.T) {
	writer := store.NewMemoryWriter()
	router := mount(NewHTTPHandler(newService(t, writer), "", "approved", 1<<20).AllowUnsigned())
	payload := labeledEvent("approved", body)

	rec := deliver(router, EventIssues, payload, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if writer.Writes != 1 {
		t.Fatalf("expected one write, got %d", writer.Writes)
	}
}

func TestAllowUnsignedStillChecksConfiguredSecret(t *testing.T) {
	writer := store.NewMemoryWriter()
	router := mount(NewHTTPHandler(newService(t, writer), secret, "approved", 1<<20).AllowUnsigned())
	payload := labeledEvent("approved", body)

	rec := deliver(router, EventIssues, payload, Sign([]byte("wrong"), payload))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestPanicStillProducesAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithOutput(&buf)
	defer logger.InitWithOutput(&bytes.Buffer{})

	router := mux.NewRouter()
	Use(router)
	router.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-GitHub-Delivery", "delivery-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, `"msg":"Panic recovered"`) || !strings.Contains(out, `"msg":"HTTP request"`) {
		t.Fatalf("expected panic and access lines, got %s", out)
	}
	if !strings.Contains(out, `"status":500`) {
		t.Fatalf("access line should record 500, got %s", out)
	}
	if strings.Count(out, `"request_id":"delivery-1"`) != 2 {
		t.Fatalf("both lines should carry the delivery id, got %s", out)
	}
}
