package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ctf-labs/lab-publisher/pkg/common/failure"
	"golang.org/x/oauth2/google"
)

// Scopes needed by the Firestore client.
var Scopes = []string{
	"https://www.googleapis.com/auth/datastore",
	"https://www.googleapis.com/auth/cloud-platform",
}

type ServiceAccount struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`

	raw []byte
}

// Parse decodes a service account blob. Errors never include the blob itself.
func Parse(raw string) (*ServiceAccount, error) {
	var sa ServiceAccount
	if err := json.Unmarshal([]byte(raw), &sa); err != nil {
		return nil, failure.Credential(fmt.Errorf("FIREBASE_SERVICE_ACCOUNT is not valid JSON: %w", err))
	}

	var missing []string
	if strings.TrimSpace(sa.ProjectID) == "" {
		missing = append(missing, "project_id")
	}
	if strings.TrimSpace(sa.ClientEmail) == "" {
		missing = append(missing, "client_email")
	}
	if strings.TrimSpace(sa.PrivateKey) == "" {
		missing = append(missing, "private_key")
	}
	if len(missing) > 0 {
		return nil, failure.Credential(fmt.Errorf("FIREBASE_SERVICE_ACCOUNT is missing %s", strings.Join(missing, ", ")))
	}

	sa.raw = []byte(raw)
	return &sa, nil
}

// GoogleCredentials turns the parsed account into credentials the Google
// client libraries accept.
func (sa *ServiceAccount) GoogleCredentials(ctx context.Context) (*google.Credentials, error) {
	if sa == nil || len(sa.raw) == 0 {
		return nil, failure.Credential(errors.New("service account not loaded"))
	}
	creds, err := google.CredentialsFromJSON(ctx, sa.raw, Scopes...)
	if err != nil {
		return nil, failure.Credential(fmt.Errorf("building google credentials: %w", err))
	}
	return creds, nil
}
