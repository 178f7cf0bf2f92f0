// Package secrets resolves the Gemini API key, preferring the process
// environment and falling back to Google Secret Manager.
package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

const (
	apiKeyEnv     = "GOOGLE_API_KEY"
	apiKeySecret  = "GOOGLE_API_KEY"
	latestVersion = "latest"
)

type Loader struct {
	projectID string
	logger    *slog.Logger

	// lookupEnv and access are swappable for tests.
	lookupEnv func(string) (string, bool)
	access    func(ctx context.Context, name string) (string, error)
}

func NewLoader(projectID string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		projectID: projectID,
		logger:    logger,
		lookupEnv: os.LookupEnv,
		access:    accessSecretVersion,
	}
}

// APIKey returns the Gemini API key. The environment wins so local runs
// never need Secret Manager access.
func (l *Loader) APIKey(ctx context.Context) (string, error) {
	if v, ok := l.lookupEnv(apiKeyEnv); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}
	if l.projectID == "" {
		return "", fmt.Errorf("%s is not set and no project id is configured for secret manager", apiKeyEnv)
	}
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", l.projectID, apiKeySecret, latestVersion)
	l.logger.Info("loading api key from secret manager", "secret", name)
	v, err := l.access(ctx, name)
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("secret %s is empty", name)
	}
	return strings.TrimSpace(v), nil
}

func accessSecretVersion(ctx context.Context, name string) (string, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("create secret manager client: %w", err)
	}
	defer client.Close()

	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", err
	}
	return string(resp.GetPayload().GetData()), nil
}
