package identity

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/example/summarist/internal/config"
)

// Clients holds the process-wide Firebase handles. It is built once in main
// and passed to whatever needs it.
type Clients struct {
	App       *firebase.App
	Auth      *auth.Client
	Firestore *firestore.Client
}

// Close releases the Firestore connection.
func (c *Clients) Close() error {
	if c == nil || c.Firestore == nil {
		return nil
	}
	return c.Firestore.Close()
}

// credentialOption picks the service-account source in order of precedence:
// a credentials file, base64 JSON, raw JSON. A nil option means Application
// Default Credentials.
func credentialOption(cfg *config.Config) (option.ClientOption, string, error) {
	switch {
	case cfg.GoogleApplicationCredentials != "":
		return option.WithCredentialsFile(cfg.GoogleApplicationCredentials), "credentials file", nil
	case cfg.FirebaseServiceAccountJSONBase64 != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.FirebaseServiceAccountJSONBase64)
		if err != nil {
			return nil, "", fmt.Errorf("failed to decode FIREBASE_SERVICE_ACCOUNT_JSON_BASE64: %w", err)
		}
		return option.WithCredentialsJSON(decoded), "base64 service account JSON", nil
	case cfg.FirebaseServiceAccountKey != "":
		return option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountKey)), "service account key", nil
	}
	return nil, "application default credentials", nil
}

// InitClients initializes the Firebase Admin SDK along with its Auth and
// Firestore clients.
func InitClients(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Clients, error) {
	if cfg == nil {
		return nil, fmt.Errorf("InitClients: config cannot be nil")
	}

	credsOption, source, err := credentialOption(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.GoogleApplicationCredentials != "" {
		if _, statErr := os.Stat(cfg.GoogleApplicationCredentials); os.IsNotExist(statErr) {
			logger.Warn("Credentials file does not exist", zap.String("path", cfg.GoogleApplicationCredentials))
		}
	}
	logger.Info("Initializing Firebase", zap.String("credentials", source), zap.String("projectId", cfg.FirebaseProjectID))

	var appConfig *firebase.Config
	if cfg.FirebaseProjectID != "" {
		appConfig = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}

	var opts []option.ClientOption
	if credsOption != nil {
		opts = append(opts, credsOption)
	}
	app, err := firebase.NewApp(ctx, appConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.Firestore: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		fs.Close()
		return nil, fmt.Errorf("app.Auth: %w", err)
	}

	logger.Info("Firebase clients initialized")
	return &Clients{App: app, Auth: authClient, Firestore: fs}, nil
}
