package store

import (
	"context"
	"fmt"

	"github.com/ctf-labs/lab-publisher/pkg/common/config"
	"github.com/ctf-labs/lab-publisher/pkg/common/database"
	"github.com/ctf-labs/lab-publisher/pkg/common/failure"
	"github.com/ctf-labs/lab-publisher/pkg/credentials"
)

const DriverMemory = "memory"

// Writer merge-upserts documents: fields in doc overwrite or add, fields
// already stored but absent from doc are left alone.
type Writer interface {
	Upsert(ctx context.Context, collection, id string, doc map[string]interface{}) error
	Close() error
}

// Open builds the Writer selected by cfg.StoreDriver. sa is only consulted by
// the Firestore backend.
func Open(ctx context.Context, cfg *config.Config, sa *credentials.ServiceAccount) (Writer, error) {
	switch cfg.StoreDriver {
	case "", config.DriverFirestore:
		creds, err := sa.GoogleCredentials(ctx)
		if err != nil {
			return nil, err
		}
		projectID := cfg.FirestoreProjectID
		if projectID == "" {
			projectID = sa.ProjectID
		}
		w, err := NewFirestoreWriter(ctx, projectID, creds)
		if err != nil {
			return nil, failure.Credential(fmt.Errorf("initialising firestore client: %w", err))
		}
		return w, nil

	case config.DriverPostgres:
		db, err := database.OpenPostgres(cfg)
		if err != nil {
			return nil, failure.Persistence(fmt.Errorf("connecting to postgres: %w", err))
		}
		w := NewPostgresWriter(db)
		if err := w.AutoMigrate(); err != nil {
			_ = w.Close()
			return nil, failure.Persistence(fmt.Errorf("migrating lab documents: %w", err))
		}
		return w, nil

	case config.DriverRedis:
		client, err := database.OpenRedis(ctx, cfg)
		if err != nil {
			return nil, failure.Persistence(fmt.Errorf("connecting to redis: %w", err))
		}
		return NewRedisWriter(client), nil

	case DriverMemory:
		return NewMemoryWriter(), nil

	default:
		return nil, failure.Configuration("STORE_DRIVER", fmt.Errorf("unsupported store driver %q", cfg.StoreDriver))
	}
}
