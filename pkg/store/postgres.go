package store

import (
	"context"
	"time"

	"github.com/ctf-labs/lab-publisher/pkg/common/database"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Document is one stored document. Payload is merged with the JSONB ||
// operator on conflict, so keys missing from a write survive it.
type Document struct {
	Collection string            `json:"collection" gorm:"primaryKey;column:collection"`
	ID         string            `json:"id" gorm:"primaryKey;column:id"`
	Payload    datatypes.JSONMap `json:"payload" gorm:"column:payload;type:jsonb"`
	CreatedAt  time.Time         `json:"created_at" gorm:"column:created_at"`
	UpdatedAt  time.Time         `json:"updated_at" gorm:"column:updated_at"`
}

func (Document) TableName() string {
	return "lab_documents"
}

type PostgresWriter struct {
	db *gorm.DB
}

func NewPostgresWriter(db *gorm.DB) *PostgresWriter {
	return &PostgresWriter{db: db}
}

func (w *PostgresWriter) AutoMigrate() error {
	return w.db.AutoMigrate(&Document{})
}

func (w *PostgresWriter) Upsert(ctx context.Context, collection, id string, doc map[string]interface{}) error {
	now := time.Now().UTC()
	rec := &Document{
		Collection: collection,
		ID:         id,
		Payload:    datatypes.JSONMap(doc),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return w.db.WithContext(ctx).Clauses(mergeOnConflict(now)).Create(rec).Error
}

func mergeOnConflict(now time.Time) clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"payload":    gorm.Expr("lab_documents.payload || excluded.payload"),
			"updated_at": now,
		}),
	}
}

func (w *PostgresWriter) Close() error {
	return database.ClosePostgres(w.db)
}
