package store

import (
	"context"

	"cloud.google.com/go/firestore"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

type FirestoreWriter struct {
	client *firestore.Client
}

func NewFirestoreWriter(ctx context.Context, projectID string, creds *google.Credentials) (*FirestoreWriter, error) {
	client, err := firestore.NewClient(ctx, projectID, option.WithCredentials(creds))
	if err != nil {
		return nil, err
	}
	return &FirestoreWriter{client: client}, nil
}

func (w *FirestoreWriter) Upsert(ctx context.Context, collection, id string, doc map[string]interface{}) error {
	_, err := w.client.Collection(collection).Doc(id).Set(ctx, doc, firestore.MergeAll)
	return err
}

func (w *FirestoreWriter) Close() error {
	return w.client.Close()
}
