package kvstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection holds one document per key.
const DefaultCollection = "chat_history"

// FirestoreStore implements ports.KeyValueStore on a Firestore collection.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore creates a Firestore-backed store.
func NewFirestoreStore(ctx context.Context, projectID, collection string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &FirestoreStore{client: client, collection: collection}, nil
}

type kvDoc struct {
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func (s *FirestoreStore) doc(key string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(key)
}

func (s *FirestoreStore) Get(ctx context.Context, key string) (string, bool, error) {
	snap, err := s.doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("firestore Get: %w", err)
	}

	var d kvDoc
	if err := snap.DataTo(&d); err != nil {
		return "", false, fmt.Errorf("firestore Get decode: %w", err)
	}
	return d.Value, true, nil
}

func (s *FirestoreStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.doc(key).Set(ctx, kvDoc{Value: value, UpdatedAt: time.Now().UTC()}); err != nil {
		return fmt.Errorf("firestore Set: %w", err)
	}
	return nil
}

// Remove succeeds when the document does not exist.
func (s *FirestoreStore) Remove(ctx context.Context, key string) error {
	if _, err := s.doc(key).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("firestore Remove: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
