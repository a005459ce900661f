package firestore

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/dvloznov/goaltracker/internal/store"
	"github.com/dvloznov/goaltracker/internal/store/storetest"
	"github.com/google/uuid"
)

// These tests need the Firestore emulator:
//
//	gcloud emulators firestore start --host-port=localhost:8086
//	FIRESTORE_EMULATOR_HOST=localhost:8086 go test ./internal/store/firestore/
func TestStore(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "goaltracker-test")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	storetest.Run(t, func(t *testing.T) store.RecordStore {
		// Every subtest gets its own root so runs never see each other's data.
		return NewWithClient(client, "runs/"+uuid.NewString())
	})
}
