package workflow

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CheckpointStore persists the terminal result of every durable step, keyed
// by project and step name. Before a step executes, the runner consults the
// store; a recorded result means the step already completed in an earlier
// invocation and must not run again.
type CheckpointStore interface {
	// Get returns the recorded result for a step, or nil when the step has
	// not completed yet.
	Get(ctx context.Context, projectID, step string) ([]byte, error)
	// Save records a step's result. Saving the same step twice overwrites,
	// so replay after a crash between execute and save is harmless.
	Save(ctx context.Context, projectID, step string, result []byte) error
}

// FirestoreCheckpoints stores step results in a checkpoints subcollection
// under each project document.
type FirestoreCheckpoints struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreCheckpoints(client *firestore.Client, collection string) *FirestoreCheckpoints {
	return &FirestoreCheckpoints{client: client, collection: collection}
}

type checkpointDoc struct {
	Result      []byte    `firestore:"result"`
	CompletedAt time.Time `firestore:"completedAt"`
}

func (s *FirestoreCheckpoints) ref(projectID, step string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(projectID).Collection("checkpoints").Doc(step)
}

func (s *FirestoreCheckpoints) Get(ctx context.Context, projectID, step string) ([]byte, error) {
	snap, err := s.ref(projectID, step).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %q: %w", step, err)
	}
	var doc checkpointDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %q: %w", step, err)
	}
	if len(doc.Result) == 0 {
		// Save always writes an encoded payload, so a document without one
		// is malformed. Treat the step as not completed and re-execute it
		// rather than returning a payload that can never decode.
		return nil, nil
	}
	return doc.Result, nil
}

func (s *FirestoreCheckpoints) Save(ctx context.Context, projectID, step string, result []byte) error {
	_, err := s.ref(projectID, step).Set(ctx, checkpointDoc{
		Result:      result,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint %q: %w", step, err)
	}
	return nil
}
