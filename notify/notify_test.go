package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

type fakeQueue struct {
	sent []string
	err  error
}

func (f *fakeQueue) EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error) {
	if f.err != nil {
		return azqueue.EnqueueMessagesResponse{}, f.err
	}
	f.sent = append(f.sent, content)
	return azqueue.EnqueueMessagesResponse{}, nil
}

func TestNotifyEnqueuesPayload(t *testing.T) {
	q := &fakeQueue{}
	d := NewWithQueue(q)
	d.Notify(context.Background(), "driver-7", EventAssigned, "t1")
	if len(q.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(q.sent))
	}
	var p pushPayload
	if err := json.Unmarshal([]byte(q.sent[0]), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.TaskID != "t1" || p.EventType != EventAssigned || p.TargetOperatorID != "driver-7" {
		t.Fatalf("payload %+v", p)
	}
}

func TestNotifySwallowsTransportFailure(t *testing.T) {
	q := &fakeQueue{err: errors.New("gateway down")}
	d := NewWithQueue(q)
	// Must not panic or surface the error.
	d.Notify(context.Background(), "driver-7", EventAssigned, "t1")
}
