// Package stream defines the publish/subscribe contract the aggregate
// runtime and the projections meet at: ordered, at-least-once delivery per
// stream with opaque resumable sequence tokens.
package stream

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/snackfleet-backend/internal/domain"
)

const (
	NamespaceMachine = "machine"
	NamespaceSnack   = "snack"
)

// Token is an opaque, stream-scoped position marker. The zero value means
// "from the beginning".
type Token string

// StreamKey addresses one stream: (namespace, aggregateId) for per-aggregate
// streams, (namespace, uuid.Nil) for the fleet-wide broadcast stream.
type StreamKey struct {
	Namespace string
	ID        uuid.UUID
}

func PerAggregate(namespace string, id uuid.UUID) StreamKey {
	return StreamKey{Namespace: namespace, ID: id}
}

func Broadcast(namespace string) StreamKey {
	return StreamKey{Namespace: namespace}
}

func (k StreamKey) IsBroadcast() bool {
	return k.ID == uuid.Nil
}

func (k StreamKey) String() string {
	if k.IsBroadcast() {
		return fmt.Sprintf("%s:all", k.Namespace)
	}
	return fmt.Sprintf("%s:%s", k.Namespace, k.ID)
}

// Delivery pairs an event with the token that resumes the subscription just
// past it.
type Delivery struct {
	Event domain.Event
	Token Token
}

// Bus is the transport contract. Delivery is ordered per stream and
// at-least-once; consumers must tolerate redelivery.
type Bus interface {
	Publish(ctx context.Context, key StreamKey, evt domain.Event) error
	// Subscribe resumes after `from` (or from the start when empty). The
	// returned channel closes when ctx is done.
	Subscribe(ctx context.Context, key StreamKey, from Token) (<-chan Delivery, error)
}

// NamespaceOf maps an event to its stream namespace by kind prefix.
func NamespaceOf(evt domain.Event) string {
	switch evt.Kind {
	case domain.EvtSnackInitialized, domain.EvtSnackUpdated, domain.EvtSnackDeleted, domain.EvtSnackCommandFailed:
		return NamespaceSnack
	default:
		return NamespaceMachine
	}
}
