package duel

import (
	"context"

	"github.com/goblingibber/arena/src/domain/shared"
)

// Registry maps room ids to live sessions. Delete is the sole cancellation
// mechanism: a removed session receives no further ticks.
type Registry interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id shared.RoomID) (*Session, error)
	Delete(ctx context.Context, id shared.RoomID) error
	List(ctx context.Context) ([]*Session, error)
}
