package turn

import (
	"context"

	"github.com/okian/arena/internal/domain/model"
)

// RoundResolver is called once both participants have a move for a turn.
// An implementation may compute damage, advance the turn or finish the
// match through the Store. Its error is logged; the move stays accepted.
type RoundResolver interface {
	ResolveRound(ctx context.Context, match *model.Match, moves []model.Move) error
}

// RoundResolverFunc adapts a function to RoundResolver.
type RoundResolverFunc func(ctx context.Context, match *model.Match, moves []model.Move) error

// ResolveRound implements RoundResolver.
func (f RoundResolverFunc) ResolveRound(ctx context.Context, match *model.Match, moves []model.Move) error {
	return f(ctx, match, moves)
}

// NopResolver leaves the round unresolved: no damage, no turn advance.
type NopResolver struct{}

// ResolveRound implements RoundResolver.
func (NopResolver) ResolveRound(context.Context, *model.Match, []model.Move) error { return nil }
