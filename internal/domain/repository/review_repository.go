package repository

import (
	"context"

	"reviewshop/internal/domain/entity"
)

// ReviewRepository is the port over the persisted review documents.
// Filters behind every method are restricted to equality and
// set-membership predicates over validated scalars; callers can never
// hand the store a structured value.
type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	GetByID(ctx context.Context, id entity.ReviewID) (*entity.Review, error)
	ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.Review, int64, error)

	// LikeState fetches only the likedBy/likesCount projection.
	LikeState(ctx context.Context, id entity.ReviewID) (*entity.LikeState, error)

	// RegisterLike atomically adds identity to likedBy and increments
	// likesCount, but only if identity is still absent at write time.
	// Returns the resulting state, errors.AlreadyLiked when the
	// membership guard fails, errors.NotFound when the document is gone.
	RegisterLike(ctx context.Context, id entity.ReviewID, identity string) (*entity.LikeState, error)

	// UpdateMessage applies a new message through a single conditional
	// write whose predicate is (id AND author). Returns how many
	// documents matched: 0 means the caller's own review was not there,
	// and the caller decides whether that is Forbidden or NotFound.
	UpdateMessage(ctx context.Context, id entity.ReviewID, author, message string) (int64, error)
}
