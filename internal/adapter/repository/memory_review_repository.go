package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"reviewshop/internal/domain/entity"
	"reviewshop/internal/domain/repository"
	"reviewshop/pkg/errors"
)

// MemoryReviewRepository is a mutex-guarded in-memory driver. It mirrors
// the conditional-write semantics of the real stores, which makes it the
// store used by tests and by local runs without a backing service.
type MemoryReviewRepository struct {
	mu      sync.Mutex
	reviews map[string]*entity.Review
}

func NewMemoryReviewRepository() *MemoryReviewRepository {
	return &MemoryReviewRepository{
		reviews: make(map[string]*entity.Review),
	}
}

var _ repository.ReviewRepository = (*MemoryReviewRepository)(nil)

func clone(r *entity.Review) *entity.Review {
	c := *r
	c.LikedBy = append([]string{}, r.LikedBy...)
	return &c
}

func (m *MemoryReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if review.ID == "" {
		review.ID = entity.NewReviewID().String()
	}
	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now

	m.reviews[review.ID] = clone(review)
	return nil
}

func (m *MemoryReviewRepository) GetByID(ctx context.Context, id entity.ReviewID) (*entity.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	review, ok := m.reviews[id.String()]
	if !ok {
		return nil, errors.NotFound("Review", nil)
	}
	return clone(review), nil
}

func (m *MemoryReviewRepository) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.Review, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matching := []*entity.Review{}
	for _, review := range m.reviews {
		if review.Product == productID {
			matching = append(matching, clone(review))
		}
	}
	sort.Slice(matching, func(i, j int) bool {
		return matching[i].CreatedAt.After(matching[j].CreatedAt)
	})

	total := int64(len(matching))
	if offset >= len(matching) {
		return []*entity.Review{}, total, nil
	}
	end := offset + limit
	if end > len(matching) {
		end = len(matching)
	}
	return matching[offset:end], total, nil
}

func (m *MemoryReviewRepository) LikeState(ctx context.Context, id entity.ReviewID) (*entity.LikeState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	review, ok := m.reviews[id.String()]
	if !ok {
		return nil, errors.NotFound("Review", nil)
	}
	return &entity.LikeState{
		LikesCount: review.LikesCount,
		LikedBy:    append([]string{}, review.LikedBy...),
	}, nil
}

func (m *MemoryReviewRepository) RegisterLike(ctx context.Context, id entity.ReviewID, identity string) (*entity.LikeState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	review, ok := m.reviews[id.String()]
	if !ok {
		return nil, errors.NotFound("Review", nil)
	}

	// Membership re-check at write time, under the lock. Counter and
	// membership move together.
	for _, liker := range review.LikedBy {
		if liker == identity {
			return nil, errors.AlreadyLiked(nil)
		}
	}

	review.LikedBy = append(review.LikedBy, identity)
	review.LikesCount++
	review.UpdatedAt = time.Now()

	return &entity.LikeState{
		LikesCount: review.LikesCount,
		LikedBy:    append([]string{}, review.LikedBy...),
	}, nil
}

func (m *MemoryReviewRepository) UpdateMessage(ctx context.Context, id entity.ReviewID, author, message string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	review, ok := m.reviews[id.String()]
	if !ok || review.Author != author {
		return 0, nil
	}

	review.Message = message
	review.UpdatedAt = time.Now()
	return 1, nil
}
