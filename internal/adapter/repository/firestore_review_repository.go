package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"reviewshop/internal/domain/entity"
	"reviewshop/internal/domain/repository"
	"reviewshop/pkg/errors"
)

type firestoreReviewRepository struct {
	client *firestore.Client
}

func NewFirestoreReviewRepository(client *firestore.Client) repository.ReviewRepository {
	return &firestoreReviewRepository{
		client: client,
	}
}

func (r *firestoreReviewRepository) docRef(id entity.ReviewID) *firestore.DocumentRef {
	return r.client.Collection("reviews").Doc(id.String())
}

func (r *firestoreReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	// Firestore does not assign ids in the store's canonical syntax, so
	// the adapter mints one itself.
	if review.ID == "" {
		review.ID = entity.NewReviewID().String()
	}

	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now

	_, err := r.client.Collection("reviews").Doc(review.ID).Set(ctx, review)
	if err != nil {
		return classifyFirestoreError("Failed to create review", err)
	}

	return nil
}

func (r *firestoreReviewRepository) GetByID(ctx context.Context, id entity.ReviewID) (*entity.Review, error) {
	doc, err := r.docRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Review", err)
		}
		return nil, classifyFirestoreError("Failed to get review", err)
	}

	var review entity.Review
	if err := doc.DataTo(&review); err != nil {
		return nil, errors.Internal("Failed to parse review data", err)
	}

	return &review, nil
}

func (r *firestoreReviewRepository) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.Review, int64, error) {
	base := r.client.Collection("reviews").Where("product", "==", productID)

	// Keys-only pass for the total.
	countIter := base.Select().Documents(ctx)
	defer countIter.Stop()

	var total int64
	for {
		_, err := countIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, classifyFirestoreError("Failed to count reviews", err)
		}
		total++
	}

	iter := base.OrderBy("createdAt", firestore.Desc).Offset(offset).Limit(limit).Documents(ctx)
	defer iter.Stop()

	reviews := []*entity.Review{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, classifyFirestoreError("Failed to list reviews", err)
		}

		var review entity.Review
		if err := doc.DataTo(&review); err != nil {
			return nil, 0, errors.Internal("Failed to parse review data", err)
		}
		reviews = append(reviews, &review)
	}

	return reviews, total, nil
}

func (r *firestoreReviewRepository) LikeState(ctx context.Context, id entity.ReviewID) (*entity.LikeState, error) {
	doc, err := r.docRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Review", err)
		}
		return nil, classifyFirestoreError("Failed to get like state", err)
	}

	var state entity.LikeState
	if err := doc.DataTo(&state); err != nil {
		return nil, errors.Internal("Failed to parse review data", err)
	}
	if state.LikedBy == nil {
		state.LikedBy = []string{}
	}

	return &state, nil
}

// RegisterLike runs the membership check and both mutations inside one
// transaction; Firestore re-runs the function on contention, so the
// absence check holds at commit time. ArrayUnion keeps likedBy a set.
func (r *firestoreReviewRepository) RegisterLike(ctx context.Context, id entity.ReviewID, identity string) (*entity.LikeState, error) {
	var result *entity.LikeState

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(r.docRef(id))
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Review", err)
			}
			return err
		}

		var state entity.LikeState
		if err := doc.DataTo(&state); err != nil {
			return errors.Internal("Failed to parse review data", err)
		}
		if state.Liked(identity) {
			return errors.AlreadyLiked(nil)
		}

		state.LikedBy = append(state.LikedBy, identity)
		state.LikesCount++
		result = &state

		return tx.Update(r.docRef(id), []firestore.Update{
			{Path: "likesCount", Value: state.LikesCount},
			{Path: "likedBy", Value: firestore.ArrayUnion(identity)},
			{Path: "updatedAt", Value: time.Now()},
		})
	})
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, appErr
		}
		return nil, classifyFirestoreError("Failed to register like", err)
	}

	return result, nil
}

func (r *firestoreReviewRepository) UpdateMessage(ctx context.Context, id entity.ReviewID, author, message string) (int64, error) {
	var matched int64

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(r.docRef(id))
		if err != nil {
			if status.Code(err) == codes.NotFound {
				matched = 0
				return nil
			}
			return err
		}

		var review entity.Review
		if err := doc.DataTo(&review); err != nil {
			return errors.Internal("Failed to parse review data", err)
		}
		if review.Author != author {
			matched = 0
			return nil
		}

		matched = 1
		return tx.Update(r.docRef(id), []firestore.Update{
			{Path: "message", Value: message},
			{Path: "updatedAt", Value: time.Now()},
		})
	})
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return 0, appErr
		}
		return 0, classifyFirestoreError("Failed to update review", err)
	}

	return matched, nil
}

func classifyFirestoreError(message string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
		return errors.Unavailable(message, err)
	default:
		return errors.Internal(message, err)
	}
}
