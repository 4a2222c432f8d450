package usecase

import (
	"context"
	"strings"
	"time"

	"reviewshop/internal/domain/entity"
	"reviewshop/internal/domain/repository"
	"reviewshop/internal/domain/service"
	"reviewshop/pkg/errors"
	"reviewshop/pkg/logger"
)

type ReviewUseCase struct {
	reviewRepo repository.ReviewRepository
	tracker    service.ChallengeTracker

	// observationDelay > 0 keeps the legacy pause between the read
	// phase of LikeReview and its conditional write. The duplicate-like
	// invariant holds either way; only the timing window is observable.
	observationDelay time.Duration
}

func NewReviewUseCase(
	reviewRepo repository.ReviewRepository,
	tracker service.ChallengeTracker,
	observationDelay time.Duration,
) *ReviewUseCase {
	return &ReviewUseCase{
		reviewRepo:       reviewRepo,
		tracker:          tracker,
		observationDelay: observationDelay,
	}
}

type CreateReviewInput struct {
	Product       string
	Message       string
	ClaimedAuthor string
}

// CreateReview inserts a fresh review. The author field the client
// submits is a claim, never authoritative: when the caller carries a
// resolved identity the persisted author is that identity, and a
// disagreeing claim is only reported to the challenge tracker.
func (uc *ReviewUseCase) CreateReview(ctx context.Context, identity *entity.AuthenticatedIdentity, input CreateReviewInput) (*entity.Review, error) {
	product := strings.TrimSpace(input.Product)
	message := strings.TrimSpace(input.Message)
	claimed := strings.TrimSpace(input.ClaimedAuthor)

	if product == "" {
		return nil, errors.InvalidInput("Product is required", nil)
	}
	if message == "" {
		return nil, errors.InvalidInput("Message is required", nil)
	}

	author := claimed
	if !identity.Anonymous() {
		forged := claimed != "" && claimed != identity.Email
		uc.tracker.Notify(service.ChallengeForgedReview, forged)
		if forged {
			logger.Warn("Review author claim %q ignored for authenticated user %s", claimed, identity.Email)
		}
		author = identity.Email
	}
	if author == "" {
		return nil, errors.InvalidInput("Author is required", nil)
	}

	review := &entity.Review{
		Product:    product,
		Message:    message,
		Author:     author,
		LikesCount: 0,
		LikedBy:    []string{},
	}

	if err := uc.reviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}

	return review, nil
}

type UpdateReviewInput struct {
	ID      string
	Message string
}

// UpdateReview rewrites the message of the caller's own review. The
// store predicate is (id AND author), so a single conditional write
// either hits exactly the caller's review or hits nothing; it can never
// silently target another author's document.
func (uc *ReviewUseCase) UpdateReview(ctx context.Context, identity *entity.AuthenticatedIdentity, input UpdateReviewInput) (*entity.Review, error) {
	if identity.Anonymous() {
		return nil, errors.Unauthorized("Authentication required", nil)
	}

	id, err := entity.ParseReviewID(input.ID)
	if err != nil {
		return nil, errors.InvalidIdentifier("Invalid review ID format", err)
	}

	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, errors.InvalidInput("Message is required", nil)
	}

	matched, err := uc.reviewRepo.UpdateMessage(ctx, id, identity.Email, message)
	if errors.Is(err, "STORE_UNAVAILABLE") {
		logger.Warn("Retrying review update after transient store failure: %v", err)
		matched, err = uc.reviewRepo.UpdateMessage(ctx, id, identity.Email, message)
	}
	if err != nil {
		return nil, err
	}

	// A conditional single-document write can only ever match one
	// document; more than one means the filter was tampered with.
	uc.tracker.Notify(service.ChallengeNoSQLInjection, matched > 1)

	if matched == 0 {
		existing, getErr := uc.reviewRepo.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		uc.tracker.Notify(service.ChallengeForgedReview, existing.Author != identity.Email)
		logger.Warn("User %s attempted update of review %s owned by %s", identity.Email, id, existing.Author)
		return nil, errors.Forbidden("Review belongs to another author", nil)
	}

	return uc.reviewRepo.GetByID(ctx, id)
}

// LikeReview records that the caller likes a review, at most once per
// identity. The membership read decides AlreadyLiked up front, but the
// authoritative check is inside the store's conditional write: whoever
// loses the race during the optional delay window fails the predicate
// instead of producing a duplicate entry.
func (uc *ReviewUseCase) LikeReview(ctx context.Context, identity *entity.AuthenticatedIdentity, rawID string) (*entity.LikeState, error) {
	id, err := entity.ParseReviewID(rawID)
	if err != nil {
		return nil, errors.InvalidIdentifier("Invalid review ID", err)
	}

	if identity.Anonymous() {
		return nil, errors.Unauthorized("Authentication required", nil)
	}

	state, err := uc.reviewRepo.LikeState(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Liked(identity.Email) {
		return nil, errors.AlreadyLiked(nil)
	}

	if uc.observationDelay > 0 {
		// Legacy observation window between read and write.
		time.Sleep(uc.observationDelay)
	}

	newState, err := uc.reviewRepo.RegisterLike(ctx, id, identity.Email)
	if errors.Is(err, "STORE_UNAVAILABLE") {
		logger.Warn("Retrying like write after transient store failure: %v", err)
		newState, err = uc.reviewRepo.RegisterLike(ctx, id, identity.Email)
	}
	if err != nil {
		if errors.Is(err, "ALREADY_LIKED") {
			// A concurrent duplicate landed during the window and was
			// deflected by the write predicate.
			uc.tracker.Notify(service.ChallengeTimingAttack, uc.observationDelay > 0)
		}
		return nil, err
	}

	uc.tracker.Notify(service.ChallengeTimingAttack, !newState.Consistent())

	return newState, nil
}

// ListReviews returns the reviews of one product, newest first.
func (uc *ReviewUseCase) ListReviews(ctx context.Context, productID string, page, limit int) ([]*entity.Review, int64, error) {
	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	return uc.reviewRepo.ListByProduct(ctx, productID, limit, offset)
}
