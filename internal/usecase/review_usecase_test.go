package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterrepo "reviewshop/internal/adapter/repository"
	"reviewshop/internal/domain/entity"
	"reviewshop/internal/domain/repository"
	"reviewshop/pkg/errors"
)

type trackerRecorder struct {
	mu       sync.Mutex
	observed map[string]bool
}

func newTrackerRecorder() *trackerRecorder {
	return &trackerRecorder{observed: make(map[string]bool)}
}

func (t *trackerRecorder) Notify(name string, observed bool) {
	if !observed {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observed[name] = true
}

func (t *trackerRecorder) Observed(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.observed[name]
}

// flakyRepository injects a fixed number of transient failures in front
// of the conditional writes.
type flakyRepository struct {
	repository.ReviewRepository
	likeFailures   int32
	updateFailures int32
}

func (f *flakyRepository) RegisterLike(ctx context.Context, id entity.ReviewID, identity string) (*entity.LikeState, error) {
	if atomic.AddInt32(&f.likeFailures, -1) >= 0 {
		return nil, errors.Unavailable("Failed to register like", nil)
	}
	return f.ReviewRepository.RegisterLike(ctx, id, identity)
}

func (f *flakyRepository) UpdateMessage(ctx context.Context, id entity.ReviewID, author, message string) (int64, error) {
	if atomic.AddInt32(&f.updateFailures, -1) >= 0 {
		return 0, errors.Unavailable("Failed to update review", nil)
	}
	return f.ReviewRepository.UpdateMessage(ctx, id, author, message)
}

func identityOf(email string) *entity.AuthenticatedIdentity {
	return &entity.AuthenticatedIdentity{Email: email}
}

func seedReview(t *testing.T, repo repository.ReviewRepository, product, author string) *entity.Review {
	t.Helper()
	review := &entity.Review{
		Product:    product,
		Message:    "solid product",
		Author:     author,
		LikesCount: 0,
		LikedBy:    []string{},
	}
	require.NoError(t, repo.Create(context.Background(), review))
	return review
}

func TestCreateReviewBindsAuthorToIdentity(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	tracker := newTrackerRecorder()
	uc := NewReviewUseCase(repo, tracker, 0)

	review, err := uc.CreateReview(context.Background(), identityOf("a@x.com"), CreateReviewInput{
		Product:       "p1",
		Message:       "great",
		ClaimedAuthor: "victim@x.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "a@x.com", review.Author, "claimed author must never be authoritative")
	assert.True(t, tracker.Observed("forged_review"))

	stored, err := repo.GetByID(context.Background(), mustParseID(t, review.ID))
	require.NoError(t, err)
	assert.Equal(t, "p1", stored.Product)
	assert.Equal(t, "a@x.com", stored.Author)
	assert.Equal(t, 0, stored.LikesCount)
	assert.Empty(t, stored.LikedBy)
}

func TestCreateReviewAnonymousKeepsClaimedAuthor(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	tracker := newTrackerRecorder()
	uc := NewReviewUseCase(repo, tracker, 0)

	review, err := uc.CreateReview(context.Background(), nil, CreateReviewInput{
		Product:       "p1",
		Message:       "great",
		ClaimedAuthor: "a@x.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "a@x.com", review.Author)
	assert.False(t, tracker.Observed("forged_review"))
}

func TestCreateReviewRejectsBlankFields(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	uc := NewReviewUseCase(repo, newTrackerRecorder(), 0)

	cases := []struct {
		name  string
		input CreateReviewInput
	}{
		{"blank product", CreateReviewInput{Product: "  ", Message: "m", ClaimedAuthor: "a@x.com"}},
		{"blank message", CreateReviewInput{Product: "p1", Message: " \t", ClaimedAuthor: "a@x.com"}},
		{"anonymous without author", CreateReviewInput{Product: "p1", Message: "m"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.CreateReview(context.Background(), nil, tc.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, "INVALID_INPUT"))
		})
	}
}

func TestUpdateReviewRequiresIdentity(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	uc := NewReviewUseCase(repo, newTrackerRecorder(), 0)
	review := seedReview(t, repo, "p1", "a@x.com")

	_, err := uc.UpdateReview(context.Background(), nil, UpdateReviewInput{ID: review.ID, Message: "edited"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "UNAUTHORIZED"))
}

func TestUpdateReviewOwnReview(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	uc := NewReviewUseCase(repo, newTrackerRecorder(), 0)
	review := seedReview(t, repo, "p1", "a@x.com")

	updated, err := uc.UpdateReview(context.Background(), identityOf("a@x.com"), UpdateReviewInput{
		ID:      review.ID,
		Message: "edited",
	})

	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Message)
	assert.Equal(t, "a@x.com", updated.Author)
}

func TestUpdateReviewForeignReviewForbidden(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	tracker := newTrackerRecorder()
	uc := NewReviewUseCase(repo, tracker, 0)
	review := seedReview(t, repo, "p1", "a@x.com")

	_, err := uc.UpdateReview(context.Background(), identityOf("b@x.com"), UpdateReviewInput{
		ID:      review.ID,
		Message: "hijacked",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
	assert.True(t, tracker.Observed("forged_review"))

	stored, err := repo.GetByID(context.Background(), mustParseID(t, review.ID))
	require.NoError(t, err)
	assert.Equal(t, "solid product", stored.Message, "non-owner update must not mutate")
}

func TestUpdateReviewMissingReviewNotFound(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	uc := NewReviewUseCase(repo, newTrackerRecorder(), 0)

	_, err := uc.UpdateReview(context.Background(), identityOf("a@x.com"), UpdateReviewInput{
		ID:      entity.NewReviewID().String(),
		Message: "edited",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestUpdateReviewInvalidIdentifier(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	uc := NewReviewUseCase(repo, newTrackerRecorder(), 0)

	_, err := uc.UpdateReview(context.Background(), identityOf("a@x.com"), UpdateReviewInput{
		ID:      "not-a-review-id",
		Message: "edited",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, "INVALID_IDENTIFIER"))
}

func TestUpdateReviewRetriesTransientFailure(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	review := seedReview(t, repo, "p1", "a@x.com")
	flaky := &flakyRepository{ReviewRepository: repo, updateFailures: 1}
	uc := NewReviewUseCase(flaky, newTrackerRecorder(), 0)

	updated, err := uc.UpdateReview(context.Background(), identityOf("a@x.com"), UpdateReviewInput{
		ID:      review.ID,
		Message: "edited",
	})

	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Message)
}

func TestUpdateReviewGivesUpAfterOneRetry(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	review := seedReview(t, repo, "p1", "a@x.com")
	flaky := &flakyRepository{ReviewRepository: repo, updateFailures: 2}
	uc := NewReviewUseCase(flaky, newTrackerRecorder(), 0)

	_, err := uc.UpdateReview(context.Background(), identityOf("a@x.com"), UpdateReviewInput{
		ID:      review.ID,
		Message: "edited",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, "STORE_UNAVAILABLE"))
}

func TestLikeReviewHappyPath(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	uc := NewReviewUseCase(repo, newTrackerRecorder(), 0)
	review := seedReview(t, repo, "p1", "a@x.com")

	state, err := uc.LikeReview(context.Background(), identityOf("b@x.com"), review.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, state.LikesCount)
	assert.Equal(t, []string{"b@x.com"}, state.LikedBy)
	assert.True(t, state.Consistent())
}

func TestLikeReviewSequentialDuplicateRejected(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	uc := NewReviewUseCase(repo, newTrackerRecorder(), 0)
	review := seedReview(t, repo, "p1", "a@x.com")

	_, err := uc.LikeReview(context.Background(), identityOf("b@x.com"), review.ID)
	require.NoError(t, err)

	_, err = uc.LikeReview(context.Background(), identityOf("b@x.com"), review.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "ALREADY_LIKED"))

	state, err := repo.LikeState(context.Background(), mustParseID(t, review.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, state.LikesCount)
	assert.Equal(t, []string{"b@x.com"}, state.LikedBy)
}

func TestLikeReviewInvalidIdentifier(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	uc := NewReviewUseCase(repo, newTrackerRecorder(), 0)

	for _, raw := range []string{"", "short", "zzzzzzzzzzzzzzzzzzzzzzzz", "5f1a7c9e2b3d4f5061728394aa"} {
		_, err := uc.LikeReview(context.Background(), identityOf("b@x.com"), raw)
		require.Error(t, err, "id %q must be rejected", raw)
		assert.True(t, errors.Is(err, "INVALID_IDENTIFIER"))
	}
}

func TestLikeReviewRequiresIdentity(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	uc := NewReviewUseCase(repo, newTrackerRecorder(), 0)
	review := seedReview(t, repo, "p1", "a@x.com")

	_, err := uc.LikeReview(context.Background(), nil, review.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "UNAUTHORIZED"))

	_, err = uc.LikeReview(context.Background(), identityOf(""), review.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "UNAUTHORIZED"))
}

func TestLikeReviewMissingReviewNotFound(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	uc := NewReviewUseCase(repo, newTrackerRecorder(), 0)

	_, err := uc.LikeReview(context.Background(), identityOf("b@x.com"), entity.NewReviewID().String())
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestLikeReviewConcurrentDuplicates(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	uc := NewReviewUseCase(repo, newTrackerRecorder(), 0)
	review := seedReview(t, repo, "p1", "a@x.com")

	const attempts = 16
	var successes int32
	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := uc.LikeReview(context.Background(), identityOf("b@x.com"), review.ID); err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes, "exactly one of the concurrent likes may land")

	state, err := repo.LikeState(context.Background(), mustParseID(t, review.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, state.LikesCount)
	assert.Equal(t, []string{"b@x.com"}, state.LikedBy)
	assert.True(t, state.Consistent())
}

func TestLikeReviewDelayModeKeepsSetSemantics(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	tracker := newTrackerRecorder()
	uc := NewReviewUseCase(repo, tracker, 20*time.Millisecond)
	review := seedReview(t, repo, "p1", "a@x.com")

	// Both goroutines pass the read-phase check before either write
	// lands; the write predicate must deflect the loser.
	const attempts = 8
	var successes int32
	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := uc.LikeReview(context.Background(), identityOf("b@x.com"), review.ID); err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes)

	state, err := repo.LikeState(context.Background(), mustParseID(t, review.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, state.LikesCount)
	assert.Equal(t, []string{"b@x.com"}, state.LikedBy)
	assert.True(t, tracker.Observed("timing_attack"), "deflected duplicates during the window are reported")
}

func TestLikeReviewDistinctIdentitiesAllCount(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	uc := NewReviewUseCase(repo, newTrackerRecorder(), 0)
	review := seedReview(t, repo, "p1", "a@x.com")

	emails := []string{"b@x.com", "c@x.com", "d@x.com", "e@x.com"}
	var wg sync.WaitGroup
	for _, email := range emails {
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			_, err := uc.LikeReview(context.Background(), identityOf(email), review.ID)
			assert.NoError(t, err)
		}(email)
	}
	wg.Wait()

	state, err := repo.LikeState(context.Background(), mustParseID(t, review.ID))
	require.NoError(t, err)
	assert.Equal(t, len(emails), state.LikesCount)
	assert.ElementsMatch(t, emails, state.LikedBy)
	assert.True(t, state.Consistent())
}

func TestLikeReviewRetriesTransientFailure(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	review := seedReview(t, repo, "p1", "a@x.com")
	flaky := &flakyRepository{ReviewRepository: repo, likeFailures: 1}
	uc := NewReviewUseCase(flaky, newTrackerRecorder(), 0)

	state, err := uc.LikeReview(context.Background(), identityOf("b@x.com"), review.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, state.LikesCount)
}

func TestListReviewsByProduct(t *testing.T) {
	repo := adapterrepo.NewMemoryReviewRepository()
	uc := NewReviewUseCase(repo, newTrackerRecorder(), 0)
	seedReview(t, repo, "p1", "a@x.com")
	seedReview(t, repo, "p1", "b@x.com")
	seedReview(t, repo, "p2", "c@x.com")

	reviews, total, err := uc.ListReviews(context.Background(), "p1", 1, 20)

	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, reviews, 2)
}

func mustParseID(t *testing.T, raw string) entity.ReviewID {
	t.Helper()
	id, err := entity.ParseReviewID(raw)
	require.NoError(t, err)
	return id
}
