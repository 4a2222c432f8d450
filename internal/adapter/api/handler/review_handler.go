package handler

import (
	"encoding/json"
	"regexp"

	"github.com/labstack/echo/v4"

	"reviewshop/internal/adapter/api/middleware"
	"reviewshop/internal/domain/service"
	"reviewshop/internal/usecase"
	"reviewshop/pkg/errors"
	"reviewshop/pkg/response"
	"reviewshop/pkg/utils"
)

type ReviewHandler struct {
	reviewUseCase *usecase.ReviewUseCase
	tracker       service.ChallengeTracker
}

func NewReviewHandler(reviewUseCase *usecase.ReviewUseCase, tracker service.ChallengeTracker) *ReviewHandler {
	return &ReviewHandler{
		reviewUseCase: reviewUseCase,
		tracker:       tracker,
	}
}

var productIDPattern = regexp.MustCompile(`^[\w-]+$`)

// stringField decodes a JSON field that must be a scalar string. An
// object or array submitted where a string is expected is the classic
// operator-injection vector against a permissive document store, so
// anything non-string is refused outright, never coerced.
func stringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

type createReviewRequest struct {
	Message json.RawMessage `json:"message" validate:"required"`
	Author  json.RawMessage `json:"author"`
}

func (h *ReviewHandler) CreateReview(c echo.Context) error {
	productID := c.Param("productId")
	if productID == "" || !productIDPattern.MatchString(productID) {
		return response.Error(c, errors.InvalidIdentifier("Invalid product ID", nil))
	}

	var req createReviewRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.InvalidInput("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, ok := stringField(req.Message)
	if !ok {
		h.tracker.Notify(service.ChallengeNoSQLInjection, true)
		return response.Error(c, errors.InvalidInput("Message must be a string", nil))
	}
	author, ok := stringField(req.Author)
	if !ok {
		h.tracker.Notify(service.ChallengeNoSQLInjection, true)
		return response.Error(c, errors.InvalidInput("Author must be a string", nil))
	}

	_, err := h.reviewUseCase.CreateReview(c.Request().Context(), middleware.IdentityFrom(c), usecase.CreateReviewInput{
		Product:       productID,
		Message:       message,
		ClaimedAuthor: author,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, echo.Map{"status": "success"})
}

type updateReviewRequest struct {
	ID      json.RawMessage `json:"id" validate:"required"`
	Message json.RawMessage `json:"message" validate:"required"`
}

func (h *ReviewHandler) UpdateReview(c echo.Context) error {
	var req updateReviewRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.InvalidInput("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	id, ok := stringField(req.ID)
	if !ok {
		h.tracker.Notify(service.ChallengeNoSQLInjection, true)
		return response.Error(c, errors.InvalidIdentifier("Invalid review ID format", nil))
	}
	message, ok := stringField(req.Message)
	if !ok {
		h.tracker.Notify(service.ChallengeNoSQLInjection, true)
		return response.Error(c, errors.InvalidInput("Message must be a string", nil))
	}

	review, err := h.reviewUseCase.UpdateReview(c.Request().Context(), middleware.IdentityFrom(c), usecase.UpdateReviewInput{
		ID:      id,
		Message: message,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, review)
}

type likeReviewRequest struct {
	ID json.RawMessage `json:"id" validate:"required"`
}

func (h *ReviewHandler) LikeReview(c echo.Context) error {
	var req likeReviewRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.InvalidInput("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	id, ok := stringField(req.ID)
	if !ok {
		h.tracker.Notify(service.ChallengeNoSQLInjection, true)
		return response.Error(c, errors.InvalidIdentifier("Invalid review ID", nil))
	}

	state, err := h.reviewUseCase.LikeReview(c.Request().Context(), middleware.IdentityFrom(c), id)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, state)
}

func (h *ReviewHandler) GetReviews(c echo.Context) error {
	productID := c.Param("productId")
	if productID == "" || !productIDPattern.MatchString(productID) {
		return response.Error(c, errors.InvalidIdentifier("Invalid product ID", nil))
	}

	params := utils.GetPaginationParams(c)

	reviews, total, err := h.reviewUseCase.ListReviews(c.Request().Context(), productID, params.Page, params.PageSize)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, reviews, total, params.Page, params.PageSize)
}
