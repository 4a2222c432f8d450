package handler

import (
	"reviewshop/internal/domain/service"
	"reviewshop/internal/usecase"
)

var (
	reviewHandler *ReviewHandler
)

func Setup(
	reviewUseCase *usecase.ReviewUseCase,
	tracker service.ChallengeTracker,
) {
	reviewHandler = NewReviewHandler(reviewUseCase, tracker)
}

func GetReviewHandler() *ReviewHandler {
	return reviewHandler
}
