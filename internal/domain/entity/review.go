package entity

import (
	"time"
)

// Review is a customer-written product review
type Review struct {
	ID         string    `json:"id" firestore:"id"`
	Product    string    `json:"product" firestore:"product"`
	Message    string    `json:"message" firestore:"message"`
	Author     string    `json:"author" firestore:"author"`
	LikesCount int       `json:"likesCount" firestore:"likesCount"`
	LikedBy    []string  `json:"likedBy" firestore:"likedBy"`
	CreatedAt  time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt  time.Time `json:"updated_at" firestore:"updatedAt"`
}

// LikeState is the likedBy/likesCount projection of a review
type LikeState struct {
	LikesCount int      `json:"likesCount" firestore:"likesCount"`
	LikedBy    []string `json:"likedBy" firestore:"likedBy"`
}

func (s *LikeState) Liked(identity string) bool {
	for _, liker := range s.LikedBy {
		if liker == identity {
			return true
		}
	}
	return false
}

// Consistent reports whether the counter and the membership set still agree
func (s *LikeState) Consistent() bool {
	return s.LikesCount == len(s.LikedBy)
}
