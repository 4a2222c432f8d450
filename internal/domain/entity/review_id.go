package entity

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// ReviewID is the opaque identifier of a review document. The backing
// stores use different native id representations (raw hex string vs
// structured object id), so the rest of the system only ever sees this
// validated wrapper and its string projection.
type ReviewID struct {
	value string
}

const reviewIDLength = 24

// ParseReviewID accepts only the store's canonical identifier syntax:
// exactly 24 lowercase hex characters. Anything else is rejected, never
// coerced; a caller-controlled structured value can therefore never
// reach a store filter.
func ParseReviewID(raw string) (ReviewID, error) {
	if len(raw) != reviewIDLength {
		return ReviewID{}, fmt.Errorf("review id must be %d characters, got %d", reviewIDLength, len(raw))
	}
	for _, c := range raw {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return ReviewID{}, fmt.Errorf("review id contains non-hex character %q", c)
		}
	}
	return ReviewID{value: raw}, nil
}

// NewReviewID mints a fresh identifier in the same syntax, for store
// drivers that do not assign ids natively.
func NewReviewID() ReviewID {
	u := uuid.New()
	return ReviewID{value: hex.EncodeToString(u[:reviewIDLength/2])}
}

func (id ReviewID) String() string {
	return id.value
}

func (id ReviewID) IsZero() bool {
	return id.value == ""
}
