package service

import (
	"context"

	"reviewshop/internal/domain/entity"
)

// IdentityResolver turns a request credential into a caller identity.
// A missing or invalid credential is not an error: the resolver returns
// a nil identity and each operation decides whether anonymity is
// acceptable.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (*entity.AuthenticatedIdentity, error)
}
