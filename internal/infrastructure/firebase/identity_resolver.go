package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"reviewshop/internal/domain/entity"
	"reviewshop/pkg/logger"
)

// FirebaseIdentityResolver resolves bearer tokens through Firebase Auth.
type FirebaseIdentityResolver struct {
	client *auth.Client
}

func NewFirebaseIdentityResolver(client *auth.Client) *FirebaseIdentityResolver {
	return &FirebaseIdentityResolver{
		client: client,
	}
}

// Resolve verifies the id token and extracts the email claim. Missing or
// invalid credentials resolve to a nil identity, never to an error; the
// operations decide whether anonymity is acceptable.
func (r *FirebaseIdentityResolver) Resolve(ctx context.Context, credential string) (*entity.AuthenticatedIdentity, error) {
	if credential == "" {
		return nil, nil
	}

	token, err := r.client.VerifyIDToken(ctx, credential)
	if err != nil {
		logger.Debug("Token verification failed: %v", err)
		return nil, nil
	}

	email, _ := token.Claims["email"].(string)
	if email == "" {
		return nil, nil
	}

	return &entity.AuthenticatedIdentity{Email: email}, nil
}
