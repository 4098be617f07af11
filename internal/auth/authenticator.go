// Package auth identifies callers at the HTTP boundary. The core services
// never read authentication state themselves; they take the acting user's ID
// as an explicit parameter, and this package is what produces that ID.
package auth

import (
	"context"

	"github.com/tablemates/gamenight/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// The abstraction allows swapping auth methods (password, OAuth, passkeys)
// without changing the HTTP layer.
type Authenticator interface {
	// Register creates a new user account with the given email and credential.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
