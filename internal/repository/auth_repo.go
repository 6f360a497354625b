package repository

import "context"

// RoleLookup resolves the role of an authenticated principal. Ingest only
// accepts writes from principals with the "patient" role writing their own
// data.
type RoleLookup interface {
	// RoleFor returns "" with no error when the principal is unknown.
	RoleFor(ctx context.Context, userID string) (string, error)
}
