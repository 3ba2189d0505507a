/*
bootstrap.go - First-run admin seeding

PURPOSE:
  A fresh database has no users, so nobody can log in to create users.
  Bootstrap upserts the configured super admin at startup. The upsert is
  idempotent: on every boot it either inserts the account or leaves the
  existing one (including a changed password) untouched, so operators
  recover a locked-out deployment by wiping just the admin row, not by
  editing the database by hand.
*/
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/frotagov/fuel-ledger/directory"
)

// Bootstrap ensures the super admin account exists. Returns true when the
// account was created on this call.
func Bootstrap(ctx context.Context, dir directory.Directory, username, password string) (bool, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	return dir.UpsertUser(ctx, directory.User{
		ID:           uuid.NewString(),
		Name:         "Platform Administrator",
		Username:     username,
		PasswordHash: hash,
		Role:         directory.RoleSuperAdmin,
		CreatedAt:    time.Now().UTC(),
	})
}
