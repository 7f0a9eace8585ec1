package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPassword = 8
	maxPassword = 72 // bcrypt limit
)

// Bootstrap creates the configured operator unless an account with the same
// email or username already exists. It reports whether one was created.
func Bootstrap(ctx context.Context, repo *Repo, username, email, password string) (bool, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" || password == "" {
		return false, nil
	}
	if len(password) < minPassword || len(password) > maxPassword {
		return false, fmt.Errorf("bootstrap operator: password must be %d-%d chars", minPassword, maxPassword)
	}

	if op, err := repo.GetByEmail(ctx, email); err != nil || op != nil {
		return false, err
	}
	if op, err := repo.GetByUsername(ctx, username); err != nil || op != nil {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	err = repo.CreateOperator(ctx, Operator{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
