package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/alerta-utec/campuswatch/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SimAuthenticator verifies credentials against an in-process registry.
// Passwords are stored bcrypt-hashed; tokens are opaque random strings.
type SimAuthenticator struct {
	mu    sync.RWMutex
	users map[string]simAccount
}

type simAccount struct {
	user domain.User
	hash []byte
}

// NewSimAuthenticator creates an empty registry.
func NewSimAuthenticator() *SimAuthenticator {
	return &SimAuthenticator{users: make(map[string]simAccount)}
}

// Register adds an account to the registry, replacing any existing account
// for the same email.
func (a *SimAuthenticator) Register(user domain.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[user.Email] = simAccount{user: user, hash: hash}
	return nil
}

// Login implements Authenticator.
func (a *SimAuthenticator) Login(_ context.Context, email, password string) (domain.User, string, error) {
	a.mu.RLock()
	account, ok := a.users[email]
	a.mu.RUnlock()

	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(account.hash, []byte(password)); err != nil {
		return domain.User{}, "", ErrInvalidCredentials
	}

	return account.user, "sim-" + uuid.NewString(), nil
}

// SeedDemoAccounts registers one demo account per role for local
// development, all with the given password.
func (a *SimAuthenticator) SeedDemoAccounts(password string) error {
	demo := []domain.User{
		{Email: "student@utec.edu.pe", Role: domain.RoleStudent, FirstName: "Estudiante", Code: "202200001"},
		{Email: "worker@utec.edu.pe", Role: domain.RoleWorker, FirstName: "Trabajador"},
		{Email: "supervisor@utec.edu.pe", Role: domain.RoleSupervisor, FirstName: "Supervisor"},
	}
	for _, u := range demo {
		if err := a.Register(u, password); err != nil {
			return err
		}
	}
	return nil
}
