// Package auth checks credentials against the configured flat user list.
package auth

import (
	"crypto/subtle"

	"imgproxy/internal/config"
)

type account struct {
	password     string
	passwordHash string
}

// Authenticator holds an immutable snapshot of configured users.
type Authenticator struct {
	users map[string]account
}

// New builds an Authenticator. Later duplicates are ignored; config
// validation rejects them before a server starts.
func New(users []config.User) *Authenticator {
	a := &Authenticator{users: make(map[string]account, len(users))}
	for _, u := range users {
		if u.Username == "" {
			continue
		}
		if _, exists := a.users[u.Username]; exists {
			continue
		}
		a.users[u.Username] = account{password: u.Password, passwordHash: u.PasswordHash}
	}
	return a
}

// Authenticate reports whether username/password match a configured user.
// Usernames are case-sensitive.
func (a *Authenticator) Authenticate(username, password string) bool {
	if a == nil || username == "" || password == "" {
		return false
	}
	acct, ok := a.users[username]
	if !ok {
		return false
	}
	if acct.passwordHash != "" {
		return VerifyPassword(acct.passwordHash, password)
	}
	return subtle.ConstantTimeCompare([]byte(acct.password), []byte(password)) == 1
}

// Len returns the number of distinct configured users.
func (a *Authenticator) Len() int {
	if a == nil {
		return 0
	}
	return len(a.users)
}
