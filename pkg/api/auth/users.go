package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Credential errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// User is one API account. Accounts live in the configuration file;
// `vaultfs user` manages them there.
type User struct {
	// Username identifies the account.
	Username string `mapstructure:"username" yaml:"username" json:"username" validate:"required"`

	// PasswordHash is the bcrypt hash of the account password.
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash" json:"password_hash" validate:"required"`

	// Role is the account's access grade.
	Role Role `mapstructure:"role" yaml:"role" json:"role" validate:"required,oneof=admin editor viewer"`
}

// Directory answers credential and account lookups for a fixed set of
// users.
type Directory struct {
	users map[string]User
}

// NewDirectory builds a directory from the configured users. Later
// duplicates of a username win, matching how repeated config keys merge.
func NewDirectory(users []User) *Directory {
	byName := make(map[string]User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}
	return &Directory{users: byName}
}

// Lookup returns the account for a username.
func (d *Directory) Lookup(username string) (User, error) {
	user, ok := d.users[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// ValidateCredentials checks a username/password pair against the
// directory. A missing user and a wrong password are indistinguishable
// to the caller.
func (d *Directory) ValidateCredentials(username, password string) (User, error) {
	user, ok := d.users[username]
	if !ok {
		// Burn a comparison so missing users cost the same as wrong
		// passwords.
		_ = bcrypt.CompareHashAndPassword(phantomHash, []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Len returns the number of configured accounts.
func (d *Directory) Len() int {
	return len(d.users)
}

// phantomHash is a valid bcrypt hash of an unguessable value, compared
// against when the username does not exist.
var phantomHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("vaultfs-phantom"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()

// HashPassword returns the bcrypt hash of a password, for generating
// config entries.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
