// Package user holds the pre-provisioned uploader accounts.
package user

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// User is an account provisioned in the configuration file.
type User struct {
	Name  string
	ID    int64
	Token string
	// URLs are the public base URLs uploads of this user are served from.
	URLs []string
}

// BaseURL returns one of the user's public base URLs, chosen at random.
func (u User) BaseURL() string {
	if len(u.URLs) == 0 {
		return ""
	}
	return u.URLs[rand.IntN(len(u.URLs))]
}

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("user not found")

// ErrDuplicate is returned when two accounts share an id or a name.
var ErrDuplicate = errors.New("duplicate user")

// ErrInvalidName is returned for names that are not usable as a single
// directory name under the image root.
var ErrInvalidName = errors.New("invalid user name")

// Directory is an immutable lookup table of users, built once at startup.
type Directory struct {
	byID  map[int64]User
	names map[string]struct{}
}

// NewDirectory builds a Directory from the given users.
func NewDirectory(users []User) (*Directory, error) {
	d := &Directory{
		byID:  make(map[int64]User, len(users)),
		names: make(map[string]struct{}, len(users)),
	}
	for _, u := range users {
		if err := validName(u.Name); err != nil {
			return nil, fmt.Errorf("user with id %d: %w", u.ID, err)
		}
		if u.Token == "" {
			return nil, fmt.Errorf("user %q has no token", u.Name)
		}
		if _, ok := d.byID[u.ID]; ok {
			return nil, fmt.Errorf("%w: id %d", ErrDuplicate, u.ID)
		}
		if _, ok := d.names[u.Name]; ok {
			return nil, fmt.Errorf("%w: name %q", ErrDuplicate, u.Name)
		}
		u.URLs = append([]string(nil), u.URLs...)
		d.byID[u.ID] = u
		d.names[u.Name] = struct{}{}
	}
	return d, nil
}

// ByID fetches a user by numeric id.
func (d *Directory) ByID(id int64) (User, error) {
	u, ok := d.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// Len returns the number of provisioned users.
func (d *Directory) Len() int {
	return len(d.byID)
}

// validName accepts only a single path element, since the name becomes the
// user's directory.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
