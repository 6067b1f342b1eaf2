// Package auth checks bearer credentials against the provisioned user table.
//
// A credential is an HS512 JWT whose payload carries the numeric user id. The
// signature is never verified: the token only encodes the id, and the caller
// is authenticated by presenting the exact token string configured for that
// user.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/mediagate/uploader/internal/user"
)

// ErrUnauthorized is returned for any authentication failure. Callers never
// learn whether the user was unknown or the token was wrong.
var ErrUnauthorized = errors.New("unauthorized")

// errNoUserID is returned when a credential does not carry a usable id claim.
var errNoUserID = errors.New("credential carries no user id")

// Verifier matches credentials against a user directory.
type Verifier struct {
	users *user.Directory
	log   zerolog.Logger
}

// NewVerifier creates a Verifier over the given directory.
func NewVerifier(users *user.Directory, log zerolog.Logger) *Verifier {
	return &Verifier{users: users, log: log.With().Str("component", "auth").Logger()}
}

// Verify decodes the id embedded in credential and compares credential with
// the stored token of that user. found is false when the credential is
// malformed or names an unknown user; matched reports whether the credential
// equals the user's token.
func (v *Verifier) Verify(credential string) (matched bool, u user.User, found bool) {
	id, err := UserID(credential)
	if err != nil {
		return false, user.User{}, false
	}
	u, err = v.users.ByID(id)
	if err != nil {
		return false, user.User{}, false
	}
	return subtle.ConstantTimeCompare([]byte(credential), []byte(u.Token)) == 1, u, true
}

// Authenticate returns the user owning credential, or ErrUnauthorized.
func (v *Verifier) Authenticate(credential string) (user.User, error) {
	if credential == "" {
		v.log.Debug().Msg("empty credential")
		return user.User{}, ErrUnauthorized
	}
	matched, u, found := v.Verify(credential)
	if !found {
		v.log.Debug().Msg("credential names no known user")
		return user.User{}, ErrUnauthorized
	}
	if !matched {
		v.log.Debug().Int64("user_id", u.ID).Msg("credential does not match stored token")
		return user.User{}, ErrUnauthorized
	}
	return u, nil
}

// UserID reads the id claim of credential without checking its signature.
func UserID(credential string) (int64, error) {
	parser := jwt.NewParser(jwt.WithJSONNumber())
	token, _, err := parser.ParseUnverified(credential, jwt.MapClaims{})
	if err != nil {
		return 0, fmt.Errorf("decode credential: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errNoUserID
	}

	switch id := claims["id"].(type) {
	case json.Number:
		n, err := id.Int64()
		if err != nil {
			return 0, errNoUserID
		}
		return n, nil
	case float64:
		if id != math.Trunc(id) {
			return 0, errNoUserID
		}
		return int64(id), nil
	default:
		return 0, errNoUserID
	}
}

// GenerateToken mints a credential for the given user id. When key is empty
// a random 64-byte key is used; since signatures are never checked the key
// only affects the token's bytes.
func GenerateToken(id int64, key []byte) (string, error) {
	if len(key) == 0 {
		raw := make([]byte, 64)
		if _, err := rand.Read(raw); err != nil {
			return "", fmt.Errorf("generate signing key: %w", err)
		}
		key = []byte(hex.EncodeToString(raw))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"id": id})
	return token.SignedString(key)
}

// ExtractBearer returns the credential of an "Authorization: Bearer <token>"
// header value.
func ExtractBearer(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
