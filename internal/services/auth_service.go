package services

import (
	"crypto/subtle"
	"errors"
	"strconv"
	"time"
)

// SessionTTL is how long a login cookie stays valid
const SessionTTL = 24 * time.Hour

var (
	ErrWrongPassword  = errors.New("wrong password")
	ErrSessionExpired = errors.New("session expired")
)

// AuthService guards the UI with an optional shared password. With an empty
// password every request is let through.
type AuthService struct {
	password string
	box      *SecretBox
	now      func() time.Time
}

func NewAuthService(password string, box *SecretBox) *AuthService {
	return &AuthService{password: password, box: box, now: time.Now}
}

// Enabled reports whether a password is configured
func (s *AuthService) Enabled() bool {
	return s.password != ""
}

// Login checks password and returns a sealed session token for the cookie
func (s *AuthService) Login(password string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) != 1 {
		return "", ErrWrongPassword
	}
	expires := s.now().Add(SessionTTL).Unix()
	return s.box.Seal(strconv.FormatInt(expires, 10))
}

// Validate opens a session token and checks its expiry
func (s *AuthService) Validate(token string) error {
	plain, err := s.box.Open(token)
	if err != nil {
		return err
	}
	expires, err := strconv.ParseInt(plain, 10, 64)
	if err != nil {
		return err
	}
	if s.now().Unix() >= expires {
		return ErrSessionExpired
	}
	return nil
}
