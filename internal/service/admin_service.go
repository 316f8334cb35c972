package service

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/hygiapro/bookings/pkg/auth"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AdminService interface {
	Login(email, password string) (string, error)
}

type adminService struct {
	email     string
	hash      string
	jwtSecret string
	ttl       time.Duration
}

// NewAdminService authenticates the single operator account configured by
// email and argon2id hash. With no hash configured every login fails.
func NewAdminService(email, hash, jwtSecret string, ttl time.Duration) AdminService {
	return &adminService{
		email:     strings.ToLower(strings.TrimSpace(email)),
		hash:      hash,
		jwtSecret: jwtSecret,
		ttl:       ttl,
	}
}

func (s *adminService) Login(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	emailOK := s.email != "" && subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1
	passOK := auth.CheckPassword(password, s.hash)
	if !emailOK || !passOK {
		return "", ErrInvalidCredentials
	}
	return auth.NewAccessToken(s.email, auth.RoleAdmin, s.jwtSecret, s.ttl)
}
