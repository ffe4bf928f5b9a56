package service

import (
	"context"
	"errors"
	"strings"

	"example.com/ecoguard/internal/models"
	"example.com/ecoguard/internal/repository"
	"example.com/ecoguard/internal/session"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the user does not exist so that unknown
// usernames take as long to reject as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("ecoguard-missing-user"), bcrypt.DefaultCost)

// Login checks the credentials and opens a session
func (s *service) Login(ctx context.Context, username, password string) (*session.Session, error) {
	user, err := s.repo.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, pkgerrors.Wrap(err, "find user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.WithField("username", user.Username).Warn("Login failed")
		return nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, user.Username, user.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create session")
	}

	s.log.WithFields(logrus.Fields{
		"username": user.Username,
		"role":     user.Role,
	}).Info("User logged in")
	return sess, nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	return s.sessions.Invalidate(ctx, token)
}

// SweepSessions drops expired sessions
func (s *service) SweepSessions(ctx context.Context) (int, error) {
	return s.sessions.Sweep(ctx)
}

// UpdateDeviceToken stores the push-notification token of username's phone
func (s *service) UpdateDeviceToken(ctx context.Context, username, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return validationf("Device token required")
	}

	user, err := s.repo.FindUserByUsername(ctx, username)
	if err != nil {
		return notFoundOr(err, "user", username)
	}
	user.DeviceToken = &token
	return s.repo.SaveUser(ctx, user)
}

// CreateUser adds an operator account with a bcrypt password hash
func (s *service) CreateUser(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, validationf("username is required")
	}
	if password == "" {
		return nil, validationf("password is required")
	}
	if role != models.RoleAdmin && role != models.RoleUser {
		return nil, validationf("unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "hash password")
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, notFoundOr(err, "user", username)
	}
	return user, nil
}

func (s *service) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repo.ListUsers(ctx)
}

type seedUser struct {
	username string
	password string
	role     models.Role
}

var defaultUsers = []seedUser{
	{"admin", "admin", models.RoleAdmin},
	{"user", "user", models.RoleUser},
	{"erdem", "erdem", models.RoleUser},
	{"dawood", "dawood", models.RoleUser},
	{"shariar", "shariar", models.RoleUser},
}

var defaultThresholds = []models.Threshold{
	{MetricType: models.MetricTemp, MinValue: decimal.NewFromInt(10), MaxValue: decimal.NewFromInt(30)},
	{MetricType: models.MetricHumidity, MinValue: decimal.NewFromInt(30), MaxValue: decimal.NewFromInt(70)},
	{MetricType: models.MetricCO2, MinValue: decimal.NewFromInt(400), MaxValue: decimal.NewFromInt(1200)},
	{MetricType: models.MetricLight, MinValue: decimal.NewFromInt(0), MaxValue: decimal.NewFromInt(1000)},
}

// Seed creates the default accounts and thresholds that do not exist yet.
// Existing records are left as they are.
func (s *service) Seed(ctx context.Context) error {
	for _, u := range defaultUsers {
		_, err := s.repo.FindUserByUsername(ctx, u.username)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return pkgerrors.Wrapf(err, "seed user %s", u.username)
		}
		if _, err := s.CreateUser(ctx, u.username, u.password, u.role); err != nil {
			return pkgerrors.Wrapf(err, "seed user %s", u.username)
		}
		s.log.WithField("username", u.username).Info("Seeded user")
	}

	for _, def := range defaultThresholds {
		_, err := s.repo.FindThresholdByMetric(ctx, def.MetricType)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return pkgerrors.Wrapf(err, "seed %s threshold", def.MetricType)
		}
		th := def
		if err := s.repo.SaveThreshold(ctx, &th); err != nil {
			return pkgerrors.Wrapf(err, "seed %s threshold", def.MetricType)
		}
		s.log.WithField("metric", def.MetricType).Info("Seeded threshold")
	}

	s.invalidateThresholdCache(ctx)
	return nil
}
