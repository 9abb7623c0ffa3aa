// Package identity is the user account and session store: account creation,
// credential verification and token issuance.
package identity

import (
	"errors"
	"fmt"
	"time"

	"sociogram/backend/internal/apperr"
	"sociogram/backend/internal/models"
	"sociogram/backend/pkg/jwt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateEmail means the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials is returned for unknown emails and wrong
	// passwords alike, so a caller cannot probe which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateUser registers a new account with a bcrypt-hashed password.
func (s *Store) CreateUser(nickname, email, rawPassword string) (*models.User, error) {
	if nickname == "" || email == "" || rawPassword == "" {
		return nil, fmt.Errorf("%w: nickname, email and password are required", apperr.ErrValidation)
	}

	var existing models.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Nickname:     nickname,
		Email:        email,
		PasswordHash: string(hash),
		LastSeen:     time.Now(),
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyCredentials checks an email/password pair and returns the user.
func (s *Store) VerifyCredentials(email, rawPassword string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(rawPassword)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// FindByID loads a user by primary key.
func (s *Store) FindByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", apperr.ErrNotFound, userID)
		}
		return nil, err
	}
	return &user, nil
}

// FindByEmail loads a user by email.
func (s *Store) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: email %s", apperr.ErrNotFound, email)
		}
		return nil, err
	}
	return &user, nil
}

// SetPassword re-hashes and stores a new password for the user.
func (s *Store) SetPassword(userID uint, rawPassword string) error {
	if rawPassword == "" {
		return fmt.Errorf("%w: password is required", apperr.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("password_hash", string(hash)).Error
}

// IssueToken mints a signed, time-boxed token for the user.
func (s *Store) IssueToken(user *models.User, ttl time.Duration) (string, error) {
	return jwt.GenerateToken(user.ID, ttl)
}

// VerifyToken checks signature and expiry and returns the user id.
// There is no revocation list; the compromise window equals the ttl.
func (s *Store) VerifyToken(token string) (uint, error) {
	return jwt.ParseToken(token)
}

// TouchLastSeen records user activity. Called by the auth middleware on
// every authenticated request.
func (s *Store) TouchLastSeen(userID uint) error {
	return s.db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_seen", time.Now()).Error
}
