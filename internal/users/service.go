package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

var (
	// ErrEmptyEmail indicates a sign-up or sign-in without an email.
	ErrEmptyEmail = errors.New("users: email is required")
	// ErrEmptyPassword indicates a missing password.
	ErrEmptyPassword = errors.New("users: password is required")
	// ErrWeakPassword indicates a password shorter than the accepted minimum.
	ErrWeakPassword = errors.New("users: password is too short")
	// ErrPasswordMismatch indicates that the confirmation differs from the password.
	ErrPasswordMismatch = errors.New("users: passwords do not match")
	// ErrEmailTaken indicates an existing account already uses the email.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
)

// SignUpInput is a validated registration request.
type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
}

// NewSignUpInput validates the registration form before any account is touched.
func NewSignUpInput(email, password, confirmPassword, displayName string) (SignUpInput, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return SignUpInput{}, ErrEmptyEmail
	}
	if password == "" {
		return SignUpInput{}, ErrEmptyPassword
	}
	if len(password) < minPasswordLength {
		return SignUpInput{}, ErrWeakPassword
	}
	if password != confirmPassword {
		return SignUpInput{}, ErrPasswordMismatch
	}
	name, err := catalog.NewDisplayName(displayName)
	if err != nil {
		return SignUpInput{}, err
	}
	return SignUpInput{Email: normalized, Password: password, DisplayName: name}, nil
}

// ServiceConfig describes the dependencies required for account management.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider catalog.IDProvider
	Clock      func() time.Time
	Logger     *zap.Logger
	// HashCost defaults to bcrypt.DefaultCost.
	HashCost int
}

// Service stores sign-in accounts and checks credentials.
type Service struct {
	db         *gorm.DB
	idProvider catalog.IDProvider
	now        func() time.Time
	logger     *zap.Logger
	hashCost   int
	cache      sync.Map
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = catalog.NewUUIDProvider()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hashCost := cfg.HashCost
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	return &Service{
		db:         cfg.Database,
		idProvider: idProvider,
		now:        clock,
		logger:     logger,
		hashCost:   hashCost,
		cache:      sync.Map{},
	}, nil
}

// SignUp creates an account for a new email and assigns it a fresh user id.
func (s *Service) SignUp(ctx context.Context, input SignUpInput) (Account, error) {
	if input.Email == "" {
		return Account{}, ErrEmptyEmail
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return Account{}, err
	}
	userID, err := s.idProvider.NewID()
	if err != nil {
		return Account{}, err
	}
	account := Account{
		UserID:       userID,
		Email:        input.Email,
		PasswordHash: string(hash),
		LastSeenAt:   s.now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&Account{}).Where("email = ?", account.Email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrEmailTaken
		}
		return tx.Create(&account).Error
	})
	if err != nil {
		if !errors.Is(err, ErrEmailTaken) {
			s.logger.Error("account creation failed", zap.String("operation", "users.sign_up"), zap.Error(err))
		}
		return Account{}, err
	}
	s.cache.Store(account.Email, account.UserID)
	return account, nil
}

// SignIn checks the password for the email and returns the account.
func (s *Service) SignIn(ctx context.Context, email, password string) (Account, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return Account{}, ErrEmptyEmail
	}
	if password == "" {
		return Account{}, ErrEmptyPassword
	}

	var account Account
	err := s.db.WithContext(ctx).Where("email = ?", normalized).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}

	account.LastSeenAt = s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&Account{}).
		Where("user_id = ?", account.UserID).
		Update("last_seen_at", account.LastSeenAt).Error; err != nil {
		s.logger.Warn("last seen update failed", zap.String("user_id", account.UserID), zap.Error(err))
	}
	s.cache.Store(account.Email, account.UserID)
	return account, nil
}

// UserIDForEmail resolves the user id registered for an email.
func (s *Service) UserIDForEmail(ctx context.Context, email string) (string, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return "", ErrEmptyEmail
	}
	if cached, ok := s.cache.Load(normalized); ok {
		if userID, ok := cached.(string); ok {
			return userID, nil
		}
	}
	var account Account
	err := s.db.WithContext(ctx).Where("email = ?", normalized).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	s.cache.Store(normalized, account.UserID)
	return account.UserID, nil
}

// DeleteAccount removes the account of a user, forgetting the cached email.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidCredentials
	}
	var account Account
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&Account{}, "user_id = ?", userID).Error; err != nil {
		return err
	}
	s.cache.Delete(account.Email)
	return nil
}
