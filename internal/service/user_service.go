package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"realworld-settings/internal/domain"
	"realworld-settings/internal/repository"
)

const minPasswordLength = 8

var validate = validator.New()

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when the token's subject no longer exists.
	ErrUserNotFound = errors.New("user not found")
)

// ValidationError lists the reasons a request was rejected.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) add(msg string) {
	e.Messages = append(e.Messages, msg)
}

func (e *ValidationError) errOrNil() error {
	if len(e.Messages) == 0 {
		return nil
	}
	return e
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Update(ctx context.Context, id int64, changes domain.UserChanges) (*domain.User, error)
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	verr := &ValidationError{}
	validateUsername(verr, username)
	validateEmail(verr, email)
	validatePassword(verr, password)
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	if err := s.checkAvailable(ctx, 0, username, email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, &ValidationError{Messages: []string{"email or username has already been taken"}}
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

// Update applies a partial change set. An empty password leaves the stored one as is.
func (s *userService) Update(ctx context.Context, id int64, changes domain.UserChanges) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	verr := &ValidationError{}
	if changes.Username != nil {
		user.Username = strings.TrimSpace(*changes.Username)
		validateUsername(verr, user.Username)
	}
	if changes.Email != nil {
		user.Email = strings.TrimSpace(*changes.Email)
		validateEmail(verr, user.Email)
	}
	if changes.Bio != nil {
		user.Bio = *changes.Bio
	}
	if changes.Image != nil {
		user.Image = strings.TrimSpace(*changes.Image)
	}
	var newPassword string
	if changes.Password != nil && *changes.Password != "" {
		newPassword = *changes.Password
		validatePassword(verr, newPassword)
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	if err := s.checkAvailable(ctx, user.ID, user.Username, user.Email); err != nil {
		return nil, err
	}

	if newPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, &ValidationError{Messages: []string{"email or username has already been taken"}}
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

// checkAvailable reports a validation error when username or email belong to
// a user other than selfID.
func (s *userService) checkAvailable(ctx context.Context, selfID int64, username, email string) error {
	verr := &ValidationError{}

	if other, err := s.users.GetByUsername(ctx, username); err == nil && other.ID != selfID {
		verr.add("username has already been taken")
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if other, err := s.users.GetByEmail(ctx, email); err == nil && other.ID != selfID {
		verr.add("email has already been taken")
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return verr.errOrNil()
}

func validateUsername(verr *ValidationError, username string) {
	verr.check("username", username, "required")
}

func validateEmail(verr *ValidationError, email string) {
	verr.check("email", email, "required,email")
}

func validatePassword(verr *ValidationError, password string) {
	verr.check("password", password, fmt.Sprintf("min=%d", minPasswordLength))
}

// check runs a validator tag against value and records the first failing rule.
func (e *ValidationError) check(field, value, tag string) {
	err := validate.Var(value, tag)
	if err == nil {
		return
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		e.add(fieldMessage(field, fields[0].Tag(), fields[0].Param()))
		return
	}
	e.add(field + " is invalid")
}

// BindingMessages converts the validator errors produced by gin binding into
// RealWorld style messages. It reports false for any other error.
func BindingMessages(err error) ([]string, bool) {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return nil, false
	}
	msgs := make([]string, 0, len(fields))
	for _, fe := range fields {
		msgs = append(msgs, fieldMessage(strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
	}
	return msgs, true
}

func fieldMessage(field, tag, param string) string {
	switch tag {
	case "required":
		return field + " can't be blank"
	case "min":
		return fmt.Sprintf("%s is too short (minimum is %s characters)", field, param)
	default:
		return field + " is invalid"
	}
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Bio:       user.Bio,
		Image:     user.Image,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
