package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/taskflow/task-service/internal/entity"
	"github.com/taskflow/task-service/pkg/logger"
)

// UserUseCase covers registration, login and the caller's own profile.
type UserUseCase interface {
	Register(ctx context.Context, in entity.RegisterInput) (entity.User, string, error)
	Login(ctx context.Context, in entity.LoginInput) (entity.User, string, error)
	Profile(ctx context.Context, userID string) (entity.User, error)
	UpdateProfile(ctx context.Context, userID string, in entity.ProfileInput) (entity.User, error)
}

type UserUseCaseImpl struct {
	userRepo UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	now      func() time.Time
}

func NewUserUseCase(userRepo UserRepository, hasher PasswordHasher, tokens TokenIssuer) *UserUseCaseImpl {
	return &UserUseCaseImpl{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (uc *UserUseCaseImpl) Register(ctx context.Context, in entity.RegisterInput) (entity.User, string, error) {
	in.Normalize()
	if err := validateStruct(in).orNil(); err != nil {
		return entity.User{}, "", err
	}

	hash, err := uc.hasher.Hash(in.Password)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return entity.User{}, "", err
	}

	now := uc.now()
	user := entity.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			logger.Log.WithField("email", in.Email).Warn("Registration with existing email")
		} else {
			logger.Log.WithError(err).Error("Failed to create user")
		}
		return entity.User{}, "", err
	}

	token, err := uc.tokens.Issue(user.ID, user.Email)
	if err != nil {
		logger.Log.WithField("user_id", user.ID).WithError(err).Error("Failed to issue token")
		return entity.User{}, "", err
	}

	logger.Log.WithField("user_id", user.ID).Info("User registered")
	return user, token, nil
}

func (uc *UserUseCaseImpl) Login(ctx context.Context, in entity.LoginInput) (entity.User, string, error) {
	in.Normalize()
	if err := validateStruct(in).orNil(); err != nil {
		return entity.User{}, "", err
	}

	user, err := uc.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return entity.User{}, "", ErrInvalidCredentials
		}
		logger.Log.WithError(err).Error("Failed to load user for login")
		return entity.User{}, "", err
	}

	if !uc.hasher.Verify(in.Password, user.PasswordHash) {
		logger.Log.WithField("user_id", user.ID).Warn("Login with wrong password")
		return entity.User{}, "", ErrInvalidCredentials
	}

	token, err := uc.tokens.Issue(user.ID, user.Email)
	if err != nil {
		logger.Log.WithField("user_id", user.ID).WithError(err).Error("Failed to issue token")
		return entity.User{}, "", err
	}
	return user, token, nil
}

func (uc *UserUseCaseImpl) Profile(ctx context.Context, userID string) (entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		logger.Log.WithField("user_id", userID).WithError(err).Error("Failed to load profile")
	}
	return user, err
}

func (uc *UserUseCaseImpl) UpdateProfile(ctx context.Context, userID string, in entity.ProfileInput) (entity.User, error) {
	in.Normalize()
	if err := validateStruct(in).orNil(); err != nil {
		return entity.User{}, err
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return entity.User{}, err
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Email != nil && *in.Email != user.Email {
		other, err := uc.userRepo.GetByEmail(ctx, *in.Email)
		switch {
		case err == nil && other.ID != user.ID:
			return entity.User{}, ErrUserExists
		case err != nil && !errors.Is(err, ErrUserNotFound):
			return entity.User{}, err
		}
		user.Email = *in.Email
	}
	if in.Password != nil {
		hash, err := uc.hasher.Hash(*in.Password)
		if err != nil {
			return entity.User{}, err
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = uc.now()

	if err := uc.userRepo.Update(ctx, user); err != nil {
		logger.Log.WithFields(logrus.Fields{"user_id": userID}).WithError(err).Error("Failed to update profile")
		return entity.User{}, err
	}
	return user, nil
}
