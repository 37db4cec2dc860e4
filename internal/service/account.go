package service

import (
	"context"
	"errors"
	"strings"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/repository"
)

// ErrInvalidSteamID is returned for an empty Steam ID.
var ErrInvalidSteamID = errors.New("invalid steam id")

// AccountService reads user profiles.
type AccountService struct {
	userRepo *repository.UserRepository
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(userRepo *repository.UserRepository) *AccountService {
	return &AccountService{userRepo: userRepo}
}

// GetProfile retrieves a user by Steam ID.
func (s *AccountService) GetProfile(ctx context.Context, steamID string) (*model.User, error) {
	steamID = strings.TrimSpace(steamID)
	if steamID == "" {
		return nil, ErrInvalidSteamID
	}
	return s.userRepo.GetBySteamID(ctx, steamID)
}
