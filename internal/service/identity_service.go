package service

import (
	"errors"
	"fmt"

	"newsroom/internal/models"
	"newsroom/internal/repository"
	"newsroom/internal/security"
)

// ProviderLocal and ProviderGoogle tag which auth path a profile came from.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// SocialPayload is the account data a provider sends on every social login.
type SocialPayload struct {
	Name       string
	Email      string
	PictureURL string
}

// IdentityService keeps credentials, principals and profiles in one-to-one
// correspondence. All principal/profile creation goes through here so the
// creation order is deterministic: principal first, then its profile.
type IdentityService struct {
	principalRepo *repository.PrincipalRepository
	profileRepo   *repository.ProfileRepository
}

// NewIdentityService creates a new identity service
func NewIdentityService(principalRepo *repository.PrincipalRepository, profileRepo *repository.ProfileRepository) *IdentityService {
	return &IdentityService{
		principalRepo: principalRepo,
		profileRepo:   profileRepo,
	}
}

// EnsurePrincipalAndProfile guarantees a principal and profile exist for the
// credential. The principal's password is set from the submitted plaintext,
// never derived from the credential's stored hash. Idempotent: repeated calls
// converge on the same principal and profile.
func (s *IdentityService) EnsurePrincipalAndProfile(cred *models.Credential, plaintextPassword string) (*models.Principal, *models.Profile, error) {
	principal, err := s.ensurePrincipal(cred, plaintextPassword)
	if err != nil {
		return nil, nil, err
	}

	profile, err := s.ensureProfile(principal.ID, cred.Email)
	if err != nil {
		return nil, nil, err
	}

	return principal, profile, nil
}

func (s *IdentityService) ensurePrincipal(cred *models.Credential, plaintextPassword string) (*models.Principal, error) {
	principal, err := s.principalRepo.GetByUsername(cred.Username)
	if err != nil {
		return nil, err
	}
	if principal != nil {
		return principal, nil
	}

	passwordHash, err := security.HashPassword(plaintextPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash principal password: %w", err)
	}

	principal, err = s.principalRepo.Create(cred.Username, cred.Email, passwordHash, false)
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a concurrent first-login race; the principal exists now
		return s.principalRepo.GetByUsername(cred.Username)
	}
	return principal, err
}

func (s *IdentityService) ensureProfile(principalID int64, email string) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByPrincipalID(principalID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	profile, err = s.profileRepo.Create(principalID, "", email, "", ProviderLocal)
	if errors.Is(err, repository.ErrDuplicate) {
		return s.profileRepo.GetByPrincipalID(principalID)
	}
	return profile, err
}

// SyncFromSocialPayload upserts the profile for a principal from a social
// provider's payload. The payload overwrites name, email, avatar and provider
// unconditionally: the most recent social login wins, with no merging of
// local edits. Called on every social login, not just the first link.
func (s *IdentityService) SyncFromSocialPayload(principal *models.Principal, provider string, payload SocialPayload) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByPrincipalID(principal.ID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile, err = s.profileRepo.Create(principal.ID, payload.Name, payload.Email, payload.PictureURL, provider)
		if err == nil {
			return profile, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
	}

	if err := s.profileRepo.UpdateFromSocial(principal.ID, payload.Name, payload.Email, payload.PictureURL, provider); err != nil {
		return nil, err
	}
	return s.profileRepo.GetByPrincipalID(principal.ID)
}
