package sso

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flowdesk/flowdesk/pkg/flowdesk/models"
	"gorm.io/gorm"
)

// Service issues, verifies, invalidates, and garbage-collects SSO tokens.
// The issuer and verifier are independent request paths that share only the
// token store; all correctness under concurrency rests on the store's
// conditional update, not on in-process locks.
type Service struct {
	db  *gorm.DB
	cfg Config
}

// NewService creates an SSO token service backed by the given store
func NewService(db *gorm.DB, cfg Config) *Service {
	return &Service{db: db, cfg: cfg}
}

// IssueResult is what a successful issuance returns
type IssueResult struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
	ExpiresIn   int    `json:"expires_in"`
}

// UserPayload is the identity a module receives on successful verification
type UserPayload struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// OrganizationPayload is the tenant a module receives on successful verification
type OrganizationPayload struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// VerifyResult is the identity/permission payload returned to a module
type VerifyResult struct {
	Valid             bool                `json:"valid"`
	User              UserPayload         `json:"user"`
	Organization      OrganizationPayload `json:"organization"`
	ModulePermissions ModulePermissions   `json:"module_permissions"`
}

// Issue mints a short-lived single-use token delegating the user into the
// named module and returns the redirect URL the browser should follow.
// Every call mints a new, distinct token.
func (s *Service) Issue(userID, organizationID uint, moduleSlug string) (*IssueResult, error) {
	var module models.Module
	if err := s.db.Where("slug = ? AND is_active = ?", moduleSlug, true).First(&module).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("looking up module: %w", err)
	}

	// External modules must be purchased by the organization
	if module.Type == models.ModuleTypeExternal {
		var count int64
		err := s.db.Model(&models.ModuleEntitlement{}).
			Where("organization_id = ? AND module_id = ? AND is_active = ?", organizationID, module.ID, true).
			Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("checking entitlement: %w", err)
		}
		if count == 0 {
			return nil, ErrModuleNotPurchased
		}
	}

	now := time.Now()
	token, err := s.cfg.mintToken(userID, organizationID, module.ID, module.Slug, now)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	// The row is the source of truth for freshness and single use;
	// the signature only proves integrity.
	row := models.SsoToken{
		Token:          token,
		UserID:         userID,
		OrganizationID: organizationID,
		ModuleID:       module.ID,
		ExpiresAt:      now.Add(s.cfg.TokenTTL),
	}
	if err := s.db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("persisting token: %w", err)
	}

	if module.URL == "" {
		// The orphan row is harmless: it expires and the housekeeper removes it
		return nil, ErrModuleURLMissing
	}

	separator := "?"
	if strings.Contains(module.URL, "?") {
		separator = "&"
	}

	return &IssueResult{
		Token:       token,
		RedirectURL: module.URL + separator + "token=" + token,
		ExpiresIn:   int(s.cfg.TokenTTL.Seconds()),
	}, nil
}

// Verify authenticates the calling module by its client credentials, then
// walks the token through its ordered lifecycle checks and consumes it.
// Each failure is terminal; two racing calls on the same token yield exactly
// one success.
func (s *Service) Verify(tokenString, clientID, clientSecret string) (*VerifyResult, error) {
	// Establish which module is asking, independent of the token content
	var module models.Module
	if err := s.db.Where("client_id = ?", clientID).First(&module).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, fmt.Errorf("looking up client: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(module.ClientSecret), []byte(clientSecret)) != 1 {
		return nil, ErrInvalidClientSecret
	}

	var row models.SsoToken
	if err := s.db.Where("token = ?", tokenString).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("looking up token: %w", err)
	}

	if row.IsUsed {
		return nil, ErrTokenUsed
	}
	if row.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}
	if row.ModuleID != module.ID {
		return nil, ErrTokenModuleMismatch
	}

	// The row matched; now require the signature to match too, so a guessed
	// string cannot ride on a lucky lookup
	if _, err := s.cfg.parseToken(tokenString, module.Slug); err != nil {
		return nil, ErrTokenInvalid
	}

	// Single atomic conditional update: the losing side of a race sees zero
	// affected rows and reports the token as used
	now := time.Now()
	res := s.db.Model(&models.SsoToken{}).
		Where("token = ? AND is_used = ?", tokenString, false).
		Updates(map[string]interface{}{"is_used": true, "used_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("consuming token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrTokenUsed
	}

	// Assemble the payload from current rows, not from the token claims,
	// so the module sees up-to-date names and roles
	var user models.User
	if err := s.db.First(&user, row.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	var org models.Organization
	if err := s.db.First(&org, row.OrganizationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("loading organization: %w", err)
	}

	return &VerifyResult{
		Valid: true,
		User: UserPayload{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Role:      string(user.Role),
		},
		Organization: OrganizationPayload{
			ID:   org.ID,
			Name: org.Name,
			Slug: org.Slug,
		},
		ModulePermissions: PermissionsForRole(user.Role),
	}, nil
}

// InvalidateAll marks every outstanding token belonging to the user as used.
// Already-used and already-expired tokens are terminal and left alone.
func (s *Service) InvalidateAll(userID uint) (int64, error) {
	res := s.db.Model(&models.SsoToken{}).
		Where("user_id = ? AND is_used = ?", userID, false).
		Updates(map[string]interface{}{"is_used": true, "used_at": time.Now()})
	if res.Error != nil {
		return 0, fmt.Errorf("invalidating tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Cleanup deletes token rows expired for longer than the retention grace
// window and returns how many were removed. Pure garbage collection: rows
// still inside their validity or grace window are never touched.
func (s *Service) Cleanup() (int64, error) {
	cutoff := time.Now().Add(-s.cfg.RetentionGrace)
	res := s.db.Where("expires_at < ?", cutoff).Delete(&models.SsoToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("deleting stale tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
