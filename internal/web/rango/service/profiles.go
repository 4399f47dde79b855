package service

import (
	"context"
	"strings"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"gorm.io/gorm"

	"github.com/z-Shi/TangoWithDjango/internal/web/rango/dao"
	"github.com/z-Shi/TangoWithDjango/internal/web/rango/model"
)

// ProfileForm carries the fields a user registers or edits.
type ProfileForm struct {
	Username string
	Email    string
	Website  string
	Picture  string
}

// RegisterProfile creates a user together with its profile.
func (s *Rango) RegisterProfile(ctx context.Context, form ProfileForm) (*model.UserProfile, error) {
	username, err := validateUsername(form.Username)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail(form.Email)
	if err != nil {
		return nil, err
	}
	website, err := validateWebsite(form.Website)
	if err != nil {
		return nil, err
	}

	profile := &model.UserProfile{
		Website: website,
		Picture: strings.TrimSpace(form.Picture),
	}
	err = s.dao.Transaction(ctx, func(tx *dao.Rango) error {
		_, err := tx.GetUserByUsername(ctx, username)
		switch {
		case err == nil:
			return errors.Wrapf(ErrDuplicateProfile, "username %q", username)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		user := &model.User{Username: username, Email: email}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}

		profile.UserID = user.ID
		if err := tx.CreateProfile(ctx, profile); err != nil {
			return err
		}
		profile.User = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile registered", zap.String("username", username))
	return profile, nil
}

// GetProfile returns the profile registered for username.
func (s *Rango) GetProfile(ctx context.Context, username string) (*model.UserProfile, error) {
	user, err := s.dao.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, notFound(err, ErrProfileNotFound)
	}

	profile, err := s.dao.GetProfileByUserID(ctx, user.ID)
	if err != nil {
		return nil, notFound(err, ErrProfileNotFound)
	}
	return profile, nil
}

// UpdateProfile replaces the website and picture of username's profile.
// The username and email are not editable.
func (s *Rango) UpdateProfile(ctx context.Context, form ProfileForm) (*model.UserProfile, error) {
	website, err := validateWebsite(form.Website)
	if err != nil {
		return nil, err
	}

	profile, err := s.GetProfile(ctx, form.Username)
	if err != nil {
		return nil, err
	}

	profile.Website = website
	profile.Picture = strings.TrimSpace(form.Picture)
	if err := s.dao.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// ListProfiles returns every registered profile ordered by username.
func (s *Rango) ListProfiles(ctx context.Context) ([]model.UserProfile, error) {
	return s.dao.ListProfiles(ctx)
}
