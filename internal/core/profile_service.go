package core

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gwi.com/aiclone/internal/store"
)

// ProfileUpdate carries the editable profile fields. Empty fields keep their value.
type ProfileUpdate struct {
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Personality string `json:"personality"`
	Color       string `json:"color"`
}

type ProfileService struct {
	store  store.ProfileStore
	logger logrus.FieldLogger
}

func NewProfileService(s store.ProfileStore, logger logrus.FieldLogger) *ProfileService {
	return &ProfileService{store: s, logger: logger}
}

// Get returns the profile, inserting the defaults on first read.
func (s *ProfileService) Get(ctx context.Context) (*store.AIProfile, error) {
	profile, err := s.store.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile != nil {
		return profile, nil
	}

	def := store.DefaultProfile()
	if err := s.store.SaveProfile(ctx, &def); err != nil {
		return nil, fmt.Errorf("failed to create default profile: %w", err)
	}
	s.logger.Info("default AI profile created")
	return &def, nil
}

func (s *ProfileService) Update(ctx context.Context, upd ProfileUpdate) (*store.AIProfile, error) {
	profile, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	setIfPresent(&profile.Name, upd.Name)
	setIfPresent(&profile.Avatar, upd.Avatar)
	setIfPresent(&profile.Status, upd.Status)
	setIfPresent(&profile.Description, upd.Description)
	setIfPresent(&profile.Personality, upd.Personality)
	setIfPresent(&profile.Color, upd.Color)
	profile.Type = store.ProfileTypeMain
	profile.UpdatedAt = time.Now().UTC()

	if err := s.store.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return profile, nil
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
