package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gwi.com/aiclone/internal/common"
	"gwi.com/aiclone/internal/store"
)

type CloneInput struct {
	Name          string         `json:"name"`
	Personality   map[string]any `json:"personality"`
	SpeakingStyle string         `json:"speaking_style"`
	FaceImage     string         `json:"face_image"`
	FaceFeatures  map[string]any `json:"face_features"`
}

type CloneSummary struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	CreatedAt        time.Time `json:"created_at"`
	CreatedBy        string    `json:"created_by"`
	PersonalityCount int       `json:"personality_count"`
	MemoriesCount    int       `json:"memories_count"`
}

type CloneStats struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	PersonalityAnswers int       `json:"personality_answers"`
	TotalMemories      int       `json:"total_memories"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	HasFace            bool      `json:"has_face"`
	HasFeatures        bool      `json:"has_features"`
}

type CloneService struct {
	store  store.CloneStore
	logger logrus.FieldLogger
}

func NewCloneService(s store.CloneStore, logger logrus.FieldLogger) *CloneService {
	return &CloneService{store: s, logger: logger}
}

func cloneExists(name string) error {
	return common.Validation(fmt.Sprintf("Clone '%s' already exists", name))
}

func cloneNotFound(id string) error {
	return common.NotFound(fmt.Sprintf("Clone with ID %s not found", id))
}

// Create stores a new clone. An existing name is rejected before anything is written.
func (s *CloneService) Create(ctx context.Context, in CloneInput, createdBy string) (*store.Clone, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, common.Validation("Clone name is required")
	}

	existing, err := s.store.GetCloneByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check clone name: %w", err)
	}
	if existing != nil {
		return nil, cloneExists(name)
	}

	c := &store.Clone{
		Name:          name,
		Personality:   in.Personality,
		SpeakingStyle: in.SpeakingStyle,
		FaceImage:     in.FaceImage,
		FaceFeatures:  in.FaceFeatures,
		Memories:      []store.Memory{},
		CreatedBy:     createdBy,
	}
	if c.Personality == nil {
		c.Personality = map[string]any{}
	}
	if err := s.store.CreateClone(ctx, c); err != nil {
		// lost a race with a concurrent create
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, cloneExists(name)
		}
		return nil, fmt.Errorf("failed to create clone: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"clone": c.Name, "by": createdBy}).Info("clone created")
	return c, nil
}

func (s *CloneService) List(ctx context.Context) ([]CloneSummary, error) {
	clones, err := s.store.ListClones(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clones: %w", err)
	}
	out := make([]CloneSummary, 0, len(clones))
	for _, c := range clones {
		createdBy := c.CreatedBy
		if createdBy == "" {
			createdBy = "unknown"
		}
		out = append(out, CloneSummary{
			ID:               c.ID,
			Name:             c.Name,
			CreatedAt:        c.CreatedAt,
			CreatedBy:        createdBy,
			PersonalityCount: len(c.Personality),
			MemoriesCount:    len(c.Memories),
		})
	}
	return out, nil
}

func (s *CloneService) Get(ctx context.Context, id string) (*store.Clone, error) {
	c, err := s.store.GetClone(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load clone: %w", err)
	}
	if c == nil {
		return nil, cloneNotFound(id)
	}
	return c, nil
}

func (s *CloneService) GetByName(ctx context.Context, name string) (*store.Clone, error) {
	c, err := s.store.GetCloneByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load clone: %w", err)
	}
	if c == nil {
		return nil, common.NotFound(fmt.Sprintf("Clone '%s' not found", name))
	}
	return c, nil
}

// Update applies the non-empty fields of in.
func (s *CloneService) Update(ctx context.Context, id string, in CloneInput) (*store.Clone, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" && name != c.Name {
		other, err := s.store.GetCloneByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to check clone name: %w", err)
		}
		if other != nil {
			return nil, cloneExists(name)
		}
		c.Name = name
	}
	if in.SpeakingStyle != "" {
		c.SpeakingStyle = in.SpeakingStyle
	}
	if in.FaceImage != "" {
		c.FaceImage = in.FaceImage
	}
	if len(in.Personality) > 0 {
		c.Personality = in.Personality
	}
	if len(in.FaceFeatures) > 0 {
		c.FaceFeatures = in.FaceFeatures
	}

	if err := s.store.UpdateClone(ctx, c); err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			return nil, cloneNotFound(id)
		case errors.Is(err, common.ErrAlreadyExists):
			return nil, cloneExists(c.Name)
		}
		return nil, fmt.Errorf("failed to update clone: %w", err)
	}
	return c, nil
}

// Delete removes the clone and returns its name.
func (s *CloneService) Delete(ctx context.Context, id string) (string, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.store.DeleteClone(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", cloneNotFound(id)
		}
		return "", fmt.Errorf("failed to delete clone: %w", err)
	}
	s.logger.WithField("clone", c.Name).Info("clone deleted")
	return c.Name, nil
}

// AddMemory appends one exchange and returns the clone's memory count.
func (s *CloneService) AddMemory(ctx context.Context, id, userMessage, cloneResponse string) (int, error) {
	n, err := s.store.AddCloneMemory(ctx, id, store.Memory{
		Timestamp:     time.Now().UTC(),
		UserMessage:   userMessage,
		CloneResponse: cloneResponse,
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return 0, cloneNotFound(id)
		}
		return 0, fmt.Errorf("failed to add memory: %w", err)
	}
	return n, nil
}

func (s *CloneService) Stats(ctx context.Context, id string) (*CloneStats, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CloneStats{
		ID:                 c.ID,
		Name:               c.Name,
		PersonalityAnswers: len(c.Personality),
		TotalMemories:      len(c.Memories),
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		HasFace:            c.FaceImage != "",
		HasFeatures:        len(c.FaceFeatures) > 0,
	}, nil
}
