package store

import "time"

const (
	RoleUser       = "user"
	RoleSuperadmin = "superadmin"
)

type User struct {
	ID                  string     `json:"id" bson:"_id"`
	Username            string     `json:"username" bson:"username"`
	Email               string     `json:"email" bson:"email"`
	PasswordHash        string     `json:"-" bson:"password_hash"` // Never exposed in responses
	Role                string     `json:"role" bson:"role"`
	IsActive            bool       `json:"is_active" bson:"is_active"`
	EmailVerified       bool       `json:"email_verified" bson:"email_verified"`
	ResetToken          string     `json:"-" bson:"reset_token,omitempty"`
	ResetTokenCreatedAt *time.Time `json:"-" bson:"reset_token_created_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" bson:"updated_at"`
}

type Memory struct {
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
	UserMessage   string    `json:"user_message" bson:"user_message"`
	CloneResponse string    `json:"clone_response" bson:"clone_response"`
}

type Clone struct {
	ID            string         `json:"id" bson:"_id"`
	Name          string         `json:"name" bson:"name"`
	Personality   map[string]any `json:"personality" bson:"personality"`
	SpeakingStyle string         `json:"speaking_style" bson:"speaking_style"`
	FaceImage     string         `json:"face_image,omitempty" bson:"face_image,omitempty"` // base64
	FaceFeatures  map[string]any `json:"face_features,omitempty" bson:"face_features,omitempty"`
	Memories      []Memory       `json:"memories" bson:"memories"`
	CreatedBy     string         `json:"created_by" bson:"created_by"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" bson:"updated_at"`
}

// HistoryEntry is one resolved chat exchange. Entries are only appended or cleared in bulk.
type HistoryEntry struct {
	ID          string    `json:"id" bson:"_id"`
	UserMessage string    `json:"user_message" bson:"user_message"`
	AIResponse  string    `json:"ai_response" bson:"ai_response"`
	UserName    string    `json:"user_name" bson:"user_name"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
}

// LearnedQA is keyed by Question; writes upsert.
type LearnedQA struct {
	Question   string    `json:"question" bson:"question"`
	Answer     string    `json:"answer" bson:"answer"`
	Confidence float64   `json:"confidence" bson:"confidence"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

const ProfileTypeMain = "main"

type AIProfile struct {
	Type        string    `json:"type" bson:"type"`
	Name        string    `json:"name" bson:"name"`
	Avatar      string    `json:"avatar" bson:"avatar"`
	Status      string    `json:"status" bson:"status"`
	Description string    `json:"description" bson:"description"`
	Personality string    `json:"personality" bson:"personality"`
	Color       string    `json:"color" bson:"color"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

func DefaultProfile() AIProfile {
	return AIProfile{
		Type:        ProfileTypeMain,
		Name:        "AIClone",
		Avatar:      "🤖",
		Status:      "Online",
		Description: "AI version of you - blunt, playful, teasing, witty, friendly",
		Personality: "Friendly, witty, casual",
		Color:       "#0066FF",
		UpdatedAt:   time.Now().UTC(),
	}
}
