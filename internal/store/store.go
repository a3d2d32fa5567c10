package store

import (
	"context"
	"fmt"
)

// Lookups return (nil, nil) when the record does not exist. Updates and
// deletes of missing records return common.ErrNotFound, and unique-key
// violations return common.ErrAlreadyExists.

type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id string) error
}

type CloneStore interface {
	CreateClone(ctx context.Context, c *Clone) error
	GetClone(ctx context.Context, id string) (*Clone, error)
	GetCloneByName(ctx context.Context, name string) (*Clone, error)
	ListClones(ctx context.Context) ([]Clone, error)
	UpdateClone(ctx context.Context, c *Clone) error
	DeleteClone(ctx context.Context, id string) error
	// AddCloneMemory appends m and returns the new memory count.
	AddCloneMemory(ctx context.Context, id string, m Memory) (int, error)
}

type HistoryStore interface {
	AppendHistory(ctx context.Context, e *HistoryEntry) error
	// RecentHistory returns up to limit entries, newest first.
	RecentHistory(ctx context.Context, limit int) ([]HistoryEntry, error)
	// HistoryByUser returns up to limit entries for userName, newest first.
	HistoryByUser(ctx context.Context, userName string, limit int) ([]HistoryEntry, error)
	ClearHistory(ctx context.Context) (int64, error)
}

type LearnedStore interface {
	UpsertLearned(ctx context.Context, qa LearnedQA) error
	// ListLearned returns entries newest first; limit <= 0 means all.
	ListLearned(ctx context.Context, limit int) ([]LearnedQA, error)
	DeleteLearned(ctx context.Context, question string) (bool, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context) (*AIProfile, error)
	SaveProfile(ctx context.Context, p *AIProfile) error
}

// Store is implemented by the Mongo and SQLite backends.
type Store interface {
	UserStore
	CloneStore
	HistoryStore
	LearnedStore
	ProfileStore
	Close(ctx context.Context) error
}

// Open builds the backend named by driver.
func Open(ctx context.Context, driver, mongoURL, mongoDB, sqlitePath string) (Store, error) {
	switch driver {
	case "mongo":
		return NewMongoStore(ctx, mongoURL, mongoDB)
	case "sqlite":
		return NewSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
