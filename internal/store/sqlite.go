package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"gwi.com/aiclone/internal/common"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close(_ context.Context) error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        username TEXT UNIQUE NOT NULL,
        email TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'superadmin')),
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        email_verified BOOLEAN NOT NULL DEFAULT FALSE,
        reset_token TEXT,
        reset_token_created_at DATETIME,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS clones (
        id TEXT PRIMARY KEY, -- UUID
        name TEXT UNIQUE NOT NULL,
        personality_json TEXT NOT NULL DEFAULT '{}',
        speaking_style TEXT NOT NULL DEFAULT '',
        face_image TEXT,
        face_features_json TEXT,
        created_by TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_clones_created_by ON clones (created_by);

    CREATE TABLE IF NOT EXISTS clone_memories (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        clone_id TEXT NOT NULL,
        timestamp DATETIME NOT NULL,
        user_message TEXT NOT NULL,
        clone_response TEXT NOT NULL,
        FOREIGN KEY (clone_id) REFERENCES clones (id)
    );

    CREATE TABLE IF NOT EXISTS conversation_history (
        id TEXT PRIMARY KEY, -- UUID
        user_message TEXT NOT NULL,
        ai_response TEXT NOT NULL,
        user_name TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        timestamp DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_history_timestamp ON conversation_history (timestamp);

    CREATE TABLE IF NOT EXISTS learned_qa (
        question TEXT PRIMARY KEY,
        answer TEXT NOT NULL,
        confidence REAL NOT NULL,
        created_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS ai_profile (
        type TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        avatar TEXT NOT NULL,
        status TEXT NOT NULL,
        description TEXT NOT NULL,
        personality TEXT NOT NULL,
        color TEXT NOT NULL,
        updated_at DATETIME NOT NULL
    );

    `
	_, err := s.db.Exec(schema)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// User methods
const userColumns = "id, username, email, password_hash, role, is_active, email_verified, reset_token, reset_token_created_at, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var user User
	var resetToken sql.NullString
	var resetAt sql.NullTime
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role,
		&user.IsActive, &user.EmailVerified, &resetToken, &resetAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.ResetToken = resetToken.String
	if resetAt.Valid {
		user.ResetTokenCreatedAt = &resetAt.Time
	}
	return &user, nil
}

func (s *SQLiteStore) getUserWhere(ctx context.Context, clause string, arg any) (*User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+clause, arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUserWhere(ctx, "id = ?", id)
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUserWhere(ctx, "username = ?", username)
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUserWhere(ctx, "email = ?", email)
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.IsActive, u.EmailVerified,
		nullString(u.ResetToken), u.ResetTokenCreatedAt, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", u.Username, common.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
        UPDATE users SET username = ?, email = ?, password_hash = ?, role = ?, is_active = ?,
            email_verified = ?, reset_token = ?, reset_token_created_at = ?, updated_at = ?
        WHERE id = ?`,
		u.Username, u.Email, u.PasswordHash, u.Role, u.IsActive, u.EmailVerified,
		nullString(u.ResetToken), u.ResetTokenCreatedAt, u.UpdatedAt, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", u.Username, common.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to execute user update: %w", err)
	}
	return expectAffected(res, "user")
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectAffected(res, "user")
}

// Clone methods
const cloneColumns = "id, name, personality_json, speaking_style, face_image, face_features_json, created_by, created_at, updated_at"

func scanClone(row rowScanner) (*Clone, error) {
	var c Clone
	var personalityJSON string
	var faceImage, faceFeaturesJSON sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &personalityJSON, &c.SpeakingStyle, &faceImage,
		&faceFeaturesJSON, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(personalityJSON), &c.Personality); err != nil {
		return nil, fmt.Errorf("failed to unmarshal personality for clone %s: %w", c.ID, err)
	}
	c.FaceImage = faceImage.String
	if faceFeaturesJSON.Valid && faceFeaturesJSON.String != "" {
		if err := json.Unmarshal([]byte(faceFeaturesJSON.String), &c.FaceFeatures); err != nil {
			return nil, fmt.Errorf("failed to unmarshal face features for clone %s: %w", c.ID, err)
		}
	}
	return &c, nil
}

func marshalMap(m map[string]any) (string, error) {
	if m == nil {
		m = map[string]any{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *SQLiteStore) CreateClone(ctx context.Context, c *Clone) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	personality, err := marshalMap(c.Personality)
	if err != nil {
		return fmt.Errorf("failed to marshal personality: %w", err)
	}
	var features sql.NullString
	if c.FaceFeatures != nil {
		raw, err := marshalMap(c.FaceFeatures)
		if err != nil {
			return fmt.Errorf("failed to marshal face features: %w", err)
		}
		features = sql.NullString{String: raw, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin clone insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "INSERT INTO clones ("+cloneColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.Name, personality, c.SpeakingStyle, nullString(c.FaceImage), features, c.CreatedBy, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("clone %s: %w", c.Name, common.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert clone: %w", err)
	}
	for _, m := range c.Memories {
		if err := insertMemory(ctx, tx, c.ID, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertMemory(ctx context.Context, tx *sql.Tx, cloneID string, m Memory) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO clone_memories (clone_id, timestamp, user_message, clone_response) VALUES (?, ?, ?, ?)",
		cloneID, m.Timestamp, m.UserMessage, m.CloneResponse)
	if err != nil {
		return fmt.Errorf("failed to insert clone memory: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadMemories(ctx context.Context, c *Clone) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT timestamp, user_message, clone_response FROM clone_memories WHERE clone_id = ? ORDER BY id ASC", c.ID)
	if err != nil {
		return fmt.Errorf("failed to query clone memories: %w", err)
	}
	defer rows.Close()

	c.Memories = []Memory{}
	for rows.Next() {
		var m Memory
		if err := rows.Scan(&m.Timestamp, &m.UserMessage, &m.CloneResponse); err != nil {
			return fmt.Errorf("failed to scan clone memory row: %w", err)
		}
		c.Memories = append(c.Memories, m)
	}
	return rows.Err()
}

func (s *SQLiteStore) getCloneWhere(ctx context.Context, clause string, arg any) (*Clone, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+cloneColumns+" FROM clones WHERE "+clause, arg)
	c, err := scanClone(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get clone: %w", err)
	}
	if err := s.loadMemories(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SQLiteStore) GetClone(ctx context.Context, id string) (*Clone, error) {
	return s.getCloneWhere(ctx, "id = ?", id)
}

func (s *SQLiteStore) GetCloneByName(ctx context.Context, name string) (*Clone, error) {
	return s.getCloneWhere(ctx, "name = ?", name)
}

func (s *SQLiteStore) ListClones(ctx context.Context) ([]Clone, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+cloneColumns+" FROM clones ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query clones: %w", err)
	}
	var clones []Clone
	for rows.Next() {
		c, err := scanClone(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan clone row: %w", err)
		}
		clones = append(clones, *c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// memories are loaded after the cursor is released; the pool holds one connection
	for i := range clones {
		if err := s.loadMemories(ctx, &clones[i]); err != nil {
			return nil, err
		}
	}
	return clones, nil
}

func (s *SQLiteStore) UpdateClone(ctx context.Context, c *Clone) error {
	c.UpdatedAt = time.Now().UTC()
	personality, err := marshalMap(c.Personality)
	if err != nil {
		return fmt.Errorf("failed to marshal personality: %w", err)
	}
	var features sql.NullString
	if c.FaceFeatures != nil {
		raw, err := marshalMap(c.FaceFeatures)
		if err != nil {
			return fmt.Errorf("failed to marshal face features: %w", err)
		}
		features = sql.NullString{String: raw, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
        UPDATE clones SET name = ?, personality_json = ?, speaking_style = ?, face_image = ?,
            face_features_json = ?, updated_at = ?
        WHERE id = ?`,
		c.Name, personality, c.SpeakingStyle, nullString(c.FaceImage), features, c.UpdatedAt, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("clone %s: %w", c.Name, common.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to execute clone update: %w", err)
	}
	return expectAffected(res, "clone")
}

func (s *SQLiteStore) DeleteClone(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin clone delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM clone_memories WHERE clone_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete clone memories: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM clones WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete clone: %w", err)
	}
	if err := expectAffected(res, "clone"); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) AddCloneMemory(ctx context.Context, id string, m Memory) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin memory insert: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE clones SET updated_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return 0, fmt.Errorf("failed to touch clone: %w", err)
	}
	if err := expectAffected(res, "clone"); err != nil {
		return 0, err
	}
	if err := insertMemory(ctx, tx, id, m); err != nil {
		return 0, err
	}

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM clone_memories WHERE clone_id = ?", id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count clone memories: %w", err)
	}
	return count, tx.Commit()
}

// History methods
func (s *SQLiteStore) AppendHistory(ctx context.Context, e *HistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = e.Timestamp
	}

	stmt, err := s.db.PrepareContext(ctx,
		"INSERT INTO conversation_history (id, user_message, ai_response, user_name, created_at, timestamp) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare history insert: %w", err)
	}
	defer stmt.Close()

	if _, err = stmt.ExecContext(ctx, e.ID, e.UserMessage, e.AIResponse, e.UserName, e.CreatedAt, e.Timestamp); err != nil {
		return fmt.Errorf("failed to execute history insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) queryHistory(ctx context.Context, query string, args ...any) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.UserMessage, &e.AIResponse, &e.UserName, &e.CreatedAt, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) RecentHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	return s.queryHistory(ctx, `
        SELECT id, user_message, ai_response, user_name, created_at, timestamp
        FROM conversation_history
        ORDER BY timestamp DESC, rowid DESC
        LIMIT ?`, limit)
}

func (s *SQLiteStore) HistoryByUser(ctx context.Context, userName string, limit int) ([]HistoryEntry, error) {
	return s.queryHistory(ctx, `
        SELECT id, user_message, ai_response, user_name, created_at, timestamp
        FROM conversation_history
        WHERE user_name = ?
        ORDER BY timestamp DESC, rowid DESC
        LIMIT ?`, userName, limit)
}

func (s *SQLiteStore) ClearHistory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversation_history")
	if err != nil {
		return 0, fmt.Errorf("failed to delete history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Learned QA methods
func (s *SQLiteStore) UpsertLearned(ctx context.Context, qa LearnedQA) error {
	if qa.CreatedAt.IsZero() {
		qa.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO learned_qa (question, answer, confidence, created_at) VALUES (?, ?, ?, ?)
        ON CONFLICT(question) DO UPDATE SET answer = excluded.answer,
            confidence = excluded.confidence, created_at = excluded.created_at`,
		qa.Question, qa.Answer, qa.Confidence, qa.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert learned qa: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListLearned(ctx context.Context, limit int) ([]LearnedQA, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT question, answer, confidence, created_at FROM learned_qa ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query learned qa: %w", err)
	}
	defer rows.Close()

	var out []LearnedQA
	for rows.Next() {
		var qa LearnedQA
		if err := rows.Scan(&qa.Question, &qa.Answer, &qa.Confidence, &qa.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan learned qa row: %w", err)
		}
		out = append(out, qa)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteLearned(ctx context.Context, question string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM learned_qa WHERE question = ?", question)
	if err != nil {
		return false, fmt.Errorf("failed to delete learned qa: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Profile methods
func (s *SQLiteStore) GetProfile(ctx context.Context) (*AIProfile, error) {
	var p AIProfile
	err := s.db.QueryRowContext(ctx,
		"SELECT type, name, avatar, status, description, personality, color, updated_at FROM ai_profile WHERE type = ?",
		ProfileTypeMain).Scan(&p.Type, &p.Name, &p.Avatar, &p.Status, &p.Description, &p.Personality, &p.Color, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ai profile: %w", err)
	}
	return &p, nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, p *AIProfile) error {
	p.Type = ProfileTypeMain
	p.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO ai_profile (type, name, avatar, status, description, personality, color, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(type) DO UPDATE SET name = excluded.name, avatar = excluded.avatar,
            status = excluded.status, description = excluded.description,
            personality = excluded.personality, color = excluded.color, updated_at = excluded.updated_at`,
		p.Type, p.Name, p.Avatar, p.Status, p.Description, p.Personality, p.Color, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save ai profile: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func expectAffected(res sql.Result, what string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return nil
}
