package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gwi.com/aiclone/internal/common"
)

// Collection names
const (
	CollectionUsers   = "users"
	CollectionClones  = "clones"
	CollectionHistory = "conversation_history"
	CollectionLearned = "learned_qa"
	CollectionProfile = "ai_profile"
)

type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoStore connects, pings and ensures indexes.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &MongoStore{client: client, database: client.Database(dbName)}
	if err := s.Initialize(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// NewMongoStoreFromDatabase wraps an existing database handle without creating indexes.
func NewMongoStoreFromDatabase(db *mongo.Database) *MongoStore {
	return &MongoStore{client: db.Client(), database: db}
}

// Initialize creates indexes for all collections
func (s *MongoStore) Initialize(ctx context.Context) error {
	if err := s.createIndexes(ctx, CollectionUsers, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}

	if err := s.createIndexes(ctx, CollectionClones, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create clones indexes: %w", err)
	}

	if err := s.createIndexes(ctx, CollectionHistory, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "user_name", Value: 1}, {Key: "timestamp", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create history indexes: %w", err)
	}

	if err := s.createIndexes(ctx, CollectionLearned, []mongo.IndexModel{
		{Keys: bson.D{{Key: "question", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return fmt.Errorf("failed to create learned_qa indexes: %w", err)
	}

	if err := s.createIndexes(ctx, CollectionProfile, []mongo.IndexModel{
		{Keys: bson.D{{Key: "type", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return fmt.Errorf("failed to create ai_profile indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) createIndexes(ctx context.Context, collection string, indexes []mongo.IndexModel) error {
	_, err := s.database.Collection(collection).Indexes().CreateMany(ctx, indexes)
	return err
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.database.Collection(name)
}

func newObjectID() string {
	return primitive.NewObjectID().Hex()
}

// findOne decodes the first match into out, reporting false when nothing matched.
func findOne(ctx context.Context, coll *mongo.Collection, filter any, out any) (bool, error) {
	err := coll.FindOne(ctx, filter).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func duplicateOr(err error, what, key string) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s %s: %w", what, key, common.ErrAlreadyExists)
	}
	return err
}

// User methods
func (s *MongoStore) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = newObjectID()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	if _, err := s.collection(CollectionUsers).InsertOne(ctx, u); err != nil {
		return fmt.Errorf("failed to insert user: %w", duplicateOr(err, "user", u.Username))
	}
	return nil
}

func (s *MongoStore) getUser(ctx context.Context, filter bson.M) (*User, error) {
	var user User
	found, err := findOne(ctx, s.collection(CollectionUsers), filter, &user)
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUser(ctx, bson.M{"username": username})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) ListUsers(ctx context.Context) ([]User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.collection(CollectionUsers).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (s *MongoStore) UpdateUser(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.collection(CollectionUsers).ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", duplicateOr(err, "user", u.Username))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user: %w", common.ErrNotFound)
	}
	return nil
}

func (s *MongoStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.collection(CollectionUsers).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("user: %w", common.ErrNotFound)
	}
	return nil
}

// Clone methods
func (s *MongoStore) CreateClone(ctx context.Context, c *Clone) error {
	if c.ID == "" {
		c.ID = newObjectID()
	}
	if c.Memories == nil {
		c.Memories = []Memory{}
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	if _, err := s.collection(CollectionClones).InsertOne(ctx, c); err != nil {
		return fmt.Errorf("failed to insert clone: %w", duplicateOr(err, "clone", c.Name))
	}
	return nil
}

func (s *MongoStore) getClone(ctx context.Context, filter bson.M) (*Clone, error) {
	var c Clone
	found, err := findOne(ctx, s.collection(CollectionClones), filter, &c)
	if err != nil {
		return nil, fmt.Errorf("failed to get clone: %w", err)
	}
	if !found {
		return nil, nil
	}
	if c.Memories == nil {
		c.Memories = []Memory{}
	}
	return &c, nil
}

func (s *MongoStore) GetClone(ctx context.Context, id string) (*Clone, error) {
	return s.getClone(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetCloneByName(ctx context.Context, name string) (*Clone, error) {
	return s.getClone(ctx, bson.M{"name": name})
}

func (s *MongoStore) ListClones(ctx context.Context) ([]Clone, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.collection(CollectionClones).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query clones: %w", err)
	}
	var clones []Clone
	if err := cursor.All(ctx, &clones); err != nil {
		return nil, fmt.Errorf("failed to decode clones: %w", err)
	}
	return clones, nil
}

func (s *MongoStore) UpdateClone(ctx context.Context, c *Clone) error {
	c.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"name":           c.Name,
		"personality":    c.Personality,
		"speaking_style": c.SpeakingStyle,
		"face_image":     c.FaceImage,
		"face_features":  c.FaceFeatures,
		"updated_at":     c.UpdatedAt,
	}
	res, err := s.collection(CollectionClones).UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update clone: %w", duplicateOr(err, "clone", c.Name))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("clone: %w", common.ErrNotFound)
	}
	return nil
}

func (s *MongoStore) DeleteClone(ctx context.Context, id string) error {
	res, err := s.collection(CollectionClones).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete clone: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("clone: %w", common.ErrNotFound)
	}
	return nil
}

func (s *MongoStore) AddCloneMemory(ctx context.Context, id string, m Memory) (int, error) {
	update := bson.M{
		"$push": bson.M{"memories": m},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"memories": 1})

	var updated Clone
	err := s.collection(CollectionClones).FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, fmt.Errorf("clone: %w", common.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to push clone memory: %w", err)
	}
	return len(updated.Memories), nil
}

// History methods
func (s *MongoStore) AppendHistory(ctx context.Context, e *HistoryEntry) error {
	if e.ID == "" {
		e.ID = newObjectID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = e.Timestamp
	}
	if _, err := s.collection(CollectionHistory).InsertOne(ctx, e); err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

func (s *MongoStore) findHistory(ctx context.Context, filter bson.M, limit int) ([]HistoryEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.collection(CollectionHistory).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	var entries []HistoryEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return entries, nil
}

func (s *MongoStore) RecentHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	return s.findHistory(ctx, bson.M{}, limit)
}

func (s *MongoStore) HistoryByUser(ctx context.Context, userName string, limit int) ([]HistoryEntry, error) {
	return s.findHistory(ctx, bson.M{"user_name": userName}, limit)
}

func (s *MongoStore) ClearHistory(ctx context.Context) (int64, error) {
	res, err := s.collection(CollectionHistory).DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to delete history: %w", err)
	}
	return res.DeletedCount, nil
}

// Learned QA methods
func (s *MongoStore) UpsertLearned(ctx context.Context, qa LearnedQA) error {
	if qa.CreatedAt.IsZero() {
		qa.CreatedAt = time.Now().UTC()
	}
	_, err := s.collection(CollectionLearned).UpdateOne(ctx,
		bson.M{"question": qa.Question},
		bson.M{"$set": bson.M{
			"answer":     qa.Answer,
			"confidence": qa.Confidence,
			"created_at": qa.CreatedAt,
		}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert learned qa: %w", err)
	}
	return nil
}

func (s *MongoStore) ListLearned(ctx context.Context, limit int) ([]LearnedQA, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"_id": 0})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.collection(CollectionLearned).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query learned qa: %w", err)
	}
	var out []LearnedQA
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode learned qa: %w", err)
	}
	return out, nil
}

func (s *MongoStore) DeleteLearned(ctx context.Context, question string) (bool, error) {
	res, err := s.collection(CollectionLearned).DeleteOne(ctx, bson.M{"question": question})
	if err != nil {
		return false, fmt.Errorf("failed to delete learned qa: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// Profile methods
func (s *MongoStore) GetProfile(ctx context.Context) (*AIProfile, error) {
	var p AIProfile
	found, err := findOne(ctx, s.collection(CollectionProfile), bson.M{"type": ProfileTypeMain}, &p)
	if err != nil {
		return nil, fmt.Errorf("failed to get ai profile: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

func (s *MongoStore) SaveProfile(ctx context.Context, p *AIProfile) error {
	p.Type = ProfileTypeMain
	p.UpdatedAt = time.Now().UTC()
	_, err := s.collection(CollectionProfile).ReplaceOne(ctx,
		bson.M{"type": ProfileTypeMain}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save ai profile: %w", err)
	}
	return nil
}
