package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/utils"
)

const userCacheTTL = 15 * time.Minute

type userRepository struct {
	collection *mongo.Collection
	cache      CacheService
}

func NewUserRepository(db *mongo.Database, cache CacheService) interfaces.UserRepository {
	return &userRepository{
		collection: db.Collection(utils.CollectionUsers),
		cache:      cache,
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.UserProfile) error {
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		return storeError("create user", err)
	}

	r.cacheUser(ctx, user)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	if user := r.getUserFromCache(ctx, id); user != nil {
		return user, nil
	}

	var user models.UserProfile
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, storeError("get user", err)
	}

	r.cacheUser(ctx, &user)
	return &user, nil
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := r.collection.FindOne(ctx, bson.M{"phone": phone}).Decode(&user); err != nil {
		return nil, storeError("get user by phone", err)
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	set := bson.M{"updated_at": time.Now()}
	for k, v := range updates {
		set[k] = v
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return storeError("update user", err)
	}
	if result.MatchedCount == 0 {
		return storeError("update user", mongo.ErrNoDocuments)
	}

	r.invalidateUserCache(ctx, id)
	return nil
}

func (r *userRepository) cacheUser(ctx context.Context, user *models.UserProfile) {
	if r.cache != nil {
		r.cache.Set(ctx, "user:"+user.ID, user, userCacheTTL)
	}
}

func (r *userRepository) getUserFromCache(ctx context.Context, userID string) *models.UserProfile {
	if r.cache == nil {
		return nil
	}

	var user models.UserProfile
	if err := r.cache.Get(ctx, "user:"+userID, &user); err != nil {
		return nil
	}
	return &user
}

func (r *userRepository) invalidateUserCache(ctx context.Context, userID string) {
	if r.cache != nil {
		r.cache.Delete(ctx, "user:"+userID)
	}
}

type medicalProfileRepository struct {
	collection *mongo.Collection
}

func NewMedicalProfileRepository(db *mongo.Database) interfaces.MedicalProfileRepository {
	return &medicalProfileRepository{collection: db.Collection(utils.CollectionMedicalProfiles)}
}

// Upsert keys profiles by user id so each patient has at most one.
func (r *medicalProfileRepository) Upsert(ctx context.Context, profile *models.MedicalProfile) error {
	if profile.ID == "" {
		profile.ID = profile.UserID
	}
	profile.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"user_id": profile.UserID}, profile, opts); err != nil {
		return storeError("upsert medical profile", err)
	}
	return nil
}

func (r *medicalProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.MedicalProfile, error) {
	var profile models.MedicalProfile
	if err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&profile); err != nil {
		return nil, storeError("get medical profile", err)
	}
	return &profile, nil
}

func (r *medicalProfileRepository) GetByIdentity(ctx context.Context, identityValue string) (*models.MedicalProfile, error) {
	if identityValue == "" {
		return nil, storeError("get medical profile by identity", mongo.ErrNoDocuments)
	}

	var profile models.MedicalProfile
	if err := r.collection.FindOne(ctx, bson.M{"identity_value": identityValue}).Decode(&profile); err != nil {
		return nil, storeError("get medical profile by identity", err)
	}
	return &profile, nil
}
