package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/utils"
)

type hospitalRepository struct {
	collection *mongo.Collection
}

func NewHospitalRepository(db *mongo.Database) interfaces.HospitalRepository {
	return &hospitalRepository{collection: db.Collection(utils.CollectionHospitals)}
}

func (r *hospitalRepository) GetByID(ctx context.Context, id string) (*models.Hospital, error) {
	var hospital models.Hospital
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&hospital); err != nil {
		return nil, storeError("get hospital", err)
	}
	return &hospital, nil
}

func (r *hospitalRepository) ListActive(ctx context.Context) ([]*models.Hospital, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		return nil, storeError("list hospitals", err)
	}
	defer cursor.Close(ctx)

	var hospitals []*models.Hospital
	if err := cursor.All(ctx, &hospitals); err != nil {
		return nil, storeError("decode hospitals", err)
	}
	return hospitals, nil
}

func (r *hospitalRepository) Upsert(ctx context.Context, hospital *models.Hospital) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": hospital.ID}, hospital, opts); err != nil {
		return storeError("upsert hospital", err)
	}
	return nil
}

func (r *hospitalRepository) AddDeviceToken(ctx context.Context, id, token string) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"device_tokens": token}},
	)
	if err != nil {
		return storeError("add hospital device token", err)
	}
	if result.MatchedCount == 0 {
		return storeError("add hospital device token", mongo.ErrNoDocuments)
	}
	return nil
}
