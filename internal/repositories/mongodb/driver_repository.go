package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/utils"
)

type driverRepository struct {
	collection *mongo.Collection
}

func NewDriverRepository(db *mongo.Database) interfaces.DriverRepository {
	return &driverRepository{collection: db.Collection(utils.CollectionDrivers)}
}

func (r *driverRepository) Create(ctx context.Context, driver *models.DriverProfile) error {
	driver.CreatedAt = time.Now()
	driver.UpdatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, driver); err != nil {
		return storeError("create driver", err)
	}
	return nil
}

func (r *driverRepository) GetByID(ctx context.Context, id string) (*models.DriverProfile, error) {
	var driver models.DriverProfile
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&driver); err != nil {
		return nil, storeError("get driver", err)
	}
	return &driver, nil
}

func (r *driverRepository) UpdateLocation(ctx context.Context, id string, location models.LocationSample) error {
	update := bson.M{
		"$set": bson.M{
			"current_location": location,
			"updated_at":       time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return storeError("update driver location", err)
	}
	if result.MatchedCount == 0 {
		return storeError("update driver location", mongo.ErrNoDocuments)
	}
	return nil
}
