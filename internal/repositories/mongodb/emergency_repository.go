package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/utils"
)

const closedEmergencyTTL = 30 * time.Minute

type emergencyRepository struct {
	collection *mongo.Collection
	cache      CacheService
}

func NewEmergencyRepository(db *mongo.Database, cache CacheService) interfaces.EmergencyRepository {
	return &emergencyRepository{
		collection: db.Collection(models.EmergencyTable),
		cache:      cache,
	}
}

func (r *emergencyRepository) Create(ctx context.Context, emergency *models.EmergencyRecord) error {
	now := time.Now()
	if emergency.CreatedAt.IsZero() {
		emergency.CreatedAt = now
	}
	emergency.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, emergency); err != nil {
		return storeError("create emergency", err)
	}
	return nil
}

func (r *emergencyRepository) GetByID(ctx context.Context, id string) (*models.EmergencyRecord, error) {
	if emergency := r.getEmergencyFromCache(ctx, id); emergency != nil {
		return emergency, nil
	}

	var emergency models.EmergencyRecord
	if err := r.collection.FindOne(ctx, bson.M{models.FieldID: id}).Decode(&emergency); err != nil {
		return nil, storeError("get emergency", err)
	}

	r.cacheEmergency(ctx, &emergency)
	return &emergency, nil
}

func (r *emergencyRepository) List(ctx context.Context, filter models.EmergencyFilter) ([]*models.EmergencyRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: models.FieldCreatedAt, Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return r.find(ctx, buildFilter(filter), opts)
}

func buildFilter(f models.EmergencyFilter) bson.M {
	filter := bson.M{}
	if len(f.Status) == 1 {
		filter[models.FieldStatus] = f.Status[0]
	} else if len(f.Status) > 1 {
		filter[models.FieldStatus] = bson.M{"$in": f.Status}
	}
	if f.AssignedHospitalID != "" {
		filter[models.FieldAssignedHospitalID] = f.AssignedHospitalID
	}
	if f.AssignedDriverID != "" {
		filter[models.FieldAssignedDriverID] = f.AssignedDriverID
	}
	if f.PatientUserID != "" {
		filter["patient.user_id"] = f.PatientUserID
	}
	if f.CreatedAfter != nil {
		filter[models.FieldCreatedAt] = bson.M{"$gt": *f.CreatedAfter}
	}
	return filter
}

func (r *emergencyRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.EmergencyRecord, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, storeError("find emergencies", err)
	}
	defer cursor.Close(ctx)

	var emergencies []*models.EmergencyRecord
	for cursor.Next(ctx) {
		var emergency models.EmergencyRecord
		if err := cursor.Decode(&emergency); err != nil {
			return nil, fmt.Errorf("failed to decode emergency: %w", err)
		}
		emergencies = append(emergencies, &emergency)
	}
	if err := cursor.Err(); err != nil {
		return nil, storeError("iterate emergencies", err)
	}
	return emergencies, nil
}

// CompareAndSwapStatus matches on both id and status so the write is a
// single atomic document update.
func (r *emergencyRepository) CompareAndSwapStatus(ctx context.Context, id string, expected models.EmergencyStatus, fields map[string]interface{}) (*models.EmergencyRecord, error) {
	filter := bson.M{models.FieldID: id, models.FieldStatus: expected}
	updated, err := r.findAndSet(ctx, filter, fields)
	if err == nil {
		return updated, nil
	}
	if !isNoDocuments(err) {
		return nil, storeError("update emergency status", err)
	}

	current, getErr := r.loadStatus(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("emergency %s is %s, expected %s: %w", id, current, expected, interfaces.ErrStatusConflict)
}

func (r *emergencyRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*models.EmergencyRecord, error) {
	filter := bson.M{
		models.FieldID:     id,
		models.FieldStatus: bson.M{"$nin": models.TerminalStatuses},
	}
	updated, err := r.findAndSet(ctx, filter, fields)
	if err == nil {
		return updated, nil
	}
	if !isNoDocuments(err) {
		return nil, storeError("update emergency", err)
	}

	if _, getErr := r.loadStatus(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("emergency %s: %w", id, interfaces.ErrRecordClosed)
}

func (r *emergencyRepository) findAndSet(ctx context.Context, filter bson.M, fields map[string]interface{}) (*models.EmergencyRecord, error) {
	set := bson.M{models.FieldUpdatedAt: time.Now()}
	for k, v := range fields {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var emergency models.EmergencyRecord
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&emergency)
	if err != nil {
		return nil, err
	}

	r.invalidateEmergencyCache(ctx, emergency.ID)
	r.cacheEmergency(ctx, &emergency)
	return &emergency, nil
}

// loadStatus bypasses the cache so conflict reports see the stored value.
func (r *emergencyRepository) loadStatus(ctx context.Context, id string) (models.EmergencyStatus, error) {
	var doc struct {
		Status models.EmergencyStatus `bson:"status"`
	}
	opts := options.FindOne().SetProjection(bson.M{models.FieldStatus: 1})
	if err := r.collection.FindOne(ctx, bson.M{models.FieldID: id}, opts).Decode(&doc); err != nil {
		return "", storeError("get emergency "+id, err)
	}
	return doc.Status, nil
}

func (r *emergencyRepository) CountByStatus(ctx context.Context) (map[models.EmergencyStatus]int64, error) {
	pipeline := []bson.M{
		{"$match": bson.M{models.FieldStatus: bson.M{"$nin": models.TerminalStatuses}}},
		{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, storeError("count emergencies by status", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[models.EmergencyStatus]int64)
	for cursor.Next(ctx) {
		var result struct {
			Status models.EmergencyStatus `bson:"_id"`
			Count  int64                  `bson:"count"`
		}
		if err := cursor.Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode status count: %w", err)
		}
		counts[result.Status] = result.Count
	}
	return counts, nil
}

func (r *emergencyRepository) ListStale(ctx context.Context, status models.EmergencyStatus, olderThan time.Time) ([]*models.EmergencyRecord, error) {
	filter := bson.M{
		models.FieldStatus:    status,
		models.FieldCreatedAt: bson.M{"$lt": olderThan},
	}
	opts := options.Find().SetSort(bson.D{{Key: models.FieldCreatedAt, Value: 1}})
	return r.find(ctx, filter, opts)
}

func isNoDocuments(err error) bool {
	return err == mongo.ErrNoDocuments
}

// Only closed records are cached. Open records change on every transition
// and may be written by other instances.
func (r *emergencyRepository) cacheEmergency(ctx context.Context, emergency *models.EmergencyRecord) {
	if r.cache != nil && emergency.Status.IsTerminal() {
		r.cache.Set(ctx, utils.CacheEmergencyPrefix+emergency.ID, emergency, closedEmergencyTTL)
	}
}

func (r *emergencyRepository) getEmergencyFromCache(ctx context.Context, emergencyID string) *models.EmergencyRecord {
	if r.cache == nil {
		return nil
	}

	var emergency models.EmergencyRecord
	if err := r.cache.Get(ctx, utils.CacheEmergencyPrefix+emergencyID, &emergency); err != nil {
		return nil
	}
	return &emergency
}

func (r *emergencyRepository) invalidateEmergencyCache(ctx context.Context, emergencyID string) {
	if r.cache != nil {
		r.cache.Delete(ctx, utils.CacheEmergencyPrefix+emergencyID)
	}
}
