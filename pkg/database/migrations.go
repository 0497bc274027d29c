package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"swiftresponse/internal/models"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/logger"
)

const migrationsCollection = "migrations"

type Migration struct {
	Version     int
	Description string
	Up          func(context.Context, *mongo.Database) error
	Down        func(context.Context, *mongo.Database) error
}

type Migrator struct {
	db         *mongo.Database
	migrations []Migration
	logger     *logger.Logger
}

func NewMigrator(db *mongo.Database, log *logger.Logger) *Migrator {
	return &Migrator{
		db:         db,
		migrations: getMigrations(),
		logger:     log.WithField("component", "migrator"),
	}
}

func (m *Migrator) Up(ctx context.Context) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}
		m.logger.Infof("Running migration %d: %s", migration.Version, migration.Description)

		if err := migration.Up(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if err := m.updateVersion(ctx, migration.Version); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}
	}
	return nil
}

func (m *Migrator) Down(ctx context.Context, targetVersion int) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		migration := m.migrations[i]
		if migration.Version > currentVersion || migration.Version <= targetVersion {
			continue
		}
		m.logger.Infof("Reverting migration %d: %s", migration.Version, migration.Description)

		if err := migration.Down(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d rollback failed: %w", migration.Version, err)
		}

		previousVersion := targetVersion
		if i > 0 {
			previousVersion = m.migrations[i-1].Version
		}
		if err := m.updateVersion(ctx, previousVersion); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}
	}
	return nil
}

func (m *Migrator) getCurrentVersion(ctx context.Context) (int, error) {
	var result struct {
		Version int `bson:"version"`
	}

	err := m.db.Collection(migrationsCollection).FindOne(ctx, bson.D{}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return result.Version, nil
}

func (m *Migrator) updateVersion(ctx context.Context, version int) error {
	_, err := m.db.Collection(migrationsCollection).ReplaceOne(
		ctx,
		bson.D{},
		bson.D{{Key: "version", Value: version}, {Key: "updated_at", Value: time.Now()}},
		options.Replace().SetUpsert(true),
	)
	return err
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create emergency_requests indexes",
			Up:          createIndexes(models.EmergencyTable, emergencyIndexes()),
			Down:        dropIndexes(models.EmergencyTable),
		},
		{
			Version:     2,
			Description: "Create users and medical_profiles indexes",
			Up: func(ctx context.Context, db *mongo.Database) error {
				if err := createIndexes(utils.CollectionUsers, userIndexes())(ctx, db); err != nil {
					return err
				}
				return createIndexes(utils.CollectionMedicalProfiles, medicalProfileIndexes())(ctx, db)
			},
			Down: func(ctx context.Context, db *mongo.Database) error {
				if err := dropIndexes(utils.CollectionUsers)(ctx, db); err != nil {
					return err
				}
				return dropIndexes(utils.CollectionMedicalProfiles)(ctx, db)
			},
		},
		{
			Version:     3,
			Description: "Seed curated hospitals",
			Up:          seedHospitals,
			Down: func(ctx context.Context, db *mongo.Database) error {
				ids := make([]string, 0, 5)
				for _, h := range models.CuratedHospitals() {
					ids = append(ids, h.ID)
				}
				_, err := db.Collection(utils.CollectionHospitals).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
				return err
			},
		},
	}
}

func emergencyIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "assigned_hospital_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "assigned_driver_id", Value: 1}}},
		{Keys: bson.D{{Key: "patient.user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
}

func userIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
}

func medicalProfileIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "identity_value", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
}

func createIndexes(collection string, indexes []mongo.IndexModel) func(context.Context, *mongo.Database) error {
	return func(ctx context.Context, db *mongo.Database) error {
		_, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes)
		return err
	}
}

func dropIndexes(collection string) func(context.Context, *mongo.Database) error {
	return func(ctx context.Context, db *mongo.Database) error {
		_, err := db.Collection(collection).Indexes().DropAll(ctx)
		return err
	}
}

// seedHospitals upserts the curated set so reruns keep operator edits to
// fields the seed does not set.
func seedHospitals(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(utils.CollectionHospitals)
	now := time.Now()
	for _, h := range models.CuratedHospitals() {
		_, err := coll.UpdateOne(ctx,
			bson.M{"_id": h.ID},
			bson.M{
				"$set": bson.M{
					"name":        h.Name,
					"specialty":   h.Specialty,
					"address":     h.Address,
					"coordinates": h.Coordinates,
					"active":      h.Active,
				},
				"$setOnInsert": bson.M{"created_at": now},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("failed to seed hospital %s: %w", h.ID, err)
		}
	}
	return nil
}
