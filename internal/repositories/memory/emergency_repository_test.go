package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
)

func newRecord(id string) *models.EmergencyRecord {
	return &models.EmergencyRecord{
		ID:            id,
		EmergencyType: models.EmergencyTypeCardiac,
		Patient:       models.PatientSnapshot{UserID: "user-1", Name: "Asha", Phone: "+919876543210"},
		Location:      models.EmergencyLocation{Latitude: 26.9124, Longitude: 75.7873},
		Status:        models.EmergencyStatusPending,
	}
}

func TestEmergencyRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewEmergencyRepository()

	require.NoError(t, repo.Create(ctx, newRecord("em-1")))
	err := repo.Create(ctx, newRecord("em-1"))
	assert.ErrorIs(t, err, interfaces.ErrDuplicate)

	got, err := repo.GetByID(ctx, "em-1")
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyStatusPending, got.Status)
	assert.Equal(t, "Asha", got.Patient.Name)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestEmergencyRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewEmergencyRepository()
	require.NoError(t, repo.Create(ctx, newRecord("em-1")))

	got, err := repo.GetByID(ctx, "em-1")
	require.NoError(t, err)
	got.Status = models.EmergencyStatusAdmitted

	again, err := repo.GetByID(ctx, "em-1")
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyStatusPending, again.Status)
}

func TestEmergencyRepository_CompareAndSwapStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewEmergencyRepository()
	require.NoError(t, repo.Create(ctx, newRecord("em-1")))

	updated, err := repo.CompareAndSwapStatus(ctx, "em-1", models.EmergencyStatusPending, map[string]interface{}{
		models.FieldStatus:             models.EmergencyStatusHospitalAssigned,
		models.FieldAssignedHospitalID: "hosp-001",
	})
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyStatusHospitalAssigned, updated.Status)
	assert.Equal(t, "hosp-001", updated.AssignedHospitalID)
	assert.Equal(t, "Asha", updated.Patient.Name)

	_, err = repo.CompareAndSwapStatus(ctx, "em-1", models.EmergencyStatusPending, map[string]interface{}{
		models.FieldStatus: models.EmergencyStatusDispatched,
	})
	assert.ErrorIs(t, err, interfaces.ErrStatusConflict)

	_, err = repo.CompareAndSwapStatus(ctx, "missing", models.EmergencyStatusPending, map[string]interface{}{
		models.FieldStatus: models.EmergencyStatusDispatched,
	})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestEmergencyRepository_CompareAndSwapRace(t *testing.T) {
	ctx := context.Background()
	repo := NewEmergencyRepository()
	rec := newRecord("em-1")
	rec.Status = models.EmergencyStatusHospitalAssigned
	require.NoError(t, repo.Create(ctx, rec))

	const racers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []string
		conflicts int
	)
	for i := 0; i < racers; i++ {
		driverID := "driver-" + string(rune('a'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CompareAndSwapStatus(ctx, "em-1", models.EmergencyStatusHospitalAssigned, map[string]interface{}{
				models.FieldStatus:           models.EmergencyStatusDispatched,
				models.FieldAssignedDriverID: driverID,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, driverID)
				return
			}
			assert.ErrorIs(t, err, interfaces.ErrStatusConflict)
			conflicts++
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, racers-1, conflicts)

	got, err := repo.GetByID(ctx, "em-1")
	require.NoError(t, err)
	assert.Equal(t, winners[0], got.AssignedDriverID)
	assert.Equal(t, models.EmergencyStatusDispatched, got.Status)
}

func TestEmergencyRepository_UpdateFieldsRejectsClosedRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewEmergencyRepository()
	rec := newRecord("em-1")
	rec.Status = models.EmergencyStatusTransporting
	require.NoError(t, repo.Create(ctx, rec))

	sample := models.LocationSample{Latitude: 26.8, Longitude: 75.8, Accuracy: 12}
	updated, err := repo.UpdateFields(ctx, "em-1", map[string]interface{}{models.FieldDriverLocation: sample})
	require.NoError(t, err)
	require.NotNil(t, updated.DriverLocation)
	assert.InDelta(t, 26.8, updated.DriverLocation.Latitude, 1e-9)

	_, err = repo.CompareAndSwapStatus(ctx, "em-1", models.EmergencyStatusTransporting, map[string]interface{}{
		models.FieldStatus: models.EmergencyStatusAdmitted,
	})
	require.NoError(t, err)

	_, err = repo.UpdateFields(ctx, "em-1", map[string]interface{}{models.FieldDriverLocation: sample})
	assert.ErrorIs(t, err, interfaces.ErrRecordClosed)
}

func TestEmergencyRepository_ListAndCounts(t *testing.T) {
	ctx := context.Background()
	repo := NewEmergencyRepository()

	old := newRecord("em-old")
	old.CreatedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, repo.Create(ctx, old))

	assigned := newRecord("em-assigned")
	assigned.Status = models.EmergencyStatusHospitalAssigned
	assigned.AssignedHospitalID = "hosp-002"
	require.NoError(t, repo.Create(ctx, assigned))

	closed := newRecord("em-closed")
	closed.Status = models.EmergencyStatusStabilized
	require.NoError(t, repo.Create(ctx, closed))

	byHospital, err := repo.List(ctx, models.EmergencyFilter{AssignedHospitalID: "hosp-002"})
	require.NoError(t, err)
	require.Len(t, byHospital, 1)
	assert.Equal(t, "em-assigned", byHospital[0].ID)

	since := time.Now().Add(-time.Hour)
	recent, err := repo.List(ctx, models.EmergencyFilter{CreatedAfter: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	limited, err := repo.List(ctx, models.EmergencyFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.EmergencyStatusPending])
	assert.Equal(t, int64(1), counts[models.EmergencyStatusHospitalAssigned])
	assert.NotContains(t, counts, models.EmergencyStatusStabilized)

	stale, err := repo.ListStale(ctx, models.EmergencyStatusPending, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "em-old", stale[0].ID)
}
