package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	user := &models.UserProfile{ID: "user-1", Name: "Asha", Phone: "+919876543210"}
	require.NoError(t, repo.Create(ctx, user))
	assert.ErrorIs(t, repo.Create(ctx, &models.UserProfile{ID: "user-2", Phone: "+919876543210"}), interfaces.ErrDuplicate)

	byPhone, err := repo.GetByPhone(ctx, "+919876543210")
	require.NoError(t, err)
	assert.Equal(t, "user-1", byPhone.ID)

	require.NoError(t, repo.Update(ctx, "user-1", map[string]interface{}{
		"current_address":  "MI Road, Jaipur",
		"profile_complete": true,
	}))
	got, err := repo.GetByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "MI Road, Jaipur", got.CurrentAddress)
	assert.True(t, got.ProfileComplete)

	assert.ErrorIs(t, repo.Update(ctx, "missing", map[string]interface{}{"name": "x"}), interfaces.ErrNotFound)
}

func TestMedicalProfileRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMedicalProfileRepository()

	require.NoError(t, repo.Upsert(ctx, &models.MedicalProfile{UserID: "user-1", IdentityValue: "123412341234", BloodGroup: "B+"}))
	require.NoError(t, repo.Upsert(ctx, &models.MedicalProfile{UserID: "user-1", IdentityValue: "123412341234", BloodGroup: "O+"}))

	got, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "O+", got.BloodGroup)
	assert.Equal(t, "user-1", got.ID)

	byIdentity, err := repo.GetByIdentity(ctx, "123412341234")
	require.NoError(t, err)
	assert.Equal(t, "user-1", byIdentity.UserID)

	_, err = repo.GetByIdentity(ctx, "")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestDriverSessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewDriverSessionStore(time.Hour)

	require.NoError(t, store.Save(ctx, &models.DriverSession{DriverID: "driver-b", Online: true}))
	require.NoError(t, store.Save(ctx, &models.DriverSession{DriverID: "driver-a", Online: true, RejectedAlertIDs: []string{"em-1"}}))
	require.NoError(t, store.Save(ctx, &models.DriverSession{DriverID: "driver-c", Online: false}))

	online, err := store.ListOnline(ctx)
	require.NoError(t, err)
	require.Len(t, online, 2)
	assert.Equal(t, "driver-a", online[0].DriverID)

	got, err := store.Get(ctx, "driver-a")
	require.NoError(t, err)
	assert.True(t, got.HasRejected("em-1"))

	require.NoError(t, store.Delete(ctx, "driver-a"))
	_, err = store.Get(ctx, "driver-a")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestDriverSessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewDriverSessionStore(20 * time.Millisecond)

	require.NoError(t, store.Save(ctx, &models.DriverSession{DriverID: "driver-a", Online: true}))
	time.Sleep(40 * time.Millisecond)

	_, err := store.Get(ctx, "driver-a")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestHospitalRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewHospitalRepository(models.CuratedHospitals())

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 5)
	assert.Equal(t, "hosp-001", active[0].ID)

	require.NoError(t, repo.AddDeviceToken(ctx, "hosp-001", "token-1"))
	require.NoError(t, repo.AddDeviceToken(ctx, "hosp-001", "token-1"))
	got, err := repo.GetByID(ctx, "hosp-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"token-1"}, got.DeviceTokens)

	assert.ErrorIs(t, repo.AddDeviceToken(ctx, "hosp-999", "t"), interfaces.ErrNotFound)
}
