package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftresponse/internal/models"
)

func TestProfileCompletesWithNameLocationsAndMedical(t *testing.T) {
	h := newHarness(t)
	h.addPatient(t, "p1", func(u *models.UserProfile) { u.Name = "" })
	ctx := context.Background()

	name := "  Asha Verma "
	profile, err := h.profiles.Update(ctx, "p1", &UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Asha Verma", profile.User.Name)
	assert.False(t, profile.User.ProfileComplete)

	profile, err = h.profiles.SetSavedLocations(ctx, "p1", &SavedLocationsRequest{
		Locations: []models.SavedLocation{
			{Type: models.SavedLocationHome, Label: "Home", Coordinates: models.GeoPoint{Lat: 26.85, Lng: 75.81}},
			{ID: "work", Type: models.SavedLocationWork, Label: "Office", Coordinates: models.GeoPoint{Lat: 26.91, Lng: 75.79}},
		},
		ActiveLocationID: "work",
	})
	require.NoError(t, err)
	require.Len(t, profile.User.SavedLocations, 2)
	assert.NotEmpty(t, profile.User.SavedLocations[0].ID)
	assert.Equal(t, "work", profile.User.ActiveLocationID)
	assert.False(t, profile.User.ProfileComplete)

	profile, err = h.profiles.UpsertMedical(ctx, "p1", &models.MedicalProfile{BloodGroup: "O+"})
	require.NoError(t, err)
	require.NotNil(t, profile.Medical)
	assert.True(t, profile.User.ProfileComplete)

	stored, err := h.users.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, stored.ProfileComplete)
}

func TestSavedLocationsRejectBadCoordinates(t *testing.T) {
	h := newHarness(t)
	h.addPatient(t, "p1", nil)

	_, err := h.profiles.SetSavedLocations(context.Background(), "p1", &SavedLocationsRequest{
		Locations: []models.SavedLocation{{Type: models.SavedLocationHome, Coordinates: models.GeoPoint{}}},
	})
	assert.ErrorIs(t, err, ErrInvalidSavedLocation)
}

func TestLinkIdentityCopiesExistingMedicalProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.medical.Upsert(ctx, &models.MedicalProfile{
		UserID:        "legacy",
		IdentityValue: "12345678901234",
		BloodGroup:    "AB-",
	}))
	h.addPatient(t, "p1", nil)

	_, err := h.profiles.LinkIdentity(ctx, "p1", &LinkIdentityRequest{Method: models.IdentityMethodABHA, Value: "1234"})
	assert.ErrorIs(t, err, models.ErrInvalidABHA)

	profile, err := h.profiles.LinkIdentity(ctx, "p1", &LinkIdentityRequest{
		Method: models.IdentityMethodABHA,
		Value:  "12-3456-7890-1234",
	})
	require.NoError(t, err)
	require.NotNil(t, profile.User.Identity)
	assert.Equal(t, "12345678901234", profile.User.Identity.Value)
	assert.Equal(t, models.ABHAVerified, profile.User.Verification.ABHA)
	require.NotNil(t, profile.Medical)
	assert.Equal(t, "AB-", profile.Medical.BloodGroup)
	assert.Equal(t, "p1", profile.Medical.UserID)
}

func TestSkipIdentity(t *testing.T) {
	h := newHarness(t)
	h.addPatient(t, "p1", nil)

	profile, err := h.profiles.SkipIdentity(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, models.ABHASkipped, profile.User.Verification.ABHA)
	assert.Nil(t, profile.User.Identity)
}

func TestRegisterDeviceToken(t *testing.T) {
	h := newHarness(t)
	h.addPatient(t, "p1", nil)
	ctx := context.Background()

	require.NoError(t, h.profiles.RegisterDeviceToken(ctx, models.UserTypePatient, "p1", "tok-1"))
	require.NoError(t, h.profiles.RegisterDeviceToken(ctx, models.UserTypePatient, "p1", "tok-1"))
	user, err := h.users.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-1"}, user.DeviceTokens)

	require.NoError(t, h.profiles.RegisterDeviceToken(ctx, models.UserTypeHospital, "hosp-001", "hosp-tok"))
	hospital, err := h.hospitals.GetByID(ctx, "hosp-001")
	require.NoError(t, err)
	assert.Contains(t, hospital.DeviceTokens, "hosp-tok")

	assert.Error(t, h.profiles.RegisterDeviceToken(ctx, models.UserTypePatient, "p1", " "))
}
