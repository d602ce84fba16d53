package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilltrail/academy_api/model"
	"github.com/skilltrail/academy_api/shared"
)

func grantCourse(t *testing.T, db *PostgresService, id, userID, courseID string, startsAt time.Time, endsAt *time.Time) {
	t.Helper()
	require.NoError(t, db.Db().Create(&model.Entitlement{
		ID:       id,
		UserID:   userID,
		CourseID: &courseID,
		Source:   shared.EntitlementSourceGrant,
		StartsAt: startsAt,
		EndsAt:   endsAt,
	}).Error)
}

func TestExpiredEntitlementDeniesAccess(t *testing.T) {
	db, _, ents, _ := newTestStack(t, true)
	seedUser(t, db, "u1", "u1@example.com")
	seedCourse(t, db, "c1", 1)

	past := time.Now().UTC().Add(-time.Hour)
	grantCourse(t, db, "e1", "u1", "c1", past.Add(-time.Hour), &past)

	ok, err := ents.HasCourseAccess("u1", "c1", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenEndedEntitlementAllowsIndefinitely(t *testing.T) {
	db, _, ents, _ := newTestStack(t, true)
	seedUser(t, db, "u1", "u1@example.com")
	seedCourse(t, db, "c1", 1)

	grantCourse(t, db, "e1", "u1", "c1", time.Now().UTC().Add(-time.Hour), nil)

	ok, err := ents.HasCourseAccess("u1", "c1", time.Now().UTC().AddDate(10, 0, 0))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNotYetStartedEntitlementDenies(t *testing.T) {
	db, _, ents, _ := newTestStack(t, true)
	seedUser(t, db, "u1", "u1@example.com")
	seedCourse(t, db, "c1", 1)

	grantCourse(t, db, "e1", "u1", "c1", time.Now().UTC().Add(time.Hour), nil)

	ok, err := ents.HasCourseAccess("u1", "c1", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrackEntitlementCoversLinkedCourses(t *testing.T) {
	db, _, ents, _ := newTestStack(t, true)
	seedUser(t, db, "u1", "u1@example.com")
	seedCourse(t, db, "c1", 1)
	seedCourse(t, db, "c2", 1)
	seedCourse(t, db, "c3", 1)

	require.NoError(t, db.Db().Create(&model.Track{
		ID: "tr1", Slug: "tr1", Title: "Track", IsActive: true,
	}).Error)
	require.NoError(t, db.Db().Create(&model.TrackCourse{
		ID: "tc1", TrackID: "tr1", CourseID: "c1", Position: 0, Required: true,
	}).Error)
	require.NoError(t, db.Db().Create(&model.TrackCourse{
		ID: "tc2", TrackID: "tr1", CourseID: "c2", Position: 1, Required: false,
	}).Error)

	trackID := "tr1"
	require.NoError(t, db.Db().Create(&model.Entitlement{
		ID:       "e1",
		UserID:   "u1",
		TrackID:  &trackID,
		Source:   shared.EntitlementSourcePurchase,
		StartsAt: time.Now().UTC().Add(-time.Hour),
	}).Error)

	now := time.Now().UTC()
	for courseID, want := range map[string]bool{"c1": true, "c2": true, "c3": false} {
		ok, err := ents.HasCourseAccess("u1", courseID, now)
		require.NoError(t, err)
		assert.Equal(t, want, ok, "course %s", courseID)
	}
}

func TestTrackAccessRequiresDirectGrant(t *testing.T) {
	db, _, ents, _ := newTestStack(t, true)
	seedUser(t, db, "u1", "u1@example.com")
	seedCourse(t, db, "c1", 1)

	require.NoError(t, db.Db().Create(&model.Track{
		ID: "tr1", Slug: "tr1", Title: "Track", IsActive: true,
	}).Error)
	require.NoError(t, db.Db().Create(&model.TrackCourse{
		ID: "tc1", TrackID: "tr1", CourseID: "c1", Position: 0, Required: true,
	}).Error)

	// Owning the linked course does not confer the track.
	grantCourse(t, db, "e1", "u1", "c1", time.Now().UTC().Add(-time.Hour), nil)

	now := time.Now().UTC()
	ok, err := ents.HasTrackAccess("u1", "tr1", now)
	require.NoError(t, err)
	assert.False(t, ok)

	trackID := "tr1"
	past := now.Add(-time.Minute)
	require.NoError(t, db.Db().Create(&model.Entitlement{
		ID:       "e2",
		UserID:   "u1",
		TrackID:  &trackID,
		Source:   shared.EntitlementSourceGrant,
		StartsAt: now.Add(-time.Hour),
		EndsAt:   &past,
	}).Error)

	ok, err = ents.HasTrackAccess("u1", "tr1", now)
	require.NoError(t, err)
	assert.False(t, ok, "expired track grant denies")

	require.NoError(t, db.Db().Create(&model.Entitlement{
		ID:       "e3",
		UserID:   "u1",
		TrackID:  &trackID,
		Source:   shared.EntitlementSourcePurchase,
		StartsAt: now.Add(-time.Hour),
	}).Error)

	ok, err = ents.HasTrackAccess("u1", "tr1", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ents.HasTrackAccess("u1", "ghost", now)
	require.NoError(t, err)
	assert.False(t, ok, "unknown track ids deny")
}

func TestUnknownIDsDenyAccess(t *testing.T) {
	_, _, ents, _ := newTestStack(t, true)

	ok, err := ents.HasCourseAccess("ghost", "nowhere", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnforcementDisabledAllowsEverything(t *testing.T) {
	_, _, ents, _ := newTestStack(t, false)

	ok, err := ents.HasCourseAccess("ghost", "nowhere", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)
}
