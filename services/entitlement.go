package services

import (
	"os"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/skilltrail/academy_api/model"
)

// EntitlementService resolves which courses a user may access right now.
// Track entitlements expand to every course currently linked to the track;
// the expansion happens at read time, so editing a track retroactively
// changes what its entitlements unlock.
type EntitlementService struct {
	context.DefaultService

	db *PostgresService

	enforce bool
}

const ENTITLEMENT_SVC = "entitlement_svc"

func (svc EntitlementService) Id() string {
	return ENTITLEMENT_SVC
}

func (svc *EntitlementService) Configure(ctx *context.Context) error {
	svc.enforce = os.Getenv("ENFORCE_ENTITLEMENTS") != "false"
	return svc.DefaultService.Configure(ctx)
}

func (svc *EntitlementService) Start() error {
	svc.db = svc.Service(POSTGRES_SVC).(*PostgresService)

	if !svc.enforce {
		log.Warn("entitlement enforcement disabled; all courses are open")
	}
	return nil
}

func (svc *EntitlementService) Enforced() bool {
	return svc.enforce
}

// ActiveCourseIDs returns the set of course ids the user can access at t.
func (svc *EntitlementService) ActiveCourseIDs(userID string, t time.Time) (map[string]bool, error) {
	var rows []model.Entitlement
	err := svc.db.Db().Where("user_id = ?", userID).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	courseIDs := make(map[string]bool)
	trackIDs := make([]string, 0)
	for i := range rows {
		ent := &rows[i]
		if !ent.ActiveAt(t) {
			continue
		}
		switch {
		case ent.CourseID != nil:
			courseIDs[*ent.CourseID] = true
		case ent.TrackID != nil:
			trackIDs = append(trackIDs, *ent.TrackID)
		}
	}

	if len(trackIDs) > 0 {
		var links []model.TrackCourse
		err = svc.db.Db().Where("track_id IN ?", trackIDs).Find(&links).Error
		if err != nil {
			return nil, err
		}
		for _, link := range links {
			courseIDs[link.CourseID] = true
		}
	}

	return courseIDs, nil
}

// HasTrackAccess checks for a direct active grant on the track itself.
// Track access never follows from owning the member courses individually.
func (svc *EntitlementService) HasTrackAccess(userID, trackID string, t time.Time) (bool, error) {
	if !svc.enforce {
		return true, nil
	}

	var rows []model.Entitlement
	err := svc.db.Db().Where("user_id = ? AND track_id = ?", userID, trackID).Find(&rows).Error
	if err != nil {
		return false, err
	}
	for i := range rows {
		if rows[i].ActiveAt(t) {
			return true, nil
		}
	}
	return false, nil
}

// HasCourseAccess is the gate every read of course content and every progress
// write goes through. When enforcement is off it always allows.
func (svc *EntitlementService) HasCourseAccess(userID, courseID string, t time.Time) (bool, error) {
	if !svc.enforce {
		return true, nil
	}

	courseIDs, err := svc.ActiveCourseIDs(userID, t)
	if err != nil {
		return false, err
	}
	return courseIDs[courseID], nil
}
