package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"teamline/internal/domain"
	"teamline/internal/events"
	"teamline/internal/policy"
)

// CheckIn opens the actor's attendance record for the day. A second check-in
// on the same date surfaces repo.ErrConflict from the unique key.
func (e Engine) CheckIn(ctx context.Context, location string, actor policy.Actor) (domain.Attendance, error) {
	if actor.EmployeeID == "" {
		return domain.Attendance{}, fmt.Errorf("actor has no employee record")
	}
	if err := policy.Require(actor, policy.IntentCreate, policy.AttendanceTarget{EmployeeID: actor.EmployeeID}); err != nil {
		return domain.Attendance{}, err
	}
	if location == "" {
		location = "remote"
	}
	if location != "onsite" && location != "remote" {
		return domain.Attendance{}, fmt.Errorf("location must be onsite or remote")
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Attendance{}, err
	}
	defer tx.Rollback()

	now := e.now().UTC()
	a := domain.Attendance{
		ID:              uuid.New().String(),
		EmployeeID:      actor.EmployeeID,
		Date:            now.Format("2006-01-02"),
		CheckInTime:     now.Format(time.RFC3339),
		CheckInLocation: location,
		Status:          "present",
	}
	if err := e.Repo.InsertAttendance(ctx, tx, a); err != nil {
		return domain.Attendance{}, err
	}
	if err := e.events().Append(ctx, tx, "attendance.checkin", "attendance", a.ID, actor.UserID, events.EventPayload{
		"date":     a.Date,
		"location": location,
	}); err != nil {
		return domain.Attendance{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Attendance{}, err
	}
	return a, nil
}

// CheckOut closes today's record and computes total hours. A day shorter
// than the configured full-day threshold is marked half-day.
func (e Engine) CheckOut(ctx context.Context, location string, actor policy.Actor) (domain.Attendance, error) {
	if actor.EmployeeID == "" {
		return domain.Attendance{}, fmt.Errorf("actor has no employee record")
	}
	if err := policy.Require(actor, policy.IntentEditMetadata, policy.AttendanceTarget{EmployeeID: actor.EmployeeID}); err != nil {
		return domain.Attendance{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Attendance{}, err
	}
	defer tx.Rollback()

	now := e.now().UTC()
	a, err := e.Repo.GetAttendanceByDayTx(ctx, tx, actor.EmployeeID, now.Format("2006-01-02"))
	if err != nil {
		return domain.Attendance{}, err
	}
	if a.CheckOutTime != nil {
		return domain.Attendance{}, fmt.Errorf("already checked out")
	}
	checkIn, err := time.Parse(time.RFC3339, a.CheckInTime)
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("parse check-in time: %w", err)
	}
	outAt := now.Format(time.RFC3339)
	hours := now.Sub(checkIn).Hours()
	if hours < 0 {
		hours = 0
	}
	a.CheckOutTime = &outAt
	if location == "" {
		location = a.CheckInLocation
	}
	a.CheckOutLocation = &location
	a.TotalHours = &hours
	fullDay := 8.0
	if e.Config != nil && e.Config.Attendance.FullDayHours > 0 {
		fullDay = e.Config.Attendance.FullDayHours
	}
	if hours < fullDay/2 {
		a.Status = "half-day"
	}
	if err := e.Repo.UpdateAttendance(ctx, tx, a); err != nil {
		return domain.Attendance{}, err
	}
	if err := e.events().Append(ctx, tx, "attendance.checkout", "attendance", a.ID, actor.UserID, events.EventPayload{
		"date":  a.Date,
		"hours": hours,
	}); err != nil {
		return domain.Attendance{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Attendance{}, err
	}
	return a, nil
}
