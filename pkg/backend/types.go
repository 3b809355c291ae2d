// Package backend is the client of the backend meeting service, which owns
// appointments and their video meeting records.
package backend

import (
	"errors"
	"fmt"
	"time"
)

// MeetingStatus is the status recorded on the appointment's meeting.
type MeetingStatus string

const (
	StatusInProgress MeetingStatus = "in-progress"
	StatusCompleted  MeetingStatus = "completed"
)

// TimestampLayout matches JavaScript's Date.prototype.toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t the way the backend stores meeting timestamps.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// MeetingConfig describes how to join the appointment's meeting.
type MeetingConfig struct {
	RoomName string `json:"roomName,omitempty"`
	Subject  string `json:"subject,omitempty"`
}

// VideoMeeting is the response of the get-video-meeting endpoint.
type VideoMeeting struct {
	AppointmentID string        `json:"appointmentId,omitempty"`
	MeetingConfig MeetingConfig `json:"meetingConfig"`
}

// StatusMetadata carries the timestamps attached to a status transition.
type StatusMetadata struct {
	MeetingStarted string `json:"meetingStarted,omitempty"`
	MeetingEnded   string `json:"meetingEnded,omitempty"`
}

type statusUpdateRequest struct {
	Status MeetingStatus `json:"status"`
	StatusMetadata
}

// ErrNotFound is returned when the backend has no meeting for the appointment.
var ErrNotFound = errors.New("video meeting not found")

// StatusError reports an unexpected HTTP status from the backend.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status: %d", e.Method, e.Path, e.Code)
}
