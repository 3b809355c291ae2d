package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVideoMeeting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/appointments/appt-42/video-meeting", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"meetingConfig":{"roomName":"room-42","extra":true}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	meeting, err := client.GetVideoMeeting(context.Background(), "appt-42")
	require.NoError(t, err)
	assert.Equal(t, "room-42", meeting.MeetingConfig.RoomName)
}

func TestGetVideoMeeting_EmptyConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meetingConfig":{}}`))
	}))
	defer srv.Close()

	meeting, err := NewClient(srv.URL, time.Second).GetVideoMeeting(context.Background(), "appt-42")
	require.NoError(t, err)
	assert.Empty(t, meeting.MeetingConfig.RoomName)
}

func TestGetVideoMeeting_EscapesAppointmentID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/appointments/a%2Fb/video-meeting", r.URL.EscapedPath())
		w.Write([]byte(`{"meetingConfig":{}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).GetVideoMeeting(context.Background(), "a/b")
	require.NoError(t, err)
}

func TestGetVideoMeeting_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNotFound)
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
			},
		},
		{
			name:   "bad body",
			status: http.StatusOK,
			body:   "not json",
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "decode video meeting")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).GetVideoMeeting(context.Background(), "appt-42")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestUpdateMeetingStatus(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/appointments/appt-42/meeting-status", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).UpdateMeetingStatus(context.Background(), "appt-42", StatusCompleted, StatusMetadata{
		MeetingEnded: "2026-10-16T10:00:00.000Z",
	})
	require.NoError(t, err)

	assert.Equal(t, "completed", got["status"])
	assert.Equal(t, "2026-10-16T10:00:00.000Z", got["meetingEnded"])
	_, hasStarted := got["meetingStarted"]
	assert.False(t, hasStarted)
}

func TestUpdateMeetingStatus_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url, time.Second).UpdateMeetingStatus(context.Background(), "appt-42", StatusInProgress, StatusMetadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2026, 10, 16, 12, 30, 5, 123456789, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "2026-10-16T10:30:05.123Z", Timestamp(ts))
}
