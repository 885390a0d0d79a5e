package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"conferencecentral/internal/delivery/http/helpers"
	"conferencecentral/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionController_CreateSession(t *testing.T) {
	validBody := fmt.Sprintf(`{"name":"Intro to Go","speaker_key":%q,"duration":45,"type_of_session":"talk","date":"2026-11-02","start_time":"9:30"}`, speakerKey.Encode())

	tests := []struct {
		name       string
		body       string
		noCaller   bool
		fakeErr    error
		wantStatus int
		wantCode   string
	}{
		{name: "success", body: validBody, wantStatus: http.StatusCreated},
		{name: "missing speaker", body: `{"name":"Intro to Go"}`, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "missing name", body: fmt.Sprintf(`{"speaker_key":%q}`, speakerKey.Encode()), wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "no caller", body: validBody, noCaller: true, wantStatus: http.StatusUnauthorized, wantCode: helpers.ErrCodeUnauthorized},
		{name: "not organizer", body: validBody, fakeErr: domain.ErrForbidden, wantStatus: http.StatusForbidden, wantCode: helpers.ErrCodeForbidden},
		{name: "unknown speaker", body: validBody, fakeErr: fmt.Errorf("speaker: %w", domain.ErrNotFound), wantStatus: http.StatusNotFound, wantCode: helpers.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeSessionService{result: sampleSession(), err: tt.fakeErr}
			ctrl := NewSessionController(testLogger, fake)
			req := httptest.NewRequest(http.MethodPost, "/conferences/x/sessions", bytes.NewBufferString(tt.body))
			req.SetPathValue("conferenceKey", conferenceKey.Encode())
			if !tt.noCaller {
				req = withCaller(req)
			}
			rr := httptest.NewRecorder()
			ctrl.CreateSession(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantCode != "" {
				envelope := decodeEnvelope(t, rr, nil)
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.wantCode, envelope.Error.Code)
				return
			}
			var got SessionResponse
			decodeEnvelope(t, rr, &got)
			assert.Equal(t, sessionKey.Encode(), got.WebsafeKey)
			assert.Equal(t, conferenceKey.Encode(), fake.lastKey)
			assert.Equal(t, "9:30", fake.lastInput.StartTime)
			assert.Equal(t, 45, fake.lastInput.Duration)
		})
	}
}

func TestSessionController_UpdateSession(t *testing.T) {
	fake := &fakeSessionService{result: sampleSession()}
	ctrl := NewSessionController(testLogger, fake)
	req := withCaller(httptest.NewRequest(http.MethodPatch, "/sessions/x", bytes.NewBufferString(`{"start_time":"10:00"}`)))
	req.SetPathValue("sessionKey", sessionKey.Encode())
	rr := httptest.NewRecorder()
	ctrl.UpdateSession(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, fake.lastUpdate.StartTime)
	assert.Equal(t, "10:00", *fake.lastUpdate.StartTime)
	assert.Nil(t, fake.lastUpdate.Name)
	assert.Equal(t, sessionKey.Encode(), fake.lastKey)

	rr = httptest.NewRecorder()
	req = withCaller(httptest.NewRequest(http.MethodPatch, "/sessions/x", bytes.NewBufferString(`{"duration":-5}`)))
	req.SetPathValue("sessionKey", sessionKey.Encode())
	ctrl.UpdateSession(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSessionController_Lists(t *testing.T) {
	tests := []struct {
		name       string
		pathValues map[string]string
		call       func(c *SessionController, w http.ResponseWriter, r *http.Request)
		fakeErr    error
		wantStatus int
		wantKey    string
		wantType   string
	}{
		{
			name:       "conference sessions",
			pathValues: map[string]string{"conferenceKey": conferenceKey.Encode()},
			call:       (*SessionController).ConferenceSessions,
			wantStatus: http.StatusOK,
			wantKey:    conferenceKey.Encode(),
		},
		{
			name:       "conference sessions missing key",
			call:       (*SessionController).ConferenceSessions,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "by type",
			pathValues: map[string]string{"conferenceKey": conferenceKey.Encode(), "typeOfSession": "workshop"},
			call:       (*SessionController).ConferenceSessionsByType,
			wantStatus: http.StatusOK,
			wantKey:    conferenceKey.Encode(),
			wantType:   "workshop",
		},
		{
			name:       "by type unknown conference",
			pathValues: map[string]string{"conferenceKey": conferenceKey.Encode(), "typeOfSession": "workshop"},
			call:       (*SessionController).ConferenceSessionsByType,
			fakeErr:    domain.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "by speaker",
			pathValues: map[string]string{"speakerKey": speakerKey.Encode()},
			call:       (*SessionController).SessionsBySpeaker,
			wantStatus: http.StatusOK,
			wantKey:    speakerKey.Encode(),
		},
		{
			name:       "upcoming",
			call:       (*SessionController).UpcomingSessions,
			wantStatus: http.StatusOK,
		},
		{
			name:       "upcoming store failure",
			call:       (*SessionController).UpcomingSessions,
			fakeErr:    errors.New("timeout"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeSessionService{list: []*domain.Session{sampleSession()}, err: tt.fakeErr}
			ctrl := NewSessionController(testLogger, fake)
			req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
			for k, v := range tt.pathValues {
				req.SetPathValue(k, v)
			}
			rr := httptest.NewRecorder()
			tt.call(ctrl, rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got []SessionResponse
			decodeEnvelope(t, rr, &got)
			require.Len(t, got, 1)
			assert.Equal(t, "Intro to Go", got[0].Name)
			assert.Equal(t, tt.wantKey, fake.lastKey)
			assert.Equal(t, tt.wantType, fake.lastType)
		})
	}
}

func TestSessionController_SessionsNotOfTypeBefore(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		fakeErr    error
		wantStatus int
	}{
		{name: "success", body: `{"type_of_session":"workshop","start_time":"19:00"}`, wantStatus: http.StatusOK},
		{name: "missing time", body: `{"type_of_session":"workshop"}`, wantStatus: http.StatusBadRequest},
		{name: "bad time", body: `{"type_of_session":"workshop","start_time":"7pm"}`, fakeErr: fmt.Errorf("%w: start_time must be HH:MM", domain.ErrInvalidInput), wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeSessionService{list: []*domain.Session{}, err: tt.fakeErr}
			ctrl := NewSessionController(testLogger, fake)
			req := httptest.NewRequest(http.MethodPost, "/sessions/not-like", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			ctrl.SessionsNotOfTypeBefore(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "workshop", fake.lastType)
				assert.Equal(t, "19:00", fake.lastTime)
				var got []SessionResponse
				decodeEnvelope(t, rr, &got)
				assert.Empty(t, got)
			}
		})
	}
}
