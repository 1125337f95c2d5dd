package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openairwaves/onair-go/internal/database/models"
	"github.com/openairwaves/onair-go/internal/database/repositories"
	"github.com/openairwaves/onair-go/internal/services/broadcast"
	"github.com/openairwaves/onair-go/internal/services/mixer"
	"github.com/openairwaves/onair-go/internal/services/permissions"
	"github.com/openairwaves/onair-go/internal/services/pubsub"
	"github.com/openairwaves/onair-go/internal/services/schedule"
	"github.com/openairwaves/onair-go/internal/ws"
)

// tuesday0900 is a fixed clock: Tuesday 09:00 UTC.
var tuesday0900 = time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	handler *Handler
	router  http.Handler
	roles   *repositories.RoleRepository
	slots   *repositories.TimeSlotRepository
}

type scanExecutor struct{}

func (scanExecutor) Execute(name string, args ...string) ([]byte, error) {
	switch name {
	case "amidi":
		return []byte("IO  hw:1,0,0  Console Controller\n"), nil
	default:
		return nil, nil
	}
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.BroadcastSession{},
		&models.TimeSlot{},
		&models.UserRole{},
		&models.EmergencyBroadcast{},
		&models.AuditEntry{},
		&models.Setting{},
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	sessions := repositories.NewSessionRepository(db)
	slots := repositories.NewTimeSlotRepository(db)
	roles := repositories.NewRoleRepository(db)
	emergencies := repositories.NewEmergencyRepository(db)
	audits := repositories.NewAuditRepository(db)
	settings := repositories.NewSettingRepository(db)

	resolver := permissions.NewResolver(roles)
	gate := schedule.NewGate(slots, resolver, time.UTC)
	gate.SetClock(func() time.Time { return tuesday0900 })

	events := pubsub.New()
	broadcasts := broadcast.NewService(sessions, emergencies, resolver, gate,
		broadcast.NewDatabaseSink(audits), events)

	mixerService := mixer.NewService(scanExecutor{}, nil, mixer.Callbacks{})
	t.Cleanup(mixerService.Disconnect)

	handler := NewHandler(broadcasts, mixerService, gate, settings)
	hub := ws.NewHub(events, 16, func(*http.Request) bool { return true })

	return &fixture{
		handler: handler,
		router:  handler.Routes(hub),
		roles:   roles,
		slots:   slots,
	}
}

func (f *fixture) do(t *testing.T, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func grantAdmin(t *testing.T, f *fixture, user string) {
	t.Helper()
	require.NoError(t, f.roles.Assign(context.Background(), user, models.RoleAdmin))
}

func TestStartBroadcast_AdminLifecycle(t *testing.T) {
	f := setup(t)
	grantAdmin(t, f, "admin-1")

	rec := f.do(t, http.MethodPost, "/api/broadcast/start", "admin-1", map[string]string{"sessionType": "live"})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	session, ok := body["session"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "active", session["status"])
	assert.Equal(t, "automation", session["currentMode"])

	rec = f.do(t, http.MethodPost, "/api/broadcast/end", "admin-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStartBroadcast_UnauthorizedIs403(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.roles.Assign(context.Background(), "listener-1", models.RoleListener))

	rec := f.do(t, http.MethodPost, "/api/broadcast/start", "listener-1", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not Authorized", decodeBody(t, rec)["error"])
}

func TestStartBroadcast_OutsideSlotIs403(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.roles.Assign(context.Background(), "dj-1", models.RoleDJ))

	rec := f.do(t, http.MethodPost, "/api/broadcast/start", "dj-1", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not Authorized", decodeBody(t, rec)["error"])
}

func TestStartBroadcast_MissingUserHeader(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodPost, "/api/broadcast/start", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEndBroadcast_NoActiveSessionIs404(t *testing.T) {
	f := setup(t)
	grantAdmin(t, f, "admin-1")

	rec := f.do(t, http.MethodPost, "/api/broadcast/end", "admin-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMicrophoneToggle(t *testing.T) {
	f := setup(t)
	grantAdmin(t, f, "admin-1")
	f.do(t, http.MethodPost, "/api/broadcast/start", "admin-1", nil)

	rec := f.do(t, http.MethodPost, "/api/broadcast/microphone", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["microphoneActive"])

	rec = f.do(t, http.MethodPost, "/api/broadcast/microphone", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["microphoneActive"])
}

func TestSwitchMode_InvalidModeIs400(t *testing.T) {
	f := setup(t)
	grantAdmin(t, f, "admin-1")
	f.do(t, http.MethodPost, "/api/broadcast/start", "admin-1", nil)

	rec := f.do(t, http.MethodPost, "/api/broadcast/mode", "admin-1", map[string]string{"mode": "karaoke"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/broadcast/mode", "admin-1", map[string]string{"mode": "live"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "live", decodeBody(t, rec)["currentMode"])
}

func TestEmergency_RequiresTitleAndCapability(t *testing.T) {
	f := setup(t)
	grantAdmin(t, f, "admin-1")
	require.NoError(t, f.roles.Assign(context.Background(), "dj-1", models.RoleDJ))

	rec := f.do(t, http.MethodPost, "/api/broadcast/emergency", "admin-1", map[string]string{"title": "Storm"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	payload := map[string]string{"title": "Storm", "message": "Take cover"}
	rec = f.do(t, http.MethodPost, "/api/broadcast/emergency", "dj-1", payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/broadcast/emergency", "admin-1", payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	emergency, ok := decodeBody(t, rec)["emergency"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Storm", emergency["title"])
	assert.Equal(t, "high", emergency["priority"])
}

func TestBroadcastState(t *testing.T) {
	f := setup(t)
	grantAdmin(t, f, "admin-1")
	f.do(t, http.MethodPost, "/api/broadcast/start", "admin-1", nil)

	rec := f.do(t, http.MethodGet, "/api/broadcast/state", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["isLive"])
	assert.Equal(t, true, body["canBroadcast"])
	caps, ok := body["permissions"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, caps["canEmergencyOverride"])
}

func TestScheduleCurrent(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.roles.Assign(context.Background(), "dj-1", models.RoleDJ))
	require.NoError(t, f.slots.Create(context.Background(), &models.TimeSlot{
		Name:      "Tuesday Morning",
		UserID:    "dj-1",
		DayOfWeek: 2,
		StartTime: "08:00",
		EndTime:   "10:00",
		SlotType:  models.SlotTypeLive,
		IsActive:  true,
	}))

	rec := f.do(t, http.MethodGet, "/api/schedule/current", "dj-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["canBroadcastNow"])
	slot, ok := body["slot"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Tuesday Morning", slot["name"])
}

func TestHardwareControlAccepted(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodPost, "/api/hardware/control", "dj-1", map[string]interface{}{
		"control": "crossfader",
		"value":   75,
	})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/hardware/control", "dj-1", map[string]interface{}{"value": 75})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHardwareDevicesRescan(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodGet, "/api/hardware/devices", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["devices"])

	rec = f.do(t, http.MethodGet, "/api/hardware/devices?rescan=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	devices, ok := decodeBody(t, rec)["devices"].([]interface{})
	require.True(t, ok)
	require.Len(t, devices, 1)
	device := devices[0].(map[string]interface{})
	assert.Equal(t, "midi:hw:1,0,0", device["id"])
	assert.Equal(t, "Console Controller", device["name"])
}

func TestHardwareConnectUnknownDevice(t *testing.T) {
	f := setup(t)
	f.do(t, http.MethodGet, "/api/hardware/devices?rescan=1", "", nil)

	rec := f.do(t, http.MethodPost, "/api/hardware/connect", "dj-1", map[string]string{"deviceId": "midi:hw:9,0,0"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHardwareStatus(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodGet, "/api/hardware/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	status, ok := body["status"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(0), status["crossfader"])
	assert.Equal(t, false, status["isLive"])
	assert.Nil(t, body["device"])
}

func TestHealth(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}
