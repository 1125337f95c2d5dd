// Package api exposes the broadcast console operations over REST.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/openairwaves/onair-go/internal/database/models"
	"github.com/openairwaves/onair-go/internal/database/repositories"
	"github.com/openairwaves/onair-go/internal/services/broadcast"
	"github.com/openairwaves/onair-go/internal/services/mixer"
	"github.com/openairwaves/onair-go/internal/services/schedule"
)

// Handler carries the service dependencies for the REST surface. The acting
// user comes from the X-User-ID header; authentication itself is handled
// upstream of this server.
type Handler struct {
	broadcasts *broadcast.Service
	mixer      *mixer.Service
	gate       *schedule.Gate
	settings   *repositories.SettingRepository
}

// NewHandler creates the REST handler.
func NewHandler(broadcasts *broadcast.Service, mixerService *mixer.Service, gate *schedule.Gate, settings *repositories.SettingRepository) *Handler {
	return &Handler{
		broadcasts: broadcasts,
		mixer:      mixerService,
		gate:       gate,
		settings:   settings,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("api: encoding response: %v", err)
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// userID extracts the acting user, writing a 400 if the header is missing.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		respondError(w, http.StatusBadRequest, "X-User-ID header required")
		return "", false
	}
	return id, true
}

// respondServiceError maps domain errors onto HTTP statuses. Authorization
// failures are indistinguishable to the client beyond "Not Authorized".
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, broadcast.ErrPermissionDenied), errors.Is(err, broadcast.ErrOutsideTimeSlot):
		respondError(w, http.StatusForbidden, "Not Authorized")
	case errors.Is(err, broadcast.ErrNoActiveSession):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, broadcast.ErrInvalidSessionType), errors.Is(err, broadcast.ErrInvalidMode):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, mixer.ErrDeviceNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, mixer.ErrDeviceBusy):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, mixer.ErrDeviceAccess):
		respondError(w, http.StatusForbidden, err.Error())
	default:
		log.Printf("api: internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) startBroadcast(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var body struct {
		SessionType models.SessionType `json:"sessionType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.SessionType == "" {
		body.SessionType = models.SessionTypeLive
	}

	session, err := h.broadcasts.Start(r.Context(), user, body.SessionType)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"session": session})
}

func (h *Handler) endBroadcast(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	session, err := h.broadcasts.End(r.Context(), user)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

func (h *Handler) toggleMicrophone(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	active, err := h.broadcasts.ToggleMicrophone(r.Context(), user)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"microphoneActive": active})
}

func (h *Handler) switchMode(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var body struct {
		Mode models.BroadcastMode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.broadcasts.SwitchMode(r.Context(), user, body.Mode)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"currentMode": session.CurrentMode})
}

func (h *Handler) triggerEmergency(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var input broadcast.EmergencyInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Title == "" || input.Message == "" {
		respondError(w, http.StatusBadRequest, "title and message are required")
		return
	}

	eb, err := h.broadcasts.TriggerEmergencyOverride(r.Context(), user, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"emergency": eb})
}

func (h *Handler) broadcastState(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	state, err := h.broadcasts.State(r.Context(), user)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (h *Handler) currentSlot(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"slot":            h.gate.CurrentSlot(r.Context(), user),
		"canBroadcastNow": h.gate.CanBroadcastNow(r.Context(), user),
	})
}

// logControl accepts a control delta from a software surface and records it
// without waiting. 202 signals acceptance, not persistence.
func (h *Handler) logControl(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var body struct {
		Control string `json:"control"`
		Value   int    `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Control == "" {
		respondError(w, http.StatusBadRequest, "control is required")
		return
	}

	go h.broadcasts.LogControlChange(context.Background(), user, body.Control, body.Value)
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) hardwareDevices(w http.ResponseWriter, r *http.Request) {
	var devices []mixer.Device
	if r.URL.Query().Get("rescan") == "1" {
		var err error
		devices, err = h.mixer.ScanForDevices(r.Context())
		if err != nil {
			respondServiceError(w, err)
			return
		}
	} else {
		devices = h.mixer.Devices()
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"devices":  devices,
		"scanning": h.mixer.IsScanning(),
	})
}

// hardwareConnect opens the device and binds controller input to the caller.
func (h *Handler) hardwareConnect(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var body struct {
		DeviceID string `json:"deviceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DeviceID == "" {
		respondError(w, http.StatusBadRequest, "deviceId is required")
		return
	}

	if err := h.mixer.Connect(r.Context(), body.DeviceID); err != nil {
		respondServiceError(w, err)
		return
	}
	h.mixer.SetOperator(user)

	// Remember the device so the server reconnects it after a restart.
	if err := h.settings.Upsert(r.Context(), "hardware_device_id", body.DeviceID); err != nil {
		log.Printf("api: saving hardware device: %v", err)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"device": h.mixer.ActiveDevice()})
}

func (h *Handler) hardwareDisconnect(w http.ResponseWriter, r *http.Request) {
	h.mixer.Disconnect()
	if err := h.settings.Upsert(r.Context(), "hardware_device_id", ""); err != nil {
		log.Printf("api: clearing hardware device: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) hardwareStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": h.mixer.Status(),
		"device": h.mixer.ActiveDevice(),
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
