package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"solver/internal/command/models"
	"solver/pkg/domain"
)

type handler struct {
	signingKey []byte
	logger     *slog.Logger
	objects    []models.Object
}

func newHandler(signingKey []byte, logger *slog.Logger) *handler {
	return &handler{
		signingKey: signingKey,
		logger:     logger,
		objects:    fixtureObjects(),
	}
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleToken mints a naive token pair with a signed ID token carrying a
// fixed dev profile. Every grant succeeds; this is a stub.
func (h *handler) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":                uuid.NewString(),
		"name":               "Dev User",
		"email":              "dev.user@solver.example.com",
		"preferred_username": "dev.user",
		"given_name":         "Dev",
		"family_name":        "User",
		"iat":                now.Unix(),
		"exp":                now.Add(time.Hour).Unix(),
	}
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.signingKey)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  "stub_" + uuid.NewString(),
		"refresh_token": "stub_refresh_" + uuid.NewString(),
		"token_type":    "Bearer",
		"expires_in":    3600,
		"scope":         "openid profile email offline_access",
		"id_token":      idToken,
	})
}

func (h *handler) handleRegister(w http.ResponseWriter, _ *http.Request) {
	// The PIN would arrive by SMS; the stub accepts any PIN at confirm.
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pin_sent"})
}

func (h *handler) handleObjects(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing bearer token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"objects": h.objects})
}

func (h *handler) handleObject(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing bearer token"})
		return
	}
	id := chi.URLParam(r, "id")
	for _, obj := range h.objects {
		if obj.ID.String() == id {
			writeJSON(w, http.StatusOK, obj)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "object not found"})
}

// handleExecute answers with canned results that exercise every middleware
// unit: unlock outside the geofence offers an override, subscribe returns
// subscription options, and status returns a context bag to display.
func (h *handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing bearer token"})
		return
	}
	var req struct {
		Command  string `json:"command"`
		Input    string `json:"input"`
		Location *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed request body"})
		return
	}

	id := chi.URLParam(r, "id")
	var target *models.Object
	for i := range h.objects {
		if h.objects[i].ID.String() == id {
			target = &h.objects[i]
			break
		}
	}
	if target == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "object not found"})
		return
	}

	now := time.Now().UTC()
	result := models.ExecutionResult{
		Success:    true,
		ObjectID:   target.ID.String(),
		ObjectName: target.Name,
		Timestamp:  &now,
	}

	switch strings.ToLower(req.Command) {
	case "unlock":
		// A caller without a reported location is treated as outside the
		// geofence and offered an override.
		if req.Location == nil {
			result.Success = false
			result.Context = []models.ContextEntry{
				{Key: "geofenceoverride", Label: "Distance", Value: "150"},
			}
		}
	case "subscribe":
		result.Success = false
		result.Context = []models.ContextEntry{
			{Key: "subscriptionoptions", Label: "Options", Value: `{"plans":["monthly","annual"]}`},
		}
	case "status", "adminstatus":
		result.Context = []models.ContextEntry{
			{Key: "doorstate", Label: "Door", Value: "closed"},
			{Key: "battery", Label: "Battery", Value: "87%"},
			{Key: "lastopened", Label: "Last opened", Value: now.Add(-2 * time.Hour).Format(time.RFC3339)},
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	var event map[string]any
	_ = json.NewDecoder(r.Body).Decode(&event)
	h.logger.Info("audit event received", "event", event)
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && len(auth) > len("Bearer ")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func fixtureObjects() []models.Object {
	enUser := []models.LocaleCommands{{
		Locale: "en",
		Commands: []models.Command{
			{Name: "unlock", Label: "Unlock", SortKey: intPtr(1)},
			{Name: "lock", Label: "Lock", SortKey: intPtr(2)},
			{Name: "status", Label: "Status", SortKey: intPtr(3)},
			{Name: "reset", Label: "Reset", SortKey: intPtr(9), Visible: boolPtr(false)},
		},
	}}
	enPublic := []models.LocaleCommands{{
		Locale: "en",
		Commands: []models.Command{
			{Name: "subscribe", Label: "Subscribe", SortKey: intPtr(1)},
			{Name: "status", Label: "Status", SortKey: intPtr(2)},
		},
	}}

	door := models.Object{
		ID:          mustObjectID("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Name:        "Main Entrance",
		Description: "Front door, building A",
		UserAccess:  true,
		Catalog:     models.Catalog{User: enUser},
	}
	locker := models.Object{
		ID:          mustObjectID("6ba7b811-9dad-11d1-80b4-00c04fd430c8"),
		Name:        "Locker 14",
		Description: "Paid locker, hall B",
		UserAccess:  false,
		Catalog:     models.Catalog{Public: enPublic},
	}
	return []models.Object{door, locker}
}

func mustObjectID(s string) domain.ObjectID {
	id, err := domain.ParseObjectID(s)
	if err != nil {
		panic(err)
	}
	return id
}
