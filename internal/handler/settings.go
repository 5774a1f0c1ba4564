package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quartzbi/quartz/internal/config"
	"github.com/quartzbi/quartz/internal/model"
)

const (
	settingSMTP  = "integrations.smtp"
	settingSlack = "integrations.slack"
)

// SettingsHandler manages workspace integration settings. Settings are
// stored as JSON blobs in the config store's key/value table.
type SettingsHandler struct {
	store *config.Store
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store *config.Store) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// GetSMTP returns the SMTP configuration with the password blanked.
// GET /api/v1/system/settings/smtp
func (h *SettingsHandler) GetSMTP(w http.ResponseWriter, r *http.Request) {
	var settings model.SMTPSettings
	if err := h.load(r, settingSMTP, &settings); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load SMTP settings: "+err.Error())
		return
	}
	settings.Password = ""
	writeJSON(w, http.StatusOK, settings)
}

// PutSMTP replaces the SMTP configuration.
// PUT /api/v1/system/settings/smtp
func (h *SettingsHandler) PutSMTP(w http.ResponseWriter, r *http.Request) {
	var settings model.SMTPSettings
	if err := readJSON(r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if settings.Enabled && (settings.Host == "" || settings.Port == 0) {
		writeError(w, http.StatusBadRequest, "host and port are required when SMTP is enabled")
		return
	}

	if err := h.save(r, settingSMTP, settings); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save SMTP settings: "+err.Error())
		return
	}

	settings.Password = ""
	writeJSON(w, http.StatusOK, settings)
}

// GetSlack returns the Slack configuration with the webhook URL blanked.
// GET /api/v1/system/settings/slack
func (h *SettingsHandler) GetSlack(w http.ResponseWriter, r *http.Request) {
	var settings model.SlackSettings
	if err := h.load(r, settingSlack, &settings); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load Slack settings: "+err.Error())
		return
	}
	settings.WebhookURL = ""
	writeJSON(w, http.StatusOK, settings)
}

// PutSlack replaces the Slack configuration.
// PUT /api/v1/system/settings/slack
func (h *SettingsHandler) PutSlack(w http.ResponseWriter, r *http.Request) {
	var settings model.SlackSettings
	if err := readJSON(r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if settings.Enabled && settings.WebhookURL == "" {
		writeError(w, http.StatusBadRequest, "webhook_url is required when Slack is enabled")
		return
	}

	if err := h.save(r, settingSlack, settings); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save Slack settings: "+err.Error())
		return
	}

	settings.WebhookURL = ""
	writeJSON(w, http.StatusOK, settings)
}

// load reads a settings blob; a missing key yields the zero value.
func (h *SettingsHandler) load(r *http.Request, key string, v interface{}) error {
	raw, err := h.store.GetSetting(r.Context(), key)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil
		}
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

func (h *SettingsHandler) save(r *http.Request, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.store.SetSetting(r.Context(), key, string(raw))
}
