package web

// settings.go serves the key-value settings endpoints.

import "net/http"

// handleSettings serves all settings.
func (web *WebApp) handleSettings() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		settings, err := web.db.SettingsGet(ctx)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success  bool              `json:"success"`
			Settings map[string]string `json:"settings"`
		}{
			Success:  true,
			Settings: settings,
		})
	})
}

// handleSettingsUpdate upserts the submitted settings keys, leaving
// other keys untouched.
func (web *WebApp) handleSettingsUpdate() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		payload := SettingsPayload{}
		if err := decodeJSON(r, &payload); err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(payload) == 0 {
			web.clientError(w, "no settings provided", http.StatusBadRequest)
			return
		}

		for key, value := range payload {
			if err := web.db.SettingUpsert(ctx, key, value); err != nil {
				web.fail(w, r, err)
				return
			}
		}
		settings, err := web.db.SettingsGet(ctx)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success  bool              `json:"success"`
			Settings map[string]string `json:"settings"`
		}{
			Success:  true,
			Settings: settings,
		})
	})
}
