package db

import "context"

// Setting is a single key/value shop configuration row, such as the
// shop name or the agreement terms text.
type Setting struct {
	Key   string `db:"key" json:"key"`
	Value string `db:"value" json:"value"`
}

// SettingsGet returns all settings as a map.
func (db *DB) SettingsGet(ctx context.Context) (map[string]string, error) {
	rows := []Setting{}
	if err := db.selectStmt(ctx, &rows, qSettings, map[string]any{}); err != nil {
		return nil, err
	}
	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		settings[row.Key] = row.Value
	}
	return settings, nil
}

// SettingUpsert inserts or replaces a single setting.
func (db *DB) SettingUpsert(ctx context.Context, key, value string) error {
	_, err := db.execStmt(ctx, qSettingUpsert, map[string]any{
		"Key":   key,
		"Value": value,
	})
	return err
}
