package authn

import (
	"encoding/json"
	"fmt"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

// ParseAPIKeysConfig decodes API_KEYS_CONFIG, a JSON object mapping each
// configured key to the role it grants (e.g. {"svc-ingest": "EMPLOYEE"}).
// An empty or "{}" config yields no entries rather than an error, since a
// deployment may rely on JWT auth alone.
func ParseAPIKeysConfig(raw string) ([]APIKeyEntry, error) {
	if raw == "" {
		return nil, nil
	}
	var byKey map[string]string
	if err := json.Unmarshal([]byte(raw), &byKey); err != nil {
		return nil, fmt.Errorf("authn: parse API_KEYS_CONFIG: %w", err)
	}
	entries := make([]APIKeyEntry, 0, len(byKey))
	for key, role := range byKey {
		entries = append(entries, APIKeyEntry{Key: key, Role: model.Role(role)})
	}
	return entries, nil
}
