package scorer

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/rxhuang/fp-null-pointer/internal/config"
)

// ConfigHash returns a SHA-256 hash of the scoring config so saved runs can
// be traced back to the calibration that produced them.
func ConfigHash(cfg config.ScorerConfig) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16]) // 32 hex chars
}
