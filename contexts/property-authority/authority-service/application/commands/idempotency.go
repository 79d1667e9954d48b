package commands

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

func hashRequest(payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

// scopedKey namespaces a caller-supplied idempotency key to one tenant, actor,
// and operation kind, so equal keys from different scopes never collide.
func scopedKey(orgID string, actorID string, operation string, key string) string {
	return "authority_idempotency:" + strings.Join([]string{orgID, actorID, operation, key}, ":")
}
