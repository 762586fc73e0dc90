package redisstore

import (
	"encoding/json"
	"fmt"
)

func decode(raw []byte, rec *record) error {
	if err := json.Unmarshal(raw, rec); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}
	return nil
}
