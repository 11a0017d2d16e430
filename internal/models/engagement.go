package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EngagementEvent is an append-only log entry of user activity.
type EngagementEvent struct {
	ID        string             `db:"id" json:"id"`
	UserID    string             `db:"user_id" json:"user_id"`
	UserEmail string             `db:"user_email" json:"user_email,omitempty"`
	UserType  UserRole           `db:"user_type" json:"user_type"`
	Action    string             `db:"action" json:"action"`
	Resource  string             `db:"resource" json:"resource"`
	Timestamp time.Time          `db:"timestamp" json:"timestamp"`
	Metadata  EngagementMetadata `db:"metadata" json:"metadata,omitempty"`
}

// EngagementMetadata stores free-form event attributes persisted as JSONB.
type EngagementMetadata map[string]string

// Value marshals metadata to JSON for persistence.
func (m EngagementMetadata) Value() (driver.Value, error) {
	if m == nil {
		m = EngagementMetadata{}
	}
	data, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, fmt.Errorf("marshal engagement metadata: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the metadata map.
func (m *EngagementMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = EngagementMetadata{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for EngagementMetadata", value)
	}
	if len(data) == 0 {
		*m = EngagementMetadata{}
		return nil
	}
	decoded := map[string]string{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("unmarshal engagement metadata: %w", err)
	}
	*m = decoded
	return nil
}
