package dto

import "github.com/noah-isme/nexalink-api/internal/models"

// SessionResponse describes the authenticated caller and the scope applied to their queries.
type SessionResponse struct {
	UserID    string          `json:"user_id"`
	Role      models.UserRole `json:"role"`
	ProfileID string          `json:"profile_id,omitempty"`
	CourseIDs []string        `json:"course_ids,omitempty"`
	SeesPeers bool            `json:"sees_peers"`
	SeesAll   bool            `json:"sees_all_users"`
}
