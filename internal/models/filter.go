package models

import (
	"strings"
	"time"
)

// RecordFilter narrows raw records fed to analytics aggregations.
// RestrictCourses limits results to CourseIDs even when CourseIDs is empty.
type RecordFilter struct {
	CourseID        string
	StudentID       string
	FacultyID       string
	UserID          string
	UserType        UserRole
	Action          string
	ScoreType       ScoreType
	DateFrom        *time.Time
	DateTo          *time.Time
	RestrictCourses bool
	CourseIDs       []string
}

// CacheKeyParts renders the filter into stable cache key segments.
func (f RecordFilter) CacheKeyParts() []string {
	parts := []string{
		"c=" + f.CourseID,
		"s=" + f.StudentID,
		"f=" + f.FacultyID,
		"u=" + f.UserID,
		"t=" + string(f.UserType),
		"a=" + f.Action,
		"st=" + string(f.ScoreType),
		"from=" + formatDate(f.DateFrom),
		"to=" + formatDate(f.DateTo),
	}
	if f.RestrictCourses {
		parts = append(parts, "scope="+strings.Join(f.CourseIDs, ","))
	}
	return parts
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

