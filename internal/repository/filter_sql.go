package repository

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/noah-isme/nexalink-api/internal/models"
)

// whereBuilder accumulates positional predicates for Postgres queries.
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

func (b *whereBuilder) add(format string, value interface{}) {
	b.args = append(b.args, value)
	b.conditions = append(b.conditions, fmt.Sprintf(format, len(b.args)))
}

func (b *whereBuilder) clause() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conditions, " AND ")
}

// filterColumns maps RecordFilter fields onto the columns of a query. Empty names are ignored.
type filterColumns struct {
	course   string
	student  string
	faculty  string
	user     string
	userType string
	action   string
	// scoreType applies RecordFilter.ScoreType; only performance records carry it.
	scoreType string
	date      string
	// timestamp marks date as a timestamp column, making the upper bound exclusive of the next day.
	timestamp bool
}

func applyRecordFilter(b *whereBuilder, f models.RecordFilter, cols filterColumns) {
	if cols.course != "" {
		if f.CourseID != "" {
			b.add(cols.course+" = $%d", f.CourseID)
		} else if f.RestrictCourses {
			b.add(cols.course+" = ANY($%d)", pq.Array(f.CourseIDs))
		}
	}
	if cols.student != "" && f.StudentID != "" {
		b.add(cols.student+" = $%d", f.StudentID)
	}
	if cols.faculty != "" && f.FacultyID != "" {
		b.add(cols.faculty+" = $%d", f.FacultyID)
	}
	if cols.user != "" && f.UserID != "" {
		b.add(cols.user+" = $%d", f.UserID)
	}
	if cols.userType != "" && f.UserType != "" {
		b.add(cols.userType+" = $%d", f.UserType)
	}
	if cols.action != "" && f.Action != "" {
		b.add(cols.action+" = $%d", f.Action)
	}
	if cols.scoreType != "" && f.ScoreType != "" {
		b.add(cols.scoreType+" = $%d", string(f.ScoreType))
	}
	if cols.date != "" {
		if f.DateFrom != nil {
			b.add(cols.date+" >= $%d", *f.DateFrom)
		}
		if f.DateTo != nil {
			if cols.timestamp {
				b.add(cols.date+" < $%d", f.DateTo.AddDate(0, 0, 1))
			} else {
				b.add(cols.date+" <= $%d", *f.DateTo)
			}
		}
	}
}
