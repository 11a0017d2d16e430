package models

// ChangeKind identifies which raw record family was written.
type ChangeKind string

const (
	ChangeAttendance ChangeKind = "attendance"
	ChangeIAMarks    ChangeKind = "ia_marks"
)

// RecordChange describes a committed write to raw records of a course.
type RecordChange struct {
	Kind       ChangeKind
	CourseID   string
	StudentIDs []string
	ActorID    string
}

// BulkItemError reports a failed item in a bulk operation.
type BulkItemError struct {
	StudentID string `json:"student_id"`
	Error     string `json:"error"`
}
