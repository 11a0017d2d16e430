package models

// Course is a taught course with an assigned instructor.
type Course struct {
	ID         string `db:"id" json:"id"`
	Code       string `db:"code" json:"code"`
	Name       string `db:"name" json:"name"`
	Department string `db:"department" json:"department,omitempty"`
	Credits    int    `db:"credits" json:"credits"`
	FacultyID  string `db:"faculty_id" json:"faculty_id"`
	Semester   int    `db:"semester" json:"semester"`
	IsActive   bool   `db:"is_active" json:"is_active"`
}
