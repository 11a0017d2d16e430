// Package access resolves an authenticated principal into a role-specific
// scope that narrows analytics filters and gates writes.
package access

import (
	"context"
	"fmt"
	"sort"

	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

// Scope is the closed set of caller variants. Only this package implements it.
type Scope interface {
	// Role returns the role the scope was resolved from.
	Role() models.UserRole
	// Subject returns the user id of the caller.
	Subject() string
	// Narrow validates an explicit filter and applies the implicit restrictions of the role.
	Narrow(filter models.RecordFilter) (models.RecordFilter, error)
	// AuthorizeCourseWrite rejects writes to raw records of a course the caller does not own.
	AuthorizeCourseWrite(courseID string) error
	// SeesPeers reports whether per-student breakdowns may be returned.
	SeesPeers() bool
	// SeesAllUsers reports whether cross-user rankings may be returned.
	SeesAllUsers() bool

	sealed()
}

// StudentScope restricts every query to the student's own records.
type StudentScope struct {
	UserID    string
	StudentID string
}

// FacultyScope restricts queries to the courses the instructor teaches.
type FacultyScope struct {
	UserID    string
	FacultyID string
	CourseIDs []string

	taught map[string]struct{}
}

// AdminScope is unrestricted.
type AdminScope struct {
	UserID string
}

// NewFacultyScope builds a faculty scope over the taught course ids.
func NewFacultyScope(userID, facultyID string, courseIDs []string) *FacultyScope {
	ids := append([]string(nil), courseIDs...)
	sort.Strings(ids)
	taught := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		taught[id] = struct{}{}
	}
	return &FacultyScope{UserID: userID, FacultyID: facultyID, CourseIDs: ids, taught: taught}
}

func forbidden(format string, args ...interface{}) error {
	return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf(format, args...))
}

func (s *StudentScope) Role() models.UserRole { return models.RoleStudent }
func (s *StudentScope) Subject() string       { return s.UserID }
func (s *StudentScope) SeesPeers() bool       { return false }
func (s *StudentScope) SeesAllUsers() bool    { return false }
func (s *StudentScope) sealed()               {}

func (s *StudentScope) Narrow(filter models.RecordFilter) (models.RecordFilter, error) {
	if filter.StudentID != "" && filter.StudentID != s.StudentID {
		return filter, forbidden("students may only access their own records")
	}
	if filter.UserID != "" && filter.UserID != s.UserID {
		return filter, forbidden("students may only access their own activity")
	}
	filter.StudentID = s.StudentID
	filter.UserID = s.UserID
	return filter, nil
}

func (s *StudentScope) AuthorizeCourseWrite(string) error {
	return forbidden("students cannot modify course records")
}

func (s *FacultyScope) Role() models.UserRole { return models.RoleFaculty }
func (s *FacultyScope) Subject() string       { return s.UserID }
func (s *FacultyScope) SeesPeers() bool       { return true }
func (s *FacultyScope) SeesAllUsers() bool    { return false }
func (s *FacultyScope) sealed()               {}

// Teaches reports whether the course is assigned to the instructor.
func (s *FacultyScope) Teaches(courseID string) bool {
	if s.taught == nil {
		for _, id := range s.CourseIDs {
			if id == courseID {
				return true
			}
		}
		return false
	}
	_, ok := s.taught[courseID]
	return ok
}

func (s *FacultyScope) Narrow(filter models.RecordFilter) (models.RecordFilter, error) {
	if filter.CourseID != "" && !s.Teaches(filter.CourseID) {
		return filter, forbidden("you do not teach this course")
	}
	if filter.FacultyID != "" && filter.FacultyID != s.FacultyID {
		return filter, forbidden("faculty may only access their own feedback")
	}
	if filter.UserID != "" && filter.UserID != s.UserID {
		return filter, forbidden("faculty may only access their own activity")
	}
	if filter.CourseID == "" {
		filter.RestrictCourses = true
		filter.CourseIDs = append([]string(nil), s.CourseIDs...)
	}
	filter.FacultyID = s.FacultyID
	filter.UserID = s.UserID
	return filter, nil
}

func (s *FacultyScope) AuthorizeCourseWrite(courseID string) error {
	if !s.Teaches(courseID) {
		return forbidden("you do not teach this course")
	}
	return nil
}

func (s *AdminScope) Role() models.UserRole { return models.RoleAdmin }
func (s *AdminScope) Subject() string       { return s.UserID }
func (s *AdminScope) SeesPeers() bool       { return true }
func (s *AdminScope) SeesAllUsers() bool    { return true }
func (s *AdminScope) sealed()               {}

func (s *AdminScope) Narrow(filter models.RecordFilter) (models.RecordFilter, error) {
	return filter, nil
}

func (s *AdminScope) AuthorizeCourseWrite(string) error { return nil }

// TaughtCourseLister loads the course ids assigned to a faculty profile.
type TaughtCourseLister interface {
	ListTaughtCourseIDs(ctx context.Context, facultyID string) ([]string, error)
}

// Resolver turns principals into scopes.
type Resolver struct {
	courses TaughtCourseLister
}

// NewResolver constructs a Resolver.
func NewResolver(courses TaughtCourseLister) *Resolver {
	return &Resolver{courses: courses}
}

// Resolve builds the scope for the principal. Faculty scopes load taught courses once.
func (r *Resolver) Resolve(ctx context.Context, principal models.Principal) (Scope, error) {
	if principal.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	switch principal.Role {
	case models.RoleStudent:
		if principal.ProfileID == "" {
			return nil, forbidden("student profile missing")
		}
		return &StudentScope{UserID: principal.UserID, StudentID: principal.ProfileID}, nil
	case models.RoleFaculty:
		if principal.ProfileID == "" {
			return nil, forbidden("faculty profile missing")
		}
		if r.courses == nil {
			return nil, appErrors.Wrap(fmt.Errorf("course lister missing"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "scope resolution error")
		}
		ids, err := r.courses.ListTaughtCourseIDs(ctx, principal.ProfileID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load taught courses")
		}
		return NewFacultyScope(principal.UserID, principal.ProfileID, ids), nil
	case models.RoleAdmin:
		return &AdminScope{UserID: principal.UserID}, nil
	default:
		return nil, forbidden("unsupported role %q", principal.Role)
	}
}
