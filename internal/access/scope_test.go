package access

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

type stubCourseLister struct {
	ids   []string
	err   error
	calls int
}

func (s *stubCourseLister) ListTaughtCourseIDs(context.Context, string) ([]string, error) {
	s.calls++
	return s.ids, s.err
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, status, appErr.Status)
}

func TestStudentScopeRejectsOtherStudent(t *testing.T) {
	scope := &StudentScope{UserID: "user-1", StudentID: "stu-1"}

	_, err := scope.Narrow(models.RecordFilter{StudentID: "stu-2"})

	requireStatus(t, err, http.StatusForbidden)
}

func TestStudentScopeForcesOwnIdentity(t *testing.T) {
	scope := &StudentScope{UserID: "user-1", StudentID: "stu-1"}

	filter, err := scope.Narrow(models.RecordFilter{CourseID: "course-1"})

	require.NoError(t, err)
	assert.Equal(t, "stu-1", filter.StudentID)
	assert.Equal(t, "user-1", filter.UserID)
	assert.Equal(t, "course-1", filter.CourseID)
	assert.False(t, scope.SeesPeers())
	requireStatus(t, scope.AuthorizeCourseWrite("course-1"), http.StatusForbidden)
}

func TestFacultyScopeRejectsUntaughtCourse(t *testing.T) {
	scope := NewFacultyScope("user-9", "fac-1", []string{"course-2", "course-1"})

	_, err := scope.Narrow(models.RecordFilter{CourseID: "course-3"})
	requireStatus(t, err, http.StatusForbidden)

	requireStatus(t, scope.AuthorizeCourseWrite("course-3"), http.StatusForbidden)
	assert.NoError(t, scope.AuthorizeCourseWrite("course-1"))
}

func TestFacultyScopeRestrictsToTaughtCourses(t *testing.T) {
	scope := NewFacultyScope("user-9", "fac-1", []string{"course-2", "course-1"})

	filter, err := scope.Narrow(models.RecordFilter{})

	require.NoError(t, err)
	assert.True(t, filter.RestrictCourses)
	assert.Equal(t, []string{"course-1", "course-2"}, filter.CourseIDs)
	assert.Equal(t, "fac-1", filter.FacultyID)
	assert.True(t, scope.SeesPeers())
	assert.False(t, scope.SeesAllUsers())
}

func TestFacultyScopeRejectsOtherFacultyFeedback(t *testing.T) {
	scope := NewFacultyScope("user-9", "fac-1", nil)

	_, err := scope.Narrow(models.RecordFilter{FacultyID: "fac-2"})

	requireStatus(t, err, http.StatusForbidden)
}

func TestFacultyScopeWithNoCoursesRestrictsToEmptySet(t *testing.T) {
	scope := NewFacultyScope("user-9", "fac-1", nil)

	filter, err := scope.Narrow(models.RecordFilter{})

	require.NoError(t, err)
	assert.True(t, filter.RestrictCourses)
	assert.Empty(t, filter.CourseIDs)
}

func TestAdminScopePassesThrough(t *testing.T) {
	scope := &AdminScope{UserID: "admin-1"}
	in := models.RecordFilter{CourseID: "course-1", StudentID: "stu-7", FacultyID: "fac-3"}

	out, err := scope.Narrow(in)

	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.NoError(t, scope.AuthorizeCourseWrite("anything"))
	assert.True(t, scope.SeesAllUsers())
}

func TestResolverBuildsVariants(t *testing.T) {
	lister := &stubCourseLister{ids: []string{"course-1"}}
	resolver := NewResolver(lister)
	ctx := context.Background()

	student, err := resolver.Resolve(ctx, models.Principal{UserID: "u1", Role: models.RoleStudent, ProfileID: "stu-1"})
	require.NoError(t, err)
	assert.IsType(t, &StudentScope{}, student)

	faculty, err := resolver.Resolve(ctx, models.Principal{UserID: "u2", Role: models.RoleFaculty, ProfileID: "fac-1"})
	require.NoError(t, err)
	fs, ok := faculty.(*FacultyScope)
	require.True(t, ok)
	assert.True(t, fs.Teaches("course-1"))
	assert.Equal(t, 1, lister.calls)

	admin, err := resolver.Resolve(ctx, models.Principal{UserID: "u3", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role())
}

func TestResolverRejectsUnknownRole(t *testing.T) {
	resolver := NewResolver(&stubCourseLister{})

	_, err := resolver.Resolve(context.Background(), models.Principal{UserID: "u1", Role: "janitor"})

	requireStatus(t, err, http.StatusForbidden)
}

func TestResolverRequiresUser(t *testing.T) {
	resolver := NewResolver(&stubCourseLister{})

	_, err := resolver.Resolve(context.Background(), models.Principal{Role: models.RoleAdmin})

	requireStatus(t, err, http.StatusUnauthorized)
}

func TestResolverWrapsCourseLookupFailure(t *testing.T) {
	resolver := NewResolver(&stubCourseLister{err: errors.New("db down")})

	_, err := resolver.Resolve(context.Background(), models.Principal{UserID: "u2", Role: models.RoleFaculty, ProfileID: "fac-1"})

	requireStatus(t, err, http.StatusInternalServerError)
}
