package auth

import (
	"context"
	"fmt"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/apperr"
)

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher || r == RoleStudent
}

// ParseRole converts a string to a Role or fails.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Capability is a named permission granted to a role.
type Capability string

const (
	CapCreateAttendance  Capability = "attendance:create"
	CapReadAttendance    Capability = "attendance:read"
	CapCorrectAttendance Capability = "attendance:correct"
	CapDeleteAttendance  Capability = "attendance:delete"
	CapReadReports       Capability = "reports:read"
	CapManageUsers       Capability = "users:manage"
	CapManageRegistry    Capability = "registry:manage"
	CapUploadPhotos      Capability = "photos:upload"
)

// roleCapabilities is the static capability table. Ownership scoping
// (which classes, which students) is checked separately per request.
var roleCapabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapCreateAttendance:  true,
		CapReadAttendance:    true,
		CapCorrectAttendance: true,
		CapDeleteAttendance:  true,
		CapReadReports:       true,
		CapManageUsers:       true,
		CapManageRegistry:    true,
		CapUploadPhotos:      true,
	},
	RoleTeacher: {
		CapCreateAttendance:  true,
		CapReadAttendance:    true,
		CapCorrectAttendance: true,
		CapReadReports:       true,
		CapUploadPhotos:      true,
	},
	RoleStudent: {
		CapReadAttendance: true,
	},
}

// Directory resolves ownership relations for scoping decisions. Lookups
// hit the registry on every call; ownership is never cached because it
// can change between requests.
type Directory interface {
	// ClassOwner returns the teacher user id owning the class, or
	// apperr.NotFound if the class does not exist.
	ClassOwner(ctx context.Context, classID string) (string, error)
	// StudentForUser returns the student id linked to a user account,
	// or apperr.NotFound if the user has no student record.
	StudentForUser(ctx context.Context, userID string) (string, error)
	// Enrolled reports whether the student is enrolled in the class.
	Enrolled(ctx context.Context, studentID, classID string) (bool, error)
	// ClassesOwnedBy lists class ids owned by the teacher.
	ClassesOwnedBy(ctx context.Context, teacherID string) ([]string, error)
}

// Guard makes allow/deny decisions from claims, the capability table
// and per-request ownership lookups.
type Guard struct {
	dir Directory
}

// NewGuard creates a guard backed by the given directory.
func NewGuard(dir Directory) *Guard {
	return &Guard{dir: dir}
}

// Can checks the static capability table. Deny is an error value, not
// a panic; business flow branches on it.
func (g *Guard) Can(claims Claims, cap Capability) error {
	if roleCapabilities[claims.Role][cap] {
		return nil
	}
	return apperr.Forbidden("role " + string(claims.Role) + " lacks " + string(cap))
}

// CanAccessClass checks that the caller may act on the given class.
// Admins always may; teachers must own the class; students must be
// enrolled in it.
func (g *Guard) CanAccessClass(ctx context.Context, claims Claims, classID string) error {
	switch claims.Role {
	case RoleAdmin:
		return nil
	case RoleTeacher:
		owner, err := g.dir.ClassOwner(ctx, classID)
		if err != nil {
			return err
		}
		if owner != claims.UserID {
			return apperr.Forbidden("class not owned by caller")
		}
		return nil
	case RoleStudent:
		studentID, err := g.dir.StudentForUser(ctx, claims.UserID)
		if err != nil {
			return apperr.Forbidden("no student record for caller")
		}
		ok, err := g.dir.Enrolled(ctx, studentID, classID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Forbidden("not enrolled in class")
		}
		return nil
	}
	return apperr.Forbidden("unknown role")
}

// CanAccessStudent checks that the caller may read the given student's
// rows. Students may only read themselves; teachers may read students
// enrolled in a class they own.
func (g *Guard) CanAccessStudent(ctx context.Context, claims Claims, studentID string) error {
	switch claims.Role {
	case RoleAdmin:
		return nil
	case RoleStudent:
		own, err := g.dir.StudentForUser(ctx, claims.UserID)
		if err != nil {
			return apperr.Forbidden("no student record for caller")
		}
		if own != studentID {
			return apperr.Forbidden("not your attendance")
		}
		return nil
	case RoleTeacher:
		classes, err := g.dir.ClassesOwnedBy(ctx, claims.UserID)
		if err != nil {
			return err
		}
		for _, classID := range classes {
			ok, err := g.dir.Enrolled(ctx, studentID, classID)
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
		return apperr.Forbidden("student not in any owned class")
	}
	return apperr.Forbidden("unknown role")
}

// OwnStudentID returns the student id for a student caller.
func (g *Guard) OwnStudentID(ctx context.Context, claims Claims) (string, error) {
	id, err := g.dir.StudentForUser(ctx, claims.UserID)
	if err != nil {
		return "", apperr.Forbidden("no student record for caller")
	}
	return id, nil
}

// OwnedClasses returns the class ids a teacher caller owns.
func (g *Guard) OwnedClasses(ctx context.Context, claims Claims) ([]string, error) {
	return g.dir.ClassesOwnedBy(ctx, claims.UserID)
}
