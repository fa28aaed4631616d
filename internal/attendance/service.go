package attendance

import (
	"context"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/apperr"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/auth"
)

// RecordStore is the persistence contract the service drives.
type RecordStore interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, f Filter) ([]Record, error)
	Replace(ctx context.Context, id string, c Correction) (Record, error)
	Delete(ctx context.Context, id string) error
}

// Registry resolves the external entities attendance rows reference.
type Registry interface {
	ClassExists(ctx context.Context, id string) (bool, error)
	StudentExists(ctx context.Context, id string) (bool, error)
	TopicClass(ctx context.Context, topicID string) (string, error)
	Enrolled(ctx context.Context, studentID, classID string) (bool, error)
}

// Service validates and authorizes attendance operations.
type Service struct {
	repo  RecordStore
	reg   Registry
	guard *auth.Guard
}

// NewService creates a service.
func NewService(repo RecordStore, reg Registry, guard *auth.Guard) *Service {
	return &Service{repo: repo, reg: reg, guard: guard}
}

// Record validates and persists a new attendance mark. The registry
// checks give precise errors; the storage constraints remain the
// authority under concurrency.
func (s *Service) Record(ctx context.Context, claims auth.Claims, e Entry) (Record, error) {
	if err := s.guard.Can(claims, auth.CapCreateAttendance); err != nil {
		return Record{}, err
	}
	if e.StudentID == "" || e.ClassID == "" {
		return Record{}, apperr.Validation("student_id and class_id required")
	}
	if !e.Status.Valid() {
		return Record{}, apperr.Validation("status must be present, absent or late")
	}
	if e.SessionDate.IsZero() {
		return Record{}, apperr.Validation("session_date required")
	}
	if err := s.guard.CanAccessClass(ctx, claims, e.ClassID); err != nil {
		return Record{}, err
	}

	if ok, err := s.reg.ClassExists(ctx, e.ClassID); err != nil {
		return Record{}, err
	} else if !ok {
		return Record{}, apperr.NotFound("class not found")
	}
	if ok, err := s.reg.StudentExists(ctx, e.StudentID); err != nil {
		return Record{}, err
	} else if !ok {
		return Record{}, apperr.NotFound("student not found")
	}
	if ok, err := s.reg.Enrolled(ctx, e.StudentID, e.ClassID); err != nil {
		return Record{}, err
	} else if !ok {
		return Record{}, apperr.Validation("student not enrolled in class")
	}
	if err := s.validateTopic(ctx, e.TopicID, e.ClassID); err != nil {
		return Record{}, err
	}

	return s.repo.Insert(ctx, Record{
		StudentID:   e.StudentID,
		ClassID:     e.ClassID,
		TopicID:     e.TopicID,
		Photo:       e.Photo,
		Status:      e.Status,
		SessionDate: e.SessionDate,
		RecordedBy:  claims.UserID,
	})
}

// List returns records visible to the caller. Teachers are scoped to
// owned classes, students to their own rows; an explicit out-of-scope
// filter is denied rather than silently emptied.
func (s *Service) List(ctx context.Context, claims auth.Claims, f Filter) ([]Record, error) {
	if err := s.guard.Can(claims, auth.CapReadAttendance); err != nil {
		return nil, err
	}
	scoped, err := s.scope(ctx, claims, f)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scoped)
}

// Correct replaces the status, topic and photo of an existing record.
func (s *Service) Correct(ctx context.Context, claims auth.Claims, id string, c Correction) (Record, error) {
	if err := s.guard.Can(claims, auth.CapCorrectAttendance); err != nil {
		return Record{}, err
	}
	if !c.Status.Valid() {
		return Record{}, apperr.Validation("status must be present, absent or late")
	}
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if err := s.guard.CanAccessClass(ctx, claims, rec.ClassID); err != nil {
		return Record{}, err
	}
	if err := s.validateTopic(ctx, c.TopicID, rec.ClassID); err != nil {
		return Record{}, err
	}
	return s.repo.Replace(ctx, id, c)
}

// Delete removes a record. Admin capability only.
func (s *Service) Delete(ctx context.Context, claims auth.Claims, id string) error {
	if err := s.guard.Can(claims, auth.CapDeleteAttendance); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Scope narrows a caller-supplied filter to what the claims allow.
// Exported for the report aggregator, which applies the same rules
// before grouping.
func (s *Service) Scope(ctx context.Context, claims auth.Claims, f Filter) (Filter, error) {
	return s.scope(ctx, claims, f)
}

func (s *Service) scope(ctx context.Context, claims auth.Claims, f Filter) (Filter, error) {
	switch claims.Role {
	case auth.RoleAdmin:
		return f, nil
	case auth.RoleTeacher:
		if f.ClassID != "" {
			if err := s.guard.CanAccessClass(ctx, claims, f.ClassID); err != nil {
				return Filter{}, err
			}
			return f, nil
		}
		if f.StudentID != "" {
			if err := s.guard.CanAccessStudent(ctx, claims, f.StudentID); err != nil {
				return Filter{}, err
			}
		}
		owned, err := s.guard.OwnedClasses(ctx, claims)
		if err != nil {
			return Filter{}, err
		}
		if len(owned) == 0 {
			// No owned classes means no visible rows; an impossible
			// class id keeps the query shape instead of special-casing.
			owned = []string{"none"}
		}
		f.ClassIDs = owned
		return f, nil
	case auth.RoleStudent:
		own, err := s.guard.OwnStudentID(ctx, claims)
		if err != nil {
			return Filter{}, err
		}
		if f.StudentID != "" && f.StudentID != own {
			return Filter{}, apperr.Forbidden("not your attendance")
		}
		f.StudentID = own
		if f.ClassID != "" {
			if err := s.guard.CanAccessClass(ctx, claims, f.ClassID); err != nil {
				return Filter{}, err
			}
		}
		return f, nil
	}
	return Filter{}, apperr.Forbidden("unknown role")
}

func (s *Service) validateTopic(ctx context.Context, topicID *string, classID string) error {
	if topicID == nil || *topicID == "" {
		return nil
	}
	owner, err := s.reg.TopicClass(ctx, *topicID)
	if err != nil {
		return err
	}
	if owner != classID {
		return apperr.Validation("topic does not belong to class")
	}
	return nil
}
