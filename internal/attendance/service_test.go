package attendance_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/apperr"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/attendance"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/auth"
)

// fakeDirectory implements auth.Directory for guard decisions.
type fakeDirectory struct {
	owners      map[string]string
	students    map[string]string
	enrollments map[string][]string
}

func (f fakeDirectory) ClassOwner(_ context.Context, classID string) (string, error) {
	owner, ok := f.owners[classID]
	if !ok {
		return "", apperr.NotFound("class not found")
	}
	return owner, nil
}

func (f fakeDirectory) StudentForUser(_ context.Context, userID string) (string, error) {
	id, ok := f.students[userID]
	if !ok {
		return "", apperr.NotFound("no student record for user")
	}
	return id, nil
}

func (f fakeDirectory) Enrolled(_ context.Context, studentID, classID string) (bool, error) {
	for _, c := range f.enrollments[studentID] {
		if c == classID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeDirectory) ClassesOwnedBy(_ context.Context, teacherID string) ([]string, error) {
	var ids []string
	for classID, owner := range f.owners {
		if owner == teacherID {
			ids = append(ids, classID)
		}
	}
	return ids, nil
}

// fakeRegistry implements attendance.Registry over the same fixture.
type fakeRegistry struct {
	dir    fakeDirectory
	topics map[string]string // topicID -> classID
}

func (f fakeRegistry) ClassExists(_ context.Context, id string) (bool, error) {
	_, ok := f.dir.owners[id]
	return ok, nil
}

func (f fakeRegistry) StudentExists(_ context.Context, id string) (bool, error) {
	for _, sid := range f.dir.students {
		if sid == id {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeRegistry) TopicClass(_ context.Context, topicID string) (string, error) {
	classID, ok := f.topics[topicID]
	if !ok {
		return "", apperr.NotFound("topic not found")
	}
	return classID, nil
}

func (f fakeRegistry) Enrolled(ctx context.Context, studentID, classID string) (bool, error) {
	return f.dir.Enrolled(ctx, studentID, classID)
}

// fakeStore keeps records in memory and enforces the session-key
// uniqueness the real schema enforces with an index.
type fakeStore struct {
	records []attendance.Record
	nextID  int
}

func (s *fakeStore) Insert(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	for _, existing := range s.records {
		if existing.StudentID == rec.StudentID && existing.ClassID == rec.ClassID &&
			existing.SessionDate.Equal(rec.SessionDate) {
			return attendance.Record{}, apperr.Conflict("attendance already recorded for this student, class and date")
		}
	}
	s.nextID++
	rec.ID = fmt.Sprintf("rec-%d", s.nextID)
	rec.CreatedAt = time.Now()
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *fakeStore) Get(_ context.Context, id string) (attendance.Record, error) {
	for _, rec := range s.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return attendance.Record{}, apperr.NotFound("attendance record not found")
}

func (s *fakeStore) List(_ context.Context, f attendance.Filter) ([]attendance.Record, error) {
	var out []attendance.Record
	for _, rec := range s.records {
		if f.ClassID != "" && rec.ClassID != f.ClassID {
			continue
		}
		if f.StudentID != "" && rec.StudentID != f.StudentID {
			continue
		}
		if f.TopicID != "" && (rec.TopicID == nil || *rec.TopicID != f.TopicID) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *fakeStore) Replace(_ context.Context, id string, c attendance.Correction) (attendance.Record, error) {
	for i, rec := range s.records {
		if rec.ID == id {
			rec.Status = c.Status
			rec.TopicID = c.TopicID
			rec.Photo = c.Photo
			s.records[i] = rec
			return rec, nil
		}
	}
	return attendance.Record{}, apperr.NotFound("attendance record not found")
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	for i, rec := range s.records {
		if rec.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("attendance record not found")
}

func newFixture() (*attendance.Service, *fakeStore) {
	dir := fakeDirectory{
		owners:      map[string]string{"class-a": "teacher-a", "class-b": "teacher-b"},
		students:    map[string]string{"student-user": "student-1"},
		enrollments: map[string][]string{"student-1": {"class-a"}},
	}
	reg := fakeRegistry{dir: dir, topics: map[string]string{"topic-a": "class-a", "topic-b": "class-b"}}
	store := &fakeStore{}
	svc := attendance.NewService(store, reg, auth.NewGuard(dir))
	return svc, store
}

func teacherA() auth.Claims {
	return auth.Claims{UserID: "teacher-a", Email: "a@school.example", Role: auth.RoleTeacher}
}

func sessionDate() time.Time {
	return time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
}

// TestRecord_WithTopic covers the core scenario: a teacher records
// attendance with a topic and no photo, and the row is listable by
// class and topic.
func TestRecord_WithTopic(t *testing.T) {
	svc, _ := newFixture()
	ctx := context.Background()
	topic := "topic-a"

	rec, err := svc.Record(ctx, teacherA(), attendance.Entry{
		StudentID:   "student-1",
		ClassID:     "class-a",
		TopicID:     &topic,
		Status:      attendance.StatusPresent,
		SessionDate: sessionDate(),
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected generated id")
	}
	if rec.Photo != nil {
		t.Error("expected no photo")
	}
	if rec.RecordedBy != "teacher-a" {
		t.Errorf("expected recorded_by teacher-a, got %q", rec.RecordedBy)
	}

	rows, err := svc.List(ctx, teacherA(), attendance.Filter{ClassID: "class-a", TopicID: "topic-a"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != rec.ID {
		t.Errorf("expected exactly the recorded row, got %v", rows)
	}
}

// TestRecord_TopicClassMismatch verifies a topic belonging to another
// class is rejected, not silently accepted.
func TestRecord_TopicClassMismatch(t *testing.T) {
	svc, _ := newFixture()
	topic := "topic-b" // belongs to class-b

	_, err := svc.Record(context.Background(), auth.Claims{UserID: "admin", Role: auth.RoleAdmin}, attendance.Entry{
		StudentID:   "student-1",
		ClassID:     "class-a",
		TopicID:     &topic,
		Status:      attendance.StatusPresent,
		SessionDate: sessionDate(),
	})
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Errorf("expected validation error for topic-class mismatch, got %v", err)
	}
}

// TestRecord_DuplicateSessionKey verifies the second mark for the same
// (student, class, date) yields Conflict.
func TestRecord_DuplicateSessionKey(t *testing.T) {
	svc, _ := newFixture()
	ctx := context.Background()
	entry := attendance.Entry{
		StudentID:   "student-1",
		ClassID:     "class-a",
		Status:      attendance.StatusPresent,
		SessionDate: sessionDate(),
	}

	if _, err := svc.Record(ctx, teacherA(), entry); err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	entry.Status = attendance.StatusLate
	if _, err := svc.Record(ctx, teacherA(), entry); !apperr.Is(err, apperr.CodeConflict) {
		t.Errorf("expected conflict for duplicate session key, got %v", err)
	}
}

// TestRecord_ForeignClassDenied verifies a teacher cannot record for a
// class they do not own.
func TestRecord_ForeignClassDenied(t *testing.T) {
	svc, _ := newFixture()

	_, err := svc.Record(context.Background(), teacherA(), attendance.Entry{
		StudentID:   "student-1",
		ClassID:     "class-b",
		Status:      attendance.StatusPresent,
		SessionDate: sessionDate(),
	})
	if !apperr.Is(err, apperr.CodeForbidden) {
		t.Errorf("expected forbidden for foreign class, got %v", err)
	}
}

// TestRecord_StudentRoleDenied verifies students cannot record at all.
func TestRecord_StudentRoleDenied(t *testing.T) {
	svc, _ := newFixture()

	_, err := svc.Record(context.Background(), auth.Claims{UserID: "student-user", Role: auth.RoleStudent}, attendance.Entry{
		StudentID:   "student-1",
		ClassID:     "class-a",
		Status:      attendance.StatusPresent,
		SessionDate: sessionDate(),
	})
	if !apperr.Is(err, apperr.CodeForbidden) {
		t.Errorf("expected forbidden for student role, got %v", err)
	}
}

// TestRecord_NotEnrolled verifies enrollment is required.
func TestRecord_NotEnrolled(t *testing.T) {
	svc, _ := newFixture()

	_, err := svc.Record(context.Background(), auth.Claims{UserID: "teacher-b", Role: auth.RoleTeacher}, attendance.Entry{
		StudentID:   "student-1",
		ClassID:     "class-b",
		Status:      attendance.StatusAbsent,
		SessionDate: sessionDate(),
	})
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Errorf("expected validation error for unenrolled student, got %v", err)
	}
}

// TestList_StudentScopedToSelf verifies a student sees only their own
// rows and an explicit foreign filter is denied.
func TestList_StudentScopedToSelf(t *testing.T) {
	svc, store := newFixture()
	ctx := context.Background()
	store.records = []attendance.Record{
		{ID: "r1", StudentID: "student-1", ClassID: "class-a", Status: attendance.StatusPresent, SessionDate: sessionDate()},
		{ID: "r2", StudentID: "student-2", ClassID: "class-a", Status: attendance.StatusAbsent, SessionDate: sessionDate()},
	}
	student := auth.Claims{UserID: "student-user", Role: auth.RoleStudent}

	rows, err := svc.List(ctx, student, attendance.Filter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "r1" {
		t.Errorf("expected only own row, got %v", rows)
	}

	if _, err := svc.List(ctx, student, attendance.Filter{StudentID: "student-2"}); !apperr.Is(err, apperr.CodeForbidden) {
		t.Errorf("expected forbidden for foreign student filter, got %v", err)
	}
}

// TestCorrect_ReplacesWholesale verifies correction overwrites status,
// topic and photo together.
func TestCorrect_ReplacesWholesale(t *testing.T) {
	svc, store := newFixture()
	ctx := context.Background()
	photo := "https://cdn.example/p.jpg"
	topic := "topic-a"
	store.records = []attendance.Record{
		{ID: "r1", StudentID: "student-1", ClassID: "class-a", TopicID: &topic, Photo: &photo,
			Status: attendance.StatusAbsent, SessionDate: sessionDate()},
	}

	rec, err := svc.Correct(ctx, teacherA(), "r1", attendance.Correction{Status: attendance.StatusLate})
	if err != nil {
		t.Fatalf("correct failed: %v", err)
	}
	if rec.Status != attendance.StatusLate {
		t.Errorf("expected status late, got %q", rec.Status)
	}
	if rec.TopicID != nil || rec.Photo != nil {
		t.Error("expected topic and photo cleared by wholesale replace")
	}

	if _, err := svc.Correct(ctx, teacherA(), "missing", attendance.Correction{Status: attendance.StatusLate}); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("expected not found for missing record, got %v", err)
	}
}

// TestDelete_AdminOnly verifies the delete capability gate.
func TestDelete_AdminOnly(t *testing.T) {
	svc, store := newFixture()
	ctx := context.Background()
	store.records = []attendance.Record{
		{ID: "r1", StudentID: "student-1", ClassID: "class-a", Status: attendance.StatusPresent, SessionDate: sessionDate()},
	}

	if err := svc.Delete(ctx, teacherA(), "r1"); !apperr.Is(err, apperr.CodeForbidden) {
		t.Errorf("expected forbidden for teacher delete, got %v", err)
	}
	if err := svc.Delete(ctx, auth.Claims{UserID: "admin", Role: auth.RoleAdmin}, "r1"); err != nil {
		t.Errorf("expected admin delete to succeed, got %v", err)
	}
	if err := svc.Delete(ctx, auth.Claims{UserID: "admin", Role: auth.RoleAdmin}, "r1"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("expected not found for second delete, got %v", err)
	}
}
