package registry

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/apperr"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/store"
)

// Class is a taught class owned by one teacher.
type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeacherID string    `json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Topic is a lesson topic under a class.
type Topic struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Student is a registered student, optionally linked to a login account.
type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    *string   `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists classes, topics, students and enrollments. It
// lives in the same database as attendance rows so that foreign key
// validation and the attendance insert share one transaction.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateClass registers a class under a teacher.
func (r *Repository) CreateClass(ctx context.Context, name, teacherID string) (Class, error) {
	if name == "" {
		return Class{}, apperr.Validation("class name required")
	}
	c := Class{ID: uuid.NewString(), Name: name, TeacherID: teacherID}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO classes (id, name, teacher_id)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, c.ID, c.Name, c.TeacherID)
	if err := row.Scan(&c.CreatedAt); err != nil {
		if store.IsForeignKeyViolation(err) {
			return Class{}, apperr.NotFound("teacher not found")
		}
		return Class{}, apperr.Internal("create class", err)
	}
	return c, nil
}

// CreateTopic registers a topic under a class.
func (r *Repository) CreateTopic(ctx context.Context, classID, name string) (Topic, error) {
	if name == "" {
		return Topic{}, apperr.Validation("topic name required")
	}
	t := Topic{ID: uuid.NewString(), ClassID: classID, Name: name}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO topics (id, class_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, t.ID, t.ClassID, t.Name)
	if err := row.Scan(&t.CreatedAt); err != nil {
		if store.IsForeignKeyViolation(err) {
			return Topic{}, apperr.NotFound("class not found")
		}
		return Topic{}, apperr.Internal("create topic", err)
	}
	return t, nil
}

// CreateStudent registers a student, optionally linked to a user account.
func (r *Repository) CreateStudent(ctx context.Context, name string, userID *string) (Student, error) {
	if name == "" {
		return Student{}, apperr.Validation("student name required")
	}
	s := Student{ID: uuid.NewString(), Name: name, UserID: userID}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, name, user_id)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, s.ID, s.Name, s.UserID)
	if err := row.Scan(&s.CreatedAt); err != nil {
		if store.IsForeignKeyViolation(err) {
			return Student{}, apperr.NotFound("linked user not found")
		}
		return Student{}, apperr.Internal("create student", err)
	}
	return s, nil
}

// Enroll adds a student to a class.
func (r *Repository) Enroll(ctx context.Context, studentID, classID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO enrollments (student_id, class_id)
		VALUES ($1, $2)
	`, studentID, classID)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return apperr.Conflict("already enrolled")
		}
		if store.IsForeignKeyViolation(err) {
			return apperr.NotFound("student or class not found")
		}
		return apperr.Internal("enroll", err)
	}
	return nil
}

// ClassExists reports whether the class id is registered.
func (r *Repository) ClassExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM classes WHERE id = $1`, id)
}

// StudentExists reports whether the student id is registered.
func (r *Repository) StudentExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM students WHERE id = $1`, id)
}

// TopicClass returns the class a topic belongs to.
func (r *Repository) TopicClass(ctx context.Context, topicID string) (string, error) {
	var classID string
	err := r.db.QueryRowContext(ctx, `SELECT class_id FROM topics WHERE id = $1`, topicID).Scan(&classID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("topic not found")
	}
	if err != nil {
		return "", apperr.Internal("topic lookup", err)
	}
	return classID, nil
}

// Enrolled reports whether the student is enrolled in the class.
func (r *Repository) Enrolled(ctx context.Context, studentID, classID string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2`, studentID, classID)
}

// ClassOwner returns the teacher user id owning the class.
func (r *Repository) ClassOwner(ctx context.Context, classID string) (string, error) {
	var teacherID string
	err := r.db.QueryRowContext(ctx, `SELECT teacher_id FROM classes WHERE id = $1`, classID).Scan(&teacherID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("class not found")
	}
	if err != nil {
		return "", apperr.Internal("class owner lookup", err)
	}
	return teacherID, nil
}

// ClassesOwnedBy lists the class ids owned by a teacher.
func (r *Repository) ClassesOwnedBy(ctx context.Context, teacherID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM classes WHERE teacher_id = $1 ORDER BY created_at`, teacherID)
	if err != nil {
		return nil, apperr.Internal("owned classes lookup", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Internal("owned classes scan", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StudentForUser returns the student record linked to a user account.
func (r *Repository) StudentForUser(ctx context.Context, userID string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM students WHERE user_id = $1`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("no student record for user")
	}
	if err != nil {
		return "", apperr.Internal("student lookup", err)
	}
	return id, nil
}

func (r *Repository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Internal("existence check", err)
	}
	return true, nil
}
