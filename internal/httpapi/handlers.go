package httpapi

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/apperr"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/attendance"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/auth"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/photostore"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/queue"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/registry"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/report"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/user"
)

const dateLayout = "2006-01-02"

// Handler owns the HTTP surface over the core services.
type Handler struct {
	Users      *user.Service
	Attendance *attendance.Service
	Reports    *report.Aggregator
	Registry   *registry.Repository
	Guard      *auth.Guard
	Queue      queue.Queue
	Photos     *photostore.Client
}

// Login exchanges email and password for a session token.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "email and password required")
		return
	}
	token, exp, u, err := h.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": exp.Unix(),
		"user":       gin.H{"id": u.ID, "email": u.Email, "role": u.Role},
	})
}

// CreateUser provisions an account. Admin capability enforced by the
// route middleware.
func (h *Handler) CreateUser(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role" binding:"required,oneof=admin teacher student"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "email, password and role (admin|teacher|student) required")
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		failValidation(c, err.Error())
		return
	}
	u, err := h.Users.Register(c.Request.Context(), req.Email, req.Password, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// CreateClass registers a class under a teacher.
func (h *Handler) CreateClass(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required"`
		TeacherID string `json:"teacher_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "name and teacher_id required")
		return
	}
	class, err := h.Registry.CreateClass(c.Request.Context(), req.Name, req.TeacherID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, class)
}

// CreateTopic registers a topic under a class.
func (h *Handler) CreateTopic(c *gin.Context) {
	var req struct {
		ClassID string `json:"class_id" binding:"required"`
		Name    string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "class_id and name required")
		return
	}
	topic, err := h.Registry.CreateTopic(c.Request.Context(), req.ClassID, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, topic)
}

// CreateStudent registers a student, optionally linked to a login.
func (h *Handler) CreateStudent(c *gin.Context) {
	var req struct {
		Name   string  `json:"name" binding:"required"`
		UserID *string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "name required")
		return
	}
	student, err := h.Registry.CreateStudent(c.Request.Context(), req.Name, req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, student)
}

// CreateEnrollment adds a student to a class.
func (h *Handler) CreateEnrollment(c *gin.Context) {
	var req struct {
		StudentID string `json:"student_id" binding:"required"`
		ClassID   string `json:"class_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "student_id and class_id required")
		return
	}
	if err := h.Registry.Enroll(c.Request.Context(), req.StudentID, req.ClassID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"student_id": req.StudentID, "class_id": req.ClassID})
}

// RecordAttendance writes a new attendance mark and queues the
// notification event.
func (h *Handler) RecordAttendance(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	var req struct {
		StudentID   string  `json:"student_id" binding:"required"`
		ClassID     string  `json:"class_id" binding:"required"`
		TopicID     *string `json:"topic_id"`
		Photo       *string `json:"photo"`
		Status      string  `json:"status" binding:"required,oneof=present absent late"`
		SessionDate string  `json:"session_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "student_id, class_id, status (present|absent|late) and session_date required")
		return
	}
	sessionDate, err := time.Parse(dateLayout, req.SessionDate)
	if err != nil {
		failValidation(c, "session_date must be YYYY-MM-DD")
		return
	}

	rec, err := h.Attendance.Record(c.Request.Context(), claims, attendance.Entry{
		StudentID:   req.StudentID,
		ClassID:     req.ClassID,
		TopicID:     req.TopicID,
		Photo:       req.Photo,
		Status:      attendance.Status(req.Status),
		SessionDate: sessionDate,
	})
	if err != nil {
		fail(c, err)
		return
	}

	if h.Queue != nil {
		if err := h.Queue.Publish(c.Request.Context(), queue.Message{Type: "attendance", RecordID: rec.ID}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
	}

	c.JSON(http.StatusCreated, rec)
}

// ListAttendance returns records matching the query filters, scoped to
// the caller.
func (h *Handler) ListAttendance(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	f, err := filterFromQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	records, err := h.Attendance.List(c.Request.Context(), claims, f)
	if err != nil {
		fail(c, err)
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// CorrectAttendance replaces a record's status, topic and photo.
func (h *Handler) CorrectAttendance(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	var req struct {
		Status  string  `json:"status" binding:"required,oneof=present absent late"`
		TopicID *string `json:"topic_id"`
		Photo   *string `json:"photo"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "status (present|absent|late) required")
		return
	}
	rec, err := h.Attendance.Correct(c.Request.Context(), claims, c.Param("id"), attendance.Correction{
		Status:  attendance.Status(req.Status),
		TopicID: req.TopicID,
		Photo:   req.Photo,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteAttendance removes a record. Admin capability enforced by the
// route middleware; the service checks again.
func (h *Handler) DeleteAttendance(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	if err := h.Attendance.Delete(c.Request.Context(), claims, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Summarize returns the grouped attendance report.
func (h *Handler) Summarize(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	f, err := filterFromQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	groupBy := report.GroupBy(c.DefaultQuery("group_by", string(report.GroupByClass)))
	rows, err := h.Reports.Summarize(c.Request.Context(), claims, f, groupBy)
	if err != nil {
		fail(c, err)
		return
	}
	if rows == nil {
		rows = []report.Row{}
	}
	c.JSON(http.StatusOK, gin.H{"group_by": groupBy, "rows": rows})
}

// UploadPhoto stores an image with the photo collaborator and returns
// the opaque reference to attach to attendance records.
func (h *Handler) UploadPhoto(c *gin.Context) {
	if h.Photos == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": gin.H{"code": "internal", "message": "photo storage not configured"}})
		return
	}

	var ref *photostore.Reference
	var err error
	switch {
	case strings.Contains(c.ContentType(), "multipart/form-data"):
		file, header, ferr := c.Request.FormFile("file")
		if ferr != nil {
			failValidation(c, "file field required")
			return
		}
		defer file.Close()
		data, ferr := io.ReadAll(file)
		if ferr != nil {
			fail(c, apperr.Internal("read file", ferr))
			return
		}
		ref, err = h.Photos.UploadBytes(data, header.Filename)
	default:
		var body struct {
			Data string `json:"data" binding:"required"`
		}
		if berr := c.ShouldBindJSON(&body); berr != nil {
			failValidation(c, `provide {"data": "<base64 data URL>"}`)
			return
		}
		ref, err = h.Photos.UploadBase64(body.Data)
	}

	if err != nil {
		log.Printf("photo upload failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{"code": "internal", "message": "photo upload failed"}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"photo": ref.SecureURL, "public_id": ref.PublicID, "bytes": ref.Bytes})
}

// filterFromQuery parses the shared list/report filter parameters.
func filterFromQuery(c *gin.Context) (attendance.Filter, error) {
	f := attendance.Filter{
		ClassID:   c.Query("class_id"),
		StudentID: c.Query("student_id"),
		TopicID:   c.Query("topic_id"),
	}
	if v := c.Query("status"); v != "" {
		status := attendance.Status(v)
		if !status.Valid() {
			return attendance.Filter{}, apperr.Validation("status must be present, absent or late")
		}
		f.Status = status
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return attendance.Filter{}, apperr.Validation("from must be YYYY-MM-DD")
		}
		f.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return attendance.Filter{}, apperr.Validation("to must be YYYY-MM-DD")
		}
		f.To = t
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Offset = parsed
		}
	}
	return f, nil
}
