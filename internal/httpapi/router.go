package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/auth"
)

// Register mounts the API routes. Authentication and the capability
// gate run as middleware; ownership scoping happens in the services.
func (h *Handler) Register(r *gin.Engine, signingKey, issuer string) {
	r.POST("/v1/sessions", h.Login)

	v1 := r.Group("/v1", auth.RequireAuth(signingKey, issuer))

	v1.POST("/users", auth.RequireCapability(h.Guard, auth.CapManageUsers), h.CreateUser)
	v1.POST("/classes", auth.RequireCapability(h.Guard, auth.CapManageRegistry), h.CreateClass)
	v1.POST("/topics", auth.RequireCapability(h.Guard, auth.CapManageRegistry), h.CreateTopic)
	v1.POST("/students", auth.RequireCapability(h.Guard, auth.CapManageRegistry), h.CreateStudent)
	v1.POST("/enrollments", auth.RequireCapability(h.Guard, auth.CapManageRegistry), h.CreateEnrollment)

	v1.POST("/attendance", auth.RequireCapability(h.Guard, auth.CapCreateAttendance), h.RecordAttendance)
	v1.GET("/attendance", auth.RequireCapability(h.Guard, auth.CapReadAttendance), h.ListAttendance)
	v1.PUT("/attendance/:id", auth.RequireCapability(h.Guard, auth.CapCorrectAttendance), h.CorrectAttendance)
	v1.DELETE("/attendance/:id", auth.RequireCapability(h.Guard, auth.CapDeleteAttendance), h.DeleteAttendance)

	v1.GET("/reports", auth.RequireCapability(h.Guard, auth.CapReadReports), h.Summarize)
	v1.POST("/uploads", auth.RequireCapability(h.Guard, auth.CapUploadPhotos), h.UploadPhoto)
}
