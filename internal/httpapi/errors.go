package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/apperr"
)

var statusByCode = map[apperr.Code]int{
	apperr.CodeUnauthorized: http.StatusUnauthorized,
	apperr.CodeForbidden:    http.StatusForbidden,
	apperr.CodeNotFound:     http.StatusNotFound,
	apperr.CodeConflict:     http.StatusConflict,
	apperr.CodeValidation:   http.StatusBadRequest,
	apperr.CodeInternal:     http.StatusInternalServerError,
}

// fail writes the stable error shape clients branch on:
// {"error": {"code": "...", "message": "..."}}.
func fail(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": gin.H{"code": string(code), "message": apperr.MessageOf(err)}})
}

// failValidation wraps a binding error into the same shape.
func failValidation(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": string(apperr.CodeValidation), "message": msg}})
}
