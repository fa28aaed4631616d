package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/attendance"
)

// Event is the payload delivered to the notification webhook when an
// attendance record is written.
type Event struct {
	Kind        string  `json:"kind"`
	RecordID    string  `json:"record_id"`
	StudentID   string  `json:"student_id"`
	ClassID     string  `json:"class_id"`
	TopicID     *string `json:"topic_id,omitempty"`
	Status      string  `json:"status"`
	SessionDate string  `json:"session_date"`
}

// Client delivers attendance events to an external notification
// service (guardian messaging, SIS sync). Skip short-circuits every
// call for dev environments without the service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// AttendanceRecorded posts a recorded-attendance event.
func (c *Client) AttendanceRecorded(ctx context.Context, rec attendance.Record) error {
	return c.post(ctx, Event{
		Kind:        "attendance.recorded",
		RecordID:    rec.ID,
		StudentID:   rec.StudentID,
		ClassID:     rec.ClassID,
		TopicID:     rec.TopicID,
		Status:      string(rec.Status),
		SessionDate: rec.SessionDate.Format("2006-01-02"),
	})
}

func (c *Client) post(ctx context.Context, evt Event) error {
	if c.Skip {
		return nil
	}

	body, _ := json.Marshal(evt)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("notify service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notify service error %s: %s", resp.Status, string(bodyBytes))
	}
	return nil
}

// Health checks if the notification service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("notify service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify service unhealthy: %s", resp.Status)
	}
	return nil
}
