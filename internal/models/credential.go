package models

import "time"

// CalendarCredential is the stored OAuth token triple for one user.
// At most one row exists per user (upsert semantics); a refresh always
// rewrites the full access/refresh/expiry triple in a single statement.
type CalendarCredential struct {
	UserID       string    `json:"userId"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expiresAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Expired reports whether the access token is past its recorded expiry.
func (c *CalendarCredential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// CalendarEvent is the created-event summary returned to clients
type CalendarEvent struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	HTMLLink string `json:"htmlLink"`
}

// AddEventRequest is the request body for POST /api/calendar/addevent
type AddEventRequest struct {
	Message string `json:"message"`
}

// AddEventResponse is the success response for POST /api/calendar/addevent
type AddEventResponse struct {
	Success bool           `json:"success"`
	Event   *CalendarEvent `json:"event"`
}
