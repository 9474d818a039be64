package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleTeacher can download reports.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin can download reports and manage users.
	UserRoleAdmin UserRole = "admin"
)

// User represents an API user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// APIToken is a bearer token issued to a user.
type APIToken struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// AssessmentSummary is a listing entry for stored assessments.
type AssessmentSummary struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	CollegeName     string    `json:"college_name"`
	CreatedAt       time.Time `json:"created_at"`
	SubmissionCount int       `json:"submission_count"`
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}
