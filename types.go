package goEnroll

import (
	"time"

	"github.com/MrEthical07/goEnroll/storage"
)

// Role is the authorization tag carried by every user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the authenticated caller, as established by
// [Engine.Authenticate]. It is passed explicitly to every privileged method.
type Identity struct {
	UserID    uint
	Role      Role
	SessionID string
}

// User is the public view of an account. The password hash never leaves the
// engine.
type User struct {
	ID          uint      `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	DateOfBirth string    `json:"date_of_birth,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Course struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CourseSummary is a course with values derived from its class sessions.
type CourseSummary struct {
	Course
	ClassCount     int64 `json:"class_count"`
	AvailableSpots int64 `json:"available_spots"`
}

// ClassSeats is the seat state of one class session, as exported by the
// metrics endpoints.
type ClassSeats struct {
	ClassID        uint
	CourseID       uint
	AvailableSpots int64
	TotalMaxSpots  int64
}

type ClassSession struct {
	ID             uint      `json:"id"`
	CourseID       uint      `json:"course_id"`
	DayOfWeek      string    `json:"day_of_week"`
	Time           string    `json:"time"`
	Location       string    `json:"location"`
	Trainer        string    `json:"trainer"`
	AvailableSpots int       `json:"available_spots"`
	TotalMaxSpots  int       `json:"total_max_spots"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Enrollment is a class session the caller holds a seat in.
type Enrollment struct {
	ClassSession
	CourseName string    `json:"course_name"`
	JoinedAt   time.Time `json:"joined_at"`
}

// TokenPair is returned by Register, Login and Refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RegisterRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DateOfBirth string `json:"date_of_birth"`
	PhoneNumber string `json:"phone_number"`
}

type CourseInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CoursePatch changes only the non-nil fields.
type CoursePatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ClassSessionInput creates a class session. AvailableSpots is required and
// also becomes the session's fixed TotalMaxSpots.
type ClassSessionInput struct {
	DayOfWeek      string `json:"day_of_week"`
	Time           string `json:"time"`
	Location       string `json:"location"`
	Trainer        string `json:"trainer"`
	AvailableSpots *int   `json:"available_spots"`
}

// ClassSessionPatch changes only the non-nil fields. AvailableSpots overrides
// the live counter and must stay within [0, TotalMaxSpots].
type ClassSessionPatch struct {
	DayOfWeek      *string `json:"day_of_week,omitempty"`
	Time           *string `json:"time,omitempty"`
	Location       *string `json:"location,omitempty"`
	Trainer        *string `json:"trainer,omitempty"`
	AvailableSpots *int    `json:"available_spots,omitempty"`
}

func userFromModel(u storage.User) User {
	return User{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		DateOfBirth: u.DateOfBirth,
		PhoneNumber: u.PhoneNumber,
		Role:        Role(u.Role),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func courseFromModel(c storage.Course) Course {
	return Course{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func classFromModel(cs storage.ClassSession) ClassSession {
	return ClassSession{
		ID:             cs.ID,
		CourseID:       cs.CourseID,
		DayOfWeek:      cs.DayOfWeek,
		Time:           cs.Time,
		Location:       cs.Location,
		Trainer:        cs.Trainer,
		AvailableSpots: cs.AvailableSpots,
		TotalMaxSpots:  cs.TotalMaxSpots,
		CreatedAt:      cs.CreatedAt,
		UpdatedAt:      cs.UpdatedAt,
	}
}
