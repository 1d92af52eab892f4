package storage

import "time"

// User is a registered account.
type User struct {
	ID          uint   `gorm:"primaryKey"`
	FirstName   string `gorm:"size:50;not null"`
	LastName    string `gorm:"size:50"`
	Email       string `gorm:"size:255;not null;uniqueIndex"`
	Password    string `gorm:"size:256;not null"`
	DateOfBirth string `gorm:"size:10"`
	PhoneNumber string `gorm:"size:32"`
	Role        string `gorm:"size:10;not null;default:user"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (User) TableName() string { return "users" }

// Course owns a set of class sessions. Capacity is tracked per session only.
type Course struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:100;not null;uniqueIndex"`
	Description string `gorm:"type:text;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Classes []ClassSession `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
}

func (Course) TableName() string { return "courses" }

// ClassSession is one scheduled occurrence of a course with its own seats.
// TotalMaxSpots is fixed when the row is created.
type ClassSession struct {
	ID             uint   `gorm:"primaryKey"`
	CourseID       uint   `gorm:"not null;index"`
	DayOfWeek      string `gorm:"size:9;not null"`
	Time           string `gorm:"size:5;not null"`
	Location       string `gorm:"size:100;not null"`
	Trainer        string `gorm:"size:100;not null"`
	AvailableSpots int    `gorm:"not null"`
	TotalMaxSpots  int    `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ClassSession) TableName() string { return "class_sessions" }

// Membership is the join row between a user and a class session. The
// composite primary key makes a second seat for the same pair impossible.
type Membership struct {
	UserID         uint `gorm:"primaryKey;autoIncrement:false"`
	ClassSessionID uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt      time.Time

	User         User         `gorm:"constraint:OnDelete:CASCADE"`
	ClassSession ClassSession `gorm:"constraint:OnDelete:CASCADE"`
}

func (Membership) TableName() string { return "class_memberships" }

// SeatCount is the seat state of one class session.
type SeatCount struct {
	ClassID        uint
	CourseID       uint
	AvailableSpots int64
	TotalMaxSpots  int64
}

// CourseSummary is a course row with values derived from its sessions.
type CourseSummary struct {
	ID             uint
	Name           string
	Description    string
	ClassCount     int64
	AvailableSpots int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Enrollment is a class session the user holds a seat in, with the parent
// course name attached.
type Enrollment struct {
	ClassSession ClassSession `gorm:"embedded"`
	CourseName   string
	JoinedAt     time.Time
}

// CourseUpdate carries the course fields an admin may change. Nil fields are
// left untouched.
type CourseUpdate struct {
	Name        *string
	Description *string
}

// ClassSessionUpdate carries the session fields an admin may change. Nil
// fields are left untouched. AvailableSpots is an administrative override.
type ClassSessionUpdate struct {
	DayOfWeek      *string
	Time           *string
	Location       *string
	Trainer        *string
	AvailableSpots *int
}

// CascadeResult reports what a cascading delete removed.
type CascadeResult struct {
	Classes     int64
	Memberships int64
}
