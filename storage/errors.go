package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the kind shared by every missing-row error.
	ErrNotFound = errors.New("storage: not found")
	// ErrUserNotFound is returned when a user id or email does not resolve.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)
	// ErrCourseNotFound is returned when a course id does not resolve.
	ErrCourseNotFound = fmt.Errorf("%w: course", ErrNotFound)
	// ErrClassNotFound is returned when a class session id does not resolve,
	// or resolves under a different course.
	ErrClassNotFound = fmt.Errorf("%w: class session", ErrNotFound)

	// ErrDuplicateEmail is returned when a user email is already registered.
	ErrDuplicateEmail = errors.New("storage: email already registered")
	// ErrDuplicateCourseName is returned when a course name is already taken.
	ErrDuplicateCourseName = errors.New("storage: course name already exists")

	// ErrAlreadyMember is returned when joining a class the user already holds a seat in.
	ErrAlreadyMember = errors.New("storage: already a member")
	// ErrNotMember is returned when leaving a class the user holds no seat in.
	ErrNotMember = errors.New("storage: not a member")
	// ErrNoCapacity is returned when a class session has no seats left.
	ErrNoCapacity = errors.New("storage: no capacity")
	// ErrSpotsOutOfRange is returned when an override would put available
	// spots outside [0, total_max_spots].
	ErrSpotsOutOfRange = errors.New("storage: available spots out of range")
)
