package goEnroll

import (
	"net/mail"
	"strings"
	"time"
)

var weekdays = map[string]string{
	"monday":    "Monday",
	"tuesday":   "Tuesday",
	"wednesday": "Wednesday",
	"thursday":  "Thursday",
	"friday":    "Friday",
	"saturday":  "Saturday",
	"sunday":    "Sunday",
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return validationError("email", "is required")
	}
	if len(email) > 255 {
		return validationError("email", "is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return validationError("email", "is not a valid address")
	}
	return nil
}

func requireText(field, value string, maxLen int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", validationError(field, "is required")
	}
	if maxLen > 0 && len(value) > maxLen {
		return "", validationError(field, "is too long")
	}
	return value, nil
}

func validateDate(field, value string) error {
	if value == "" {
		return validationError(field, "is required")
	}
	if _, err := time.Parse(time.DateOnly, value); err != nil {
		return validationError(field, "must be a date in YYYY-MM-DD format")
	}
	return nil
}

// normalizeDay accepts any casing of an English weekday name and returns it
// capitalized.
func normalizeDay(value string) (string, error) {
	day, ok := weekdays[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return "", validationError("day_of_week", "must be a weekday name from Monday to Sunday")
	}
	return day, nil
}

// normalizeClock accepts H:MM or HH:MM in 24h time and returns HH:MM.
func normalizeClock(value string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return "", validationError("time", "must be HH:MM in 24-hour time")
	}
	return t.Format("15:04"), nil
}

func validateSpots(spots *int) error {
	if spots == nil {
		return validationError("available_spots", "is required")
	}
	if *spots < 0 {
		return validationError("available_spots", "must be a non-negative integer")
	}
	return nil
}

func (r RegisterRequest) normalized() (RegisterRequest, error) {
	var err error
	out := r
	if out.FirstName, err = requireText("first_name", r.FirstName, 50); err != nil {
		return out, err
	}
	if out.LastName, err = requireText("last_name", r.LastName, 50); err != nil {
		return out, err
	}
	out.Email = normalizeEmail(r.Email)
	if err := validateEmail(out.Email); err != nil {
		return out, err
	}
	if r.Password == "" {
		return out, validationError("password", "is required")
	}
	out.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	if err := validateDate("date_of_birth", out.DateOfBirth); err != nil {
		return out, err
	}
	if out.PhoneNumber, err = requireText("phone_number", r.PhoneNumber, 32); err != nil {
		return out, err
	}
	return out, nil
}

func (in CourseInput) normalized() (CourseInput, error) {
	var err error
	out := in
	if out.Name, err = requireText("name", in.Name, 100); err != nil {
		return out, err
	}
	if out.Description, err = requireText("description", in.Description, 0); err != nil {
		return out, err
	}
	return out, nil
}

func (p CoursePatch) normalized() (CoursePatch, error) {
	out := p
	if p.Name != nil {
		name, err := requireText("name", *p.Name, 100)
		if err != nil {
			return out, err
		}
		out.Name = &name
	}
	if p.Description != nil {
		desc, err := requireText("description", *p.Description, 0)
		if err != nil {
			return out, err
		}
		out.Description = &desc
	}
	return out, nil
}

func (in ClassSessionInput) normalized() (ClassSessionInput, error) {
	var err error
	out := in
	if out.DayOfWeek, err = normalizeDay(in.DayOfWeek); err != nil {
		return out, err
	}
	if out.Time, err = normalizeClock(in.Time); err != nil {
		return out, err
	}
	if out.Location, err = requireText("location", in.Location, 100); err != nil {
		return out, err
	}
	if out.Trainer, err = requireText("trainer", in.Trainer, 100); err != nil {
		return out, err
	}
	if err := validateSpots(in.AvailableSpots); err != nil {
		return out, err
	}
	return out, nil
}

func (p ClassSessionPatch) normalized() (ClassSessionPatch, error) {
	out := p
	if p.DayOfWeek != nil {
		day, err := normalizeDay(*p.DayOfWeek)
		if err != nil {
			return out, err
		}
		out.DayOfWeek = &day
	}
	if p.Time != nil {
		clock, err := normalizeClock(*p.Time)
		if err != nil {
			return out, err
		}
		out.Time = &clock
	}
	if p.Location != nil {
		loc, err := requireText("location", *p.Location, 100)
		if err != nil {
			return out, err
		}
		out.Location = &loc
	}
	if p.Trainer != nil {
		trainer, err := requireText("trainer", *p.Trainer, 100)
		if err != nil {
			return out, err
		}
		out.Trainer = &trainer
	}
	if p.AvailableSpots != nil {
		if err := validateSpots(p.AvailableSpots); err != nil {
			return out, err
		}
	}
	return out, nil
}
