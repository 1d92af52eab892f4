package goEnroll

import (
	"errors"
	"testing"
)

func TestNormalizeDay(t *testing.T) {
	for in, want := range map[string]string{
		"monday":     "Monday",
		"SUNDAY":     "Sunday",
		" wednesday": "Wednesday",
	} {
		got, err := normalizeDay(in)
		if err != nil || got != want {
			t.Fatalf("normalizeDay(%q) = %q, %v", in, got, err)
		}
	}
	for _, in := range []string{"", "mon", "Someday"} {
		if _, err := normalizeDay(in); !errors.Is(err, ErrValidation) {
			t.Fatalf("normalizeDay(%q): expected ErrValidation, got %v", in, err)
		}
	}
}

func TestNormalizeClock(t *testing.T) {
	for in, want := range map[string]string{
		"18:00": "18:00",
		"7:05":  "07:05",
		"00:00": "00:00",
		"23:59": "23:59",
	} {
		got, err := normalizeClock(in)
		if err != nil || got != want {
			t.Fatalf("normalizeClock(%q) = %q, %v", in, got, err)
		}
	}
	for _, in := range []string{"", "24:00", "12:60", "noon", "18:00:00"} {
		if _, err := normalizeClock(in); !errors.Is(err, ErrValidation) {
			t.Fatalf("normalizeClock(%q): expected ErrValidation, got %v", in, err)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"a@x.com", "first.last@sub.example.org"} {
		if err := validateEmail(ok); err != nil {
			t.Fatalf("validateEmail(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "a", "a@", "@x.com", "A <a@x.com>", "a@localhost"} {
		if err := validateEmail(bad); !errors.Is(err, ErrValidation) {
			t.Fatalf("validateEmail(%q): expected ErrValidation, got %v", bad, err)
		}
	}
}

func TestValidateDate(t *testing.T) {
	if err := validateDate("date_of_birth", "1990-01-31"); err != nil {
		t.Fatalf("valid date rejected: %v", err)
	}
	for _, bad := range []string{"", "1990-02-30", "31.01.1990"} {
		if err := validateDate("date_of_birth", bad); !errors.Is(err, ErrValidation) {
			t.Fatalf("validateDate(%q): expected ErrValidation, got %v", bad, err)
		}
	}
}

func TestClassSessionPatchOnlyChecksPresentFields(t *testing.T) {
	patch, err := ClassSessionPatch{DayOfWeek: strPtr("friday")}.normalized()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if *patch.DayOfWeek != "Friday" || patch.Time != nil || patch.AvailableSpots != nil {
		t.Fatalf("unexpected patch %+v", patch)
	}
	if _, err := (ClassSessionPatch{Location: strPtr("  ")}).normalized(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected blank location to be rejected, got %v", err)
	}
}

func TestErrorKinds(t *testing.T) {
	kinds := []error{ErrValidation, ErrNotFound, ErrConflict, ErrNoCapacity, ErrUnauthorized, ErrForbidden, ErrRateLimited, ErrPersistence}
	specific := map[error]error{
		ErrUserNotFound:    ErrNotFound,
		ErrClassNotFound:   ErrNotFound,
		ErrDuplicateEmail:  ErrConflict,
		ErrAlreadyEnrolled: ErrConflict,
		ErrNotEnrolled:     ErrConflict,
		ErrTokenExpired:    ErrUnauthorized,
		ErrRefreshReuse:    ErrUnauthorized,
		ErrAdminRequired:   ErrForbidden,
		ErrNoCapacity:      ErrNoCapacity,
	}
	for err, kind := range specific {
		matched := 0
		for _, k := range kinds {
			if errors.Is(err, k) {
				matched++
			}
		}
		if !errors.Is(err, kind) || matched != 1 {
			t.Fatalf("%v should match exactly %v, matched %d kinds", err, kind, matched)
		}
	}
}
