package migrate

import (
	"errors"
	"strings"
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	err := Run("", "up")
	if err == nil {
		t.Fatal("Run with empty DSN should return error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error = %q, should mention DATABASE_URL", err.Error())
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "sideways", "UP", "Down"} {
		if err := Run("postgres://localhost/test", direction); err == nil {
			t.Errorf("Run with direction %q should return error", direction)
		}
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	testCases := []struct {
		name string
		dsn  string
	}{
		{"not a URL", "invalid-dsn"},
		{"missing scheme", "://localhost/test"},
		{"unreachable", "postgres://invalid-host-that-does-not-exist:5432/test"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Run(tc.dsn, "up")
			if err == nil {
				t.Errorf("Run(%q) should fail", tc.dsn)
			}
			// Direction was valid, so any error must be a source or DB error,
			// never the no-op sentinel.
			if errors.Is(err, ErrNoChange) {
				t.Error("Run should swallow ErrNoChange, not return it")
			}
		})
	}
}
