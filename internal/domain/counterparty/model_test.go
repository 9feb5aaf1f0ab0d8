package counterparty

import (
	"context"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestCounterparty_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		cp := NewCounterparty("EMP-001", "Somchai", TypeEmployee)
		cp.Email = strPtr("somchai@example.com")
		if err := cp.Validate(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("missing name", func(t *testing.T) {
		cp := NewCounterparty("EMP-002", "", TypeEmployee)
		if err := cp.Validate(ctx); err == nil {
			t.Error("expected error for empty name")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		cp := NewCounterparty("X-001", "Acme", CounterpartyType("partner"))
		if err := cp.Validate(ctx); err == nil {
			t.Error("expected error for unknown type")
		}
	})

	t.Run("bad email", func(t *testing.T) {
		cp := NewCounterparty("SUP-001", "Acme", TypeSupplier)
		cp.Email = strPtr("not-an-email")
		if err := cp.Validate(ctx); err == nil {
			t.Error("expected error for malformed email")
		}
	})

	t.Run("empty email allowed", func(t *testing.T) {
		cp := NewCounterparty("SUP-002", "Acme", TypeSupplier)
		cp.Email = strPtr("")
		if err := cp.Validate(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestCounterparty_IsEmployee(t *testing.T) {
	if !NewCounterparty("E-1", "A", TypeEmployee).IsEmployee() {
		t.Error("expected employee")
	}
	if NewCounterparty("S-1", "B", TypeSupplier).IsEmployee() {
		t.Error("supplier is not an employee")
	}
}
