package handler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/gymdesk/internal/domain"
	"github.com/mansoorceksport/gymdesk/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewValidationError("months", "must be at least 1"), fiber.StatusBadRequest},
		{"invalid id", domain.ErrInvalidID, fiber.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("exercise x: %w", domain.ErrNotFound), fiber.StatusNotFound},
		{"persist", domain.PersistError("create member", errors.New("timeout")), fiber.StatusBadGateway},
		{"load", domain.LoadError("list members", errors.New("timeout")), fiber.StatusServiceUnavailable},
		{"export disabled", service.ErrExportUnavailable, fiber.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
