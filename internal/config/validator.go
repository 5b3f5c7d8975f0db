package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/brandpulse-ai/brandpulse/internal/types"
	"github.com/brandpulse-ai/brandpulse/internal/workflow"
)

// Validator validates configuration values.
type Validator interface {
	Validate(cfg *Config) error
}

// validatorImpl implements Validator using go-playground/validator.
type validatorImpl struct {
	validate *validator.Validate
}

// NewValidator creates a Validator instance.
func NewValidator() Validator {
	return &validatorImpl{validate: validator.New()}
}

// Validate runs struct tag validation plus the cross-field rules the
// tags cannot express.
func (v *validatorImpl) Validate(cfg *Config) error {
	if cfg == nil {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "configuration is nil")
	}

	if err := v.validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return types.WrapError(types.CONFIG_VALIDATION_FAILED, "validation error", err)
		}
		messages := make([]string, 0, len(validationErrs))
		for _, e := range validationErrs {
			messages = append(messages, formatValidationError(e))
		}
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(messages, "\n  - ")))
	}

	if cfg.Batch.Min > cfg.Batch.Max {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("batch.min (%d) cannot exceed batch.max (%d)", cfg.Batch.Min, cfg.Batch.Max))
	}

	if cfg.Queue.MaxPerMinute < cfg.Queue.MaxPerSecond {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("queue.max_per_minute (%d) cannot be below queue.max_per_second (%d)",
				cfg.Queue.MaxPerMinute, cfg.Queue.MaxPerSecond))
	}

	for _, c := range cfg.Connectors {
		if c.Kind == "web" && c.Endpoint == "" {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("connector %q: web connectors need an endpoint", c.Name))
		}
	}

	// Monitor durations are optional but must parse when present.
	for field, value := range map[string]string{
		"monitor.interval": cfg.Monitor.Interval,
		"monitor.total":    cfg.Monitor.Total,
	} {
		if value == "" {
			continue
		}
		if _, err := workflow.ParseCompactDuration(value); err != nil {
			return types.WrapError(types.CONFIG_VALIDATION_FAILED, field, err)
		}
	}

	return nil
}

func formatValidationError(e validator.FieldError) string {
	field := strings.ToLower(e.Namespace())
	field = strings.TrimPrefix(field, "config.")

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", field, e.Param(), e.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s (got: %v)", field, e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", field, e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed %s validation (got: %v)", field, e.Tag(), e.Value())
	}
}
