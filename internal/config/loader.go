package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// FatalConfigError marks a startup configuration failure spec §7 requires
// terminate the process with a nonzero exit rather than being retried.
type FatalConfigError struct {
	msg string
}

func (e *FatalConfigError) Error() string { return e.msg }

func errFatalConfig(msg string) error { return &FatalConfigError{msg: msg} }

// envKeys lists every environment variable InitViper binds, so
// viper.AutomaticEnv + viper.Unmarshal populate Settings without a config
// file. All are case-insensitive per spec §6.
var envKeys = []string{
	"bansho_listen_host", "bansho_listen_port",
	"dashboard_host", "dashboard_port",
	"upstream_transport", "upstream_cmd", "upstream_url",
	"postgres_dsn", "redis_url",
	"bansho_policy_path",
	"bansho_log_level", "bansho_log_format",
	"metrics_addr",
	"otel_traces_exporter",
}

// InitViper binds every known env var so LoadSettings can unmarshal them
// directly into Settings, with no config file required.
func InitViper() {
	viper.AutomaticEnv()
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}
}

// LoadSettings resolves Settings from the environment, applies defaults,
// and validates the result. A non-nil error is always fatal (spec §7).
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	s.SetDefaults()

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(&s); err != nil {
		return nil, fmt.Errorf("config: %w", formatValidationErrors(err))
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, fmt.Sprintf("%s failed validation: %s", e.Namespace(), e.Tag()))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}
