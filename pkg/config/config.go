package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/travigo/arrivalsign/pkg/util"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL        = "https://api.511.org/transit"
	DefaultFormat         = "json"
	DefaultMaxPredictions = 3

	DefaultMinRefresh   = 10 * time.Second
	DefaultMaxRefresh   = 60 * time.Second
	DefaultErrorRefresh = 30 * time.Second

	DefaultDisplay   = "console"
	DefaultSignSlots = 4
	DefaultSignWidth = 12

	DefaultRunDelay   = 5 * time.Second
	DefaultResetDelay = 30 * time.Second
)

// Config is read once at startup and treated as immutable afterwards.
type Config struct {
	APIKey     string   `yaml:"api_key" validate:"required"`
	BaseURL    string   `yaml:"base_url" validate:"required,url"`
	Format     string   `yaml:"format" validate:"oneof=json xml"`
	Agency     string   `yaml:"agency" validate:"required"`
	StopCode   string   `yaml:"stop_code" validate:"required"`
	RouteCodes []string `yaml:"route_codes" validate:"required,min=1,dive,required"`
	Direction  string   `yaml:"direction" validate:"required"`

	MaxPredictions int `yaml:"max_predictions" validate:"gt=0"`

	MinRefresh   time.Duration `yaml:"min_refresh" validate:"gt=0"`
	MaxRefresh   time.Duration `yaml:"max_refresh" validate:"gtefield=MinRefresh"`
	ErrorRefresh time.Duration `yaml:"error_refresh" validate:"gt=0"`

	Display   string `yaml:"display" validate:"oneof=console sign queue"`
	SignSlots int    `yaml:"sign_slots" validate:"gt=0"`
	SignWidth int    `yaml:"sign_width" validate:"gte=0"`

	RunDelay   time.Duration `yaml:"run_delay" validate:"gte=0"`
	ResetDelay time.Duration `yaml:"reset_delay" validate:"gt=0"`
}

// Default returns a Config holding every default but none of the stop details.
func Default() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		Format:         DefaultFormat,
		MaxPredictions: DefaultMaxPredictions,
		MinRefresh:     DefaultMinRefresh,
		MaxRefresh:     DefaultMaxRefresh,
		ErrorRefresh:   DefaultErrorRefresh,
		Display:        DefaultDisplay,
		SignSlots:      DefaultSignSlots,
		SignWidth:      DefaultSignWidth,
		RunDelay:       DefaultRunDelay,
		ResetDelay:     DefaultResetDelay,
	}
}

// Load builds the configuration from the optional YAML file at path and then
// the ARRIVALSIGN_* environment variables, which take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.applyEnvironment(util.GetEnvironmentVariables()); err != nil {
		return nil, err
	}

	cfg.RouteCodes = util.RemoveDuplicateStrings(cfg.RouteCodes, nil)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

func (c *Config) applyEnvironment(env map[string]string) error {
	setString := func(key string, target *string) {
		if env[key] != "" {
			*target = env[key]
		}
	}

	setString("ARRIVALSIGN_API_KEY", &c.APIKey)
	setString("ARRIVALSIGN_BASE_URL", &c.BaseURL)
	setString("ARRIVALSIGN_FORMAT", &c.Format)
	setString("ARRIVALSIGN_AGENCY", &c.Agency)
	setString("ARRIVALSIGN_STOP_CODE", &c.StopCode)
	setString("ARRIVALSIGN_DIRECTION", &c.Direction)
	setString("ARRIVALSIGN_DISPLAY", &c.Display)

	if env["ARRIVALSIGN_ROUTE_CODES"] != "" {
		c.RouteCodes = util.SplitList(env["ARRIVALSIGN_ROUTE_CODES"])
	}

	var errs []error

	setInt := func(key string, target *int) {
		if env[key] == "" {
			return
		}
		n, err := strconv.Atoi(env[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*target = n
	}

	setSeconds := func(key string, target *time.Duration) {
		if env[key] == "" {
			return
		}
		n, err := strconv.Atoi(env[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*target = time.Duration(n) * time.Second
	}

	setInt("ARRIVALSIGN_MAX_PREDICTIONS", &c.MaxPredictions)
	setInt("ARRIVALSIGN_SIGN_SLOTS", &c.SignSlots)
	setInt("ARRIVALSIGN_SIGN_WIDTH", &c.SignWidth)

	setSeconds("ARRIVALSIGN_MIN_REFRESH", &c.MinRefresh)
	setSeconds("ARRIVALSIGN_MAX_REFRESH", &c.MaxRefresh)
	setSeconds("ARRIVALSIGN_ERROR_REFRESH", &c.ErrorRefresh)
	setSeconds("ARRIVALSIGN_RUN_DELAY", &c.RunDelay)
	setSeconds("ARRIVALSIGN_RESET_DELAY", &c.ResetDelay)

	return errors.Join(errs...)
}
