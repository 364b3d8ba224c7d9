package ratelimiter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Limits and defaults.
const (
	DefaultTickRate = 10
	MaxTickRate     = 1000
)

// ErrConfig indicates an invalid configuration.
var ErrConfig = errors.New("invalid rate limiter config")

var validate = validator.New()

// Config contains rate limiter configuration.
type Config struct {
	// Rate is the sustained rate in bytes per second.
	Rate uint64 `json:"rate" validate:"required"`

	// BucketCapacity is the maximum burst size in bytes.
	BucketCapacity uint64 `json:"bucketCapacity" validate:"required"`

	// InitialCapacity is the initial bucket content in bytes.
	// Default is BucketCapacity. Values above BucketCapacity are clamped.
	InitialCapacity *uint64 `json:"initialCapacity,omitempty"`

	// TickRate is the number of bucket refills per second.
	// Default is DefaultTickRate.
	TickRate int `json:"tickRate,omitempty" validate:"gte=0,lte=1000"`
}

// Validate checks required fields and applies defaults.
func (cfg *Config) Validate() error {
	if e := validate.Struct(cfg); e != nil {
		return formatValidationError(e)
	}
	if cfg.TickRate == 0 {
		cfg.TickRate = DefaultTickRate
	}
	return nil
}

func (cfg Config) initial() uint64 {
	if cfg.InitialCapacity == nil {
		return cfg.BucketCapacity
	}
	return min(*cfg.InitialCapacity, cfg.BucketCapacity)
}

func formatValidationError(e error) error {
	var verrs validator.ValidationErrors
	if !errors.As(e, &verrs) {
		return fmt.Errorf("%w: %v", ErrConfig, e)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		default:
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return fmt.Errorf("%w: %s", ErrConfig, strings.Join(msgs, "; "))
}
