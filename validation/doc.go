// Package validation checks configuration sections and API input.
//
// Struct tag validation uses go-playground/validator and reports fields by
// their mapstructure or json name, so errors point at the config key the
// operator has to fix:
//
//	type Config struct {
//	    Target      string `mapstructure:"target" validate:"required"`
//	    MaxParallel int    `mapstructure:"max_parallel" validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// Programmatic validation collects field errors for checks that tags
// cannot express:
//
//	v := validation.New()
//	v.Positive("pipeline.default_timeout", cfg.DefaultTimeout)
//	err := v.Validate()
package validation
