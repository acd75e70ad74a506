package engineconfig

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks cfg against its struct tags plus the custom rules
// below, which are not expressible as tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.PageSize&(cfg.PageSize-1) != 0 {
		return fmt.Errorf("page_size: %d is not a power of two", cfg.PageSize)
	}

	switch cfg.Snapshot.Backend {
	case "badger":
		if cfg.Snapshot.Badger.Path == "" {
			return fmt.Errorf("snapshot.badger: path must be set when backend is badger")
		}
	case "s3":
		if cfg.Snapshot.S3.Bucket == "" {
			return fmt.Errorf("snapshot.s3: bucket must be set when backend is s3")
		}
	}

	return nil
}

func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
