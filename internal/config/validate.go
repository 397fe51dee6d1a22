package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func init() {
	// Report violations by env key so operators know what to set.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		return fld.Name
	})
}

// Validate checks that every key required by the given command is present.
// role is "serve" (OAuth bootstrap server) or "run" (tokens supplied).
func (c *Config) Validate(role string) error {
	c.Role = role

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	name := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_if":
		return name + " is required"
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", name, fe.Param())
	case "url":
		return name + " must be a URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s", name, fe.Tag(), fe.Param())
	}
}

// Redacted returns a copy safe to print: secrets are masked.
func (c *Config) Redacted() Config {
	r := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	r.ClientSecret = mask(r.ClientSecret)
	r.AWSSecretAccessKey = mask(r.AWSSecretAccessKey)
	return r
}
