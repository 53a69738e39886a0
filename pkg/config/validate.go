package config

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against the validation tags declared
// on the config structs.
//
// Field names in validation errors are reported using the mapstructure
// key, so an invalid value surfaces under the same name the user wrote
// in the config file (e.g. "logging.level" instead of "Logging.Level").
//
// Validation does not modify the configuration; normalization (such as
// uppercasing the log level) happens in ApplyDefaults.
func Validate(cfg *Config) error {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v.Struct(cfg)
}
