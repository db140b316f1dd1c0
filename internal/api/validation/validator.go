package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gondar-software/domain-manager/internal/api/dto/common"
	"github.com/gondar-software/domain-manager/internal/models"
	"github.com/gondar-software/domain-manager/internal/utils"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators registers custom validators and reports fields by
// their JSON names
func RegisterValidators(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterValidation("fqdn_or_label", validateFQDNOrLabel)
	v.RegisterValidation("location_path", validateLocationPath)
	v.RegisterValidation("upstream_url", validateUpstreamURL)
	v.RegisterValidation("host_type", validateHostType)
}

// RegisterGinValidators installs the custom validators on gin's binding engine
func RegisterGinValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding engine %T", binding.Validator.Engine())
	}
	RegisterValidators(v)
	return nil
}

// validateFQDNOrLabel accepts "blog", "api.v2" or "blog.example.com". Names
// starting with a www label are taken by the www alias.
func validateFQDNOrLabel(fl validator.FieldLevel) bool {
	name := models.NormalizeName(fl.Field().String())
	if utils.IsReservedAlias(name, "") {
		return false
	}
	return utils.IsValidSubdomain(name) || utils.IsValidDomain(name)
}

// validateLocationPath checks if the path renders as one location argument
func validateLocationPath(fl validator.FieldLevel) bool {
	return models.ValidatePath(fl.Field().String()) == nil
}

// validateUpstreamURL checks if the target is an http(s) URL nginx can proxy to
func validateUpstreamURL(fl validator.FieldLevel) bool {
	return models.ValidateTarget(fl.Field().String()) == nil
}

func validateHostType(fl validator.FieldLevel) bool {
	return models.HostType(fl.Field().String()).Valid()
}

var tagMessages = map[string]string{
	"required":      "is required",
	"min":           "must have at least %s item(s)",
	"unique":        "must not repeat %s",
	"fqdn_or_label": "must be a subdomain label or a fully qualified domain name, not starting with www",
	"location_path": "must be a location path without spaces, quotes, braces, '#' or ';'",
	"upstream_url":  "must be an http:// or https:// URL",
	"host_type":     "must be \"default\" or \"websocket\"",
}

// FormatValidationError formats validation errors into a user-friendly response
func FormatValidationError(err error) []common.ValidationError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	out := make([]common.ValidationError, 0, len(validationErrors))
	for _, e := range validationErrors {
		msg, ok := tagMessages[e.Tag()]
		if !ok {
			msg = "failed " + e.Tag() + " validation"
		} else if strings.Contains(msg, "%s") {
			msg = fmt.Sprintf(msg, strings.ToLower(e.Param()))
		}

		field := e.Namespace()
		if _, rest, found := strings.Cut(field, "."); found {
			field = rest
		}

		out = append(out, common.ValidationError{
			Field:   field,
			Tag:     e.Tag(),
			Message: msg,
			Value:   fmt.Sprint(e.Value()),
		})
	}
	return out
}
