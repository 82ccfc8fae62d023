package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs tag-based validation and returns human-readable
// messages, one per failing field. A nil return means the struct is valid.
func ValidateStruct(s interface{}) []string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var details []string
	for _, err := range err.(validator.ValidationErrors) {
		field := strings.ToLower(err.Field())
		tag := err.Tag()
		param := err.Param()

		switch tag {
		case "required":
			details = append(details, field+" is required")
		case "min":
			details = append(details, field+" must be at least "+param)
		case "max":
			details = append(details, field+" must be at most "+param)
		case "email":
			details = append(details, field+" must be a valid email")
		case "oneof":
			details = append(details, field+" must be one of: "+param)
		default:
			details = append(details, field+" is invalid")
		}
	}

	return details
}
