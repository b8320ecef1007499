package request

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/edvin/certbind/internal/domain"
)

var validate = validator.New()

// multiLabel checks hostname syntax and requires more than two labels. The
// reserved hostname is a deployment setting and is checked by the service.
var multiLabel = domain.NewValidator("")

func init() {
	validate.RegisterValidation("hostname_multi", func(fl validator.FieldLevel) bool {
		return multiLabel.Validate(fl.Field().String())
	})
}

func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}
