package validation

import (
	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-bakery-orderflow/internal/errorx"
)

// Bind decodes the JSON body into out and validates it. Malformed bodies and rule
// violations both come back as *errorx.ValidationError; the caller maps it to a 400.
func Bind(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return &errorx.ValidationError{Fields: map[string]string{"body": "invalid JSON: " + err.Error()}}
	}
	return Check(v, out)
}
