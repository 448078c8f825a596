package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	appErrors "github.com/KGR33N-dev/Portfolio-Backend/pkg/errors"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/response"
	appValidator "github.com/KGR33N-dev/Portfolio-Backend/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation
// rules. When validation fails, an error response is written and false is
// returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}
	return validateOrRespond(c, dest)
}

// bindFormAndValidate is the form-encoded variant used by the login endpoint.
func bindFormAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBind(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid form payload"))
		return false
	}
	return validateOrRespond(c, dest)
}

func validateOrRespond[T any](c *gin.Context, dest *T) bool {
	err := appValidator.ValidateStruct(dest)
	if err == nil {
		return true
	}

	var failures appValidator.FieldFailures
	if errors.As(err, &failures) {
		fields := make([]response.FieldError, 0, len(failures))
		for _, failure := range failures {
			fields = append(fields, response.FieldError{
				Field:   failure.Field,
				Message: failure.Message(),
			})
		}
		response.ValidationError(c, fields)
		return false
	}

	response.Error(c, appErrors.ErrValidation)
	return false
}
