package handlers

import (
	"pharmacy_backend/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the pkmobile tag to gin's binding validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("pkmobile", func(fl validator.FieldLevel) bool {
		return models.ValidContactNumber(fl.Field().String())
	})
}
