package utils

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

// knownCrafts mirrors the craft taxonomy of the template catalog.
var knownCrafts = map[string]bool{
	"woodworking": true,
	"sewing":      true,
	"leatherwork": true,
	"pottery":     true,
	"knitting":    true,
	"metalwork":   true,
}

func InitValidator() {
	Validate = validator.New()
	Validate.RegisterValidation("craft", ValidateCraftRule)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("craft", ValidateCraftRule)
	}
}

// ValidateCraftRule accepts only craft types present in the catalog
// taxonomy.
func ValidateCraftRule(fl validator.FieldLevel) bool {
	return knownCrafts[fl.Field().String()]
}
