package middleware

import (
	"github.com/docspace/backend/internal/domain/entitlement"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator registers custom binding validators on gin's validator
// engine. Safe to call more than once.
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("packageref", validPackageRef)
	}
}

// validPackageRef accepts only refs present in the package catalog
func validPackageRef(fl validator.FieldLevel) bool {
	_, ok := entitlement.PackageByRef(entitlement.PackageRef(fl.Field().String()))
	return ok
}
