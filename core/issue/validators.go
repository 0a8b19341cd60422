package issue

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shida/core"
)

var (
	categoryTag  = "issuecategory"
	categoryText = "invalid category"

	urgencyTag  = "issueurgency"
	urgencyText = "invalid urgency"

	statusTag  = "issuestatus"
	statusText = "invalid status"
)

// InitValidators registers this package's custom validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, oneOfValidation(categoryDisplays))
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)

	_ = validate.RegisterValidation(urgencyTag, oneOfValidation(urgencyDisplays))
	core.RegisterCustomTranslation(validate, translator, urgencyTag, urgencyText)

	_ = validate.RegisterValidation(statusTag, oneOfValidation(statusDisplays))
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

func oneOfValidation(allowed map[string]string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		_, ok := allowed[fl.Field().String()]
		return ok
	}
}
