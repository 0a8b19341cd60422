package tests

import (
	"os"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shida/core"
	"github.com/trezcool/shida/core/user"
	testutil "github.com/trezcool/shida/tests"
)

var (
	conf       *core.Config
	validate   *validator.Validate
	translator ut.Translator
)

func TestMain(m *testing.M) {
	conf = testutil.NewConfig()
	validate, translator = newValidator()

	logger := testutil.NewLogger()
	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(logger)

	os.Exit(m.Run())
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
