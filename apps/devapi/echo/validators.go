package devapi

import (
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/edutracks/console/core"
)

var (
	// password policy
	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdTexts = map[string]string{
		pwdNoSpaceTag:   pwdNoSpaceText,
		pwdNotAllNumTag: pwdNotAllNumText,
		pwdAttrSimTag:   pwdAttrSimText,
	}
)

func registerValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(registerStructValidation, RegisterRequest{})
	for tag, text := range pwdTexts {
		core.RegisterCustomTranslation(validate, translator, tag, text)
	}
}

func registerStructValidation(sl validator.StructLevel) {
	req := sl.Current().Interface().(RegisterRequest)
	if tag := checkPassword(req.Password, req.Name, req.Email); tag != "" {
		sl.ReportError(req.Password, "password", "Password", tag, "")
	}
}

// checkPassword applies the password policy and returns the tag of the first broken rule:
// - no whitespace
// - not all numeric
// - no similarity to user attributes
// Length is checked by the min tag of the request.
func checkPassword(pwd string, attrs ...string) string {
	if pwd == "" {
		return ""
	}
	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == len([]rune(pwd)) {
		return pwdNotAllNumTag
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
		if ratio >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}
	return ""
}
