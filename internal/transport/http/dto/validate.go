package dto

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

var (
	initOnce sync.Once
	validate *validator.Validate
	trans    ut.Translator
)

func engine() (*validator.Validate, ut.Translator) {
	initOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// report json names instead of Go field names
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = f.Tag.Get("query")
			}
			return name
		})
		_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return domain.IsValidRole(fl.Field().String())
		})
		// max counts runes; bcrypt's limit is in bytes
		_ = validate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
			n, err := strconv.Atoi(fl.Param())
			return err == nil && len(fl.Field().String()) <= n
		})

		english := en.New()
		trans, _ = ut.New(english, english).GetTranslator("en")
		_ = entrans.RegisterDefaultTranslations(validate, trans)
	})
	return validate, trans
}

// passwordFields get weak_password instead of invalid_field on length failures.
var passwordFields = map[string]bool{
	"password":     true,
	"new_password": true,
}

// check validates v and converts the first failure into a domain error.
func check(v any) error {
	val, tr := engine()

	err := val.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.ErrInvalidJSON(err)
	}

	fe := verrs[0]
	field := fe.Field()
	switch {
	case fe.Tag() == "required":
		return domain.ErrMissingField(field)
	case fe.Tag() == "min" && passwordFields[field]:
		return domain.ErrWeakPassword("min length " + fe.Param())
	case fe.Tag() == "maxbytes" && passwordFields[field]:
		return domain.ErrWeakPassword("max length " + fe.Param() + " bytes")
	case fe.Tag() == "maxbytes":
		return domain.ErrInvalidField(field, "must be at most "+fe.Param()+" bytes")
	case fe.Tag() == "role":
		return domain.ErrInvalidRole(fe.Value().(string))
	default:
		return domain.ErrInvalidField(field, fe.Translate(tr))
	}
}

// badTokenAsInvalid reports a malformed token the same way as an unknown
// one, so the client only ever sees invalid_or_expired_token for it.
func badTokenAsInvalid(err error, field string) error {
	var de *domain.Error
	if errors.As(err, &de) && de.Code == "invalid_field" && de.Meta["field"] == field {
		return domain.ErrInvalidOrExpiredToken()
	}
	return err
}
