package validator

import (
	"log"
	"regexp"
	"strings"

	"paydesk_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// Senegalese mobile numbers: 9 digits on the 70/75/76/77/78 prefixes.
var msisdnPattern = regexp.MustCompile(`^7[05678][0-9]{7}$`)

// registerCustomRules регистрирует все кастомные функции валидации в
// переданном экземпляре валидатора.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	// 'is-payment-method': OM, WAVE или FREE
	mustRegister("is-payment-method", validatePaymentMethod)

	// 'is-msisdn': номер мобильного кошелька
	mustRegister("is-msisdn", validateMSISDN)
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // 'required' обрабатывает пустые
	}
	_, ok := models.ParsePaymentMethod(value)
	return ok
}

func validateMSISDN(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return IsMSISDN(value)
}

// NormalizeMSISDN strips spaces and the +221/221 country prefix.
func NormalizeMSISDN(phone string) string {
	phone = strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
	phone = strings.TrimPrefix(phone, "+")
	if len(phone) == 12 && strings.HasPrefix(phone, "221") {
		phone = phone[3:]
	}
	return phone
}

// IsMSISDN reports whether phone is a Senegalese mobile number.
func IsMSISDN(phone string) bool {
	return msisdnPattern.MatchString(NormalizeMSISDN(phone))
}
