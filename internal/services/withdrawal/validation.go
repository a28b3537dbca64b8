package withdrawal

import (
	"fmt"

	"paydesk_backend/internal/models"
	"paydesk_backend/internal/validator"
	"paydesk_backend/pkg/apperrors"
)

// Limit bounds a single withdrawal, in FCFA, both ends inclusive.
type Limit struct {
	Min int64
	Max int64
}

type Limits map[models.PaymentMethod]Limit

// Validate checks phone and amount for method. Errors are keyed by JSON field.
func (l Limits) Validate(method models.PaymentMethod, phone string, amount int64) error {
	fields := make(map[string]string)

	if !method.Valid() {
		fields["method"] = "Must be one of: OM, WAVE, FREE"
	}
	if !validator.IsMSISDN(phone) {
		fields["phone"] = "Must be a valid Senegalese mobile number"
	}

	if amount <= 0 {
		fields["amount"] = "Must be greater than 0"
	} else if limit, ok := l[method]; ok {
		switch {
		case limit.Min > 0 && amount < limit.Min:
			fields["amount"] = fmt.Sprintf("Must be at least %d FCFA for %s", limit.Min, method.DisplayName())
		case limit.Max > 0 && amount > limit.Max:
			fields["amount"] = fmt.Sprintf("Must be at most %d FCFA for %s", limit.Max, method.DisplayName())
		}
	}

	if len(fields) > 0 {
		return apperrors.ValidationError(fields)
	}
	return nil
}
