package validation

import "errors"

const maxEmailLength = 254

// ValidateEmail checks an address with the shared validator's email rule.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email address is required")
	}

	if len(email) > maxEmailLength {
		return errors.New("email address is too long (max 254 characters)")
	}

	err := validate.Var(email, "email")
	if err != nil {
		return errors.New("invalid email address format")
	}

	return nil
}
