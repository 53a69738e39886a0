package prompt

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

// ErrPasswordMismatch indicates the two password entries differ.
var ErrPasswordMismatch = errors.New("passwords do not match")

// Password prompts for a masked password.
func Password(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Mask:  '*',
	}
	result, err := p.Run()
	return result, wrapError(err)
}

// PasswordWithConfirmation prompts for a password twice and enforces a
// minimum length.
func PasswordWithConfirmation(label, confirmLabel string, minLength int) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(input string) error {
			if len(input) < minLength {
				return fmt.Errorf("password must be at least %d characters", minLength)
			}
			return nil
		},
	}
	password, err := p.Run()
	if err != nil {
		return "", wrapError(err)
	}

	confirm, err := Password(confirmLabel)
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", ErrPasswordMismatch
	}
	return password, nil
}
