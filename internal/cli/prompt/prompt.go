// Package prompt provides interactive terminal prompts for CLI commands.
package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err indicates the user aborted.
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

// wrapError converts promptui interrupt/abort errors to ErrAborted for
// consistent handling.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Input prompts for text input with a default value.
func Input(label, defaultValue string) (string, error) {
	p := promptui.Prompt{
		Label:   label,
		Default: defaultValue,
	}
	result, err := p.Run()
	return result, wrapError(err)
}

// InputRequired prompts for text input that must not be empty.
func InputRequired(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("value is required")
			}
			return nil
		},
	}
	result, err := p.Run()
	return result, wrapError(err)
}

// InputInt prompts for integer input.
func InputInt(label string, defaultValue int) (int, error) {
	p := promptui.Prompt{
		Label:   label,
		Default: strconv.Itoa(defaultValue),
		Validate: func(input string) error {
			if _, err := strconv.Atoi(input); err != nil {
				return fmt.Errorf("must be a valid integer")
			}
			return nil
		},
	}
	result, err := p.Run()
	if err != nil {
		return 0, wrapError(err)
	}
	value, _ := strconv.Atoi(result) // already validated
	return value, nil
}

// InputPort prompts for a network port (1-65535).
func InputPort(label string, defaultValue int) (int, error) {
	p := promptui.Prompt{
		Label:   label,
		Default: strconv.Itoa(defaultValue),
		Validate: func(input string) error {
			port, err := strconv.Atoi(input)
			if err != nil {
				return fmt.Errorf("must be a valid integer")
			}
			if port < 1 || port > 65535 {
				return fmt.Errorf("must be a valid port (1-65535)")
			}
			return nil
		},
	}
	result, err := p.Run()
	if err != nil {
		return 0, wrapError(err)
	}
	value, _ := strconv.Atoi(result)
	return value, nil
}

// Confirm prompts for yes/no confirmation. Ctrl+C yields ErrAborted.
func Confirm(label string, defaultYes bool) (bool, error) {
	defaultStr := "y/N"
	if defaultYes {
		defaultStr = "Y/n"
	}

	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [%s]", label, defaultStr),
		IsConfirm: true,
	}

	result, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, ErrAborted
		}
		// promptui reports "n" as ErrAbort.
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		if result == "" {
			return defaultYes, nil
		}
		return false, err
	}

	result = strings.ToLower(result)
	return result == "y" || result == "yes", nil
}

// ConfirmWithForce skips the prompt when force is set.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}
