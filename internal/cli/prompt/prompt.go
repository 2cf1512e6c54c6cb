// Package prompt asks the operator for confirmations and missing
// credentials.
package prompt

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the operator presses Ctrl+C.
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err means the operator gave up on a prompt.
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, ErrAborted)
}

func wrapError(err error) error {
	if err != nil && IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Confirm asks a yes/no question. An empty answer picks the default.
func Confirm(label string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}
	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [%s]", label, hint),
		IsConfirm: true,
	}

	result, err := p.Run()
	switch {
	case errors.Is(err, promptui.ErrAbort):
		// promptui reports a "n" answer, or an empty one, as ErrAbort.
		if strings.TrimSpace(result) == "" {
			return defaultYes, nil
		}
		return false, nil
	case err != nil:
		return false, wrapError(err)
	}
	answer := strings.ToLower(strings.TrimSpace(result))
	return answer == "y" || answer == "yes", nil
}

// ConfirmWithForce skips the question when force is set.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}

// ValidateEmail accepts a bare address such as admin@example.com.
func ValidateEmail(s string) error {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != strings.TrimSpace(s) {
		return fmt.Errorf("not a valid email address")
	}
	return nil
}

// Email asks for an email address.
func Email(label, defaultValue string) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  defaultValue,
		Validate: ValidateEmail,
	}
	result, err := p.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// Password asks for a masked, non-empty password.
func Password(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(s string) error {
			if s == "" {
				return errors.New("password is required")
			}
			return nil
		},
	}
	result, err := p.Run()
	return result, wrapError(err)
}

// Credentials fills in whichever of email and password is empty.
func Credentials(email, password string) (string, string, error) {
	var err error
	if email == "" {
		if email, err = Email("Admin email", ""); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = Password("Password for " + email); err != nil {
			return "", "", err
		}
	}
	return email, password, nil
}

// Option is one choice of Select.
type Option struct {
	Label       string
	Value       string
	Description string
}

// Select asks the operator to pick one option and returns its value.
func Select(label string, options []Option) (string, error) {
	if len(options) == 0 {
		return "", errors.New("nothing to select")
	}
	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "* {{ .Label | green }}",
		Details:  `{{ if .Description }}{{ .Description | faint }}{{ end }}`,
	}
	p := promptui.Select{
		Label:     label,
		Items:     options,
		Templates: templates,
		Size:      10,
	}
	i, _, err := p.Run()
	if err != nil {
		return "", wrapError(err)
	}
	return options[i].Value, nil
}
