package mock

import "github.com/fwojciec/matrixctl"

var _ matrixctl.Prompter = (*Prompter)(nil)

// Prompter is a mock implementation of matrixctl.Prompter.
type Prompter struct {
	PasswordFn func(prompt string) (string, error)
	ConfirmFn  func(question string) (bool, error)
}

func (p *Prompter) Password(prompt string) (string, error) {
	return p.PasswordFn(prompt)
}

func (p *Prompter) Confirm(question string) (bool, error) {
	return p.ConfirmFn(question)
}
