package matrixctl

// Prompter asks the operator for input.
type Prompter interface {
	// Password reads a secret without echoing it.
	Password(prompt string) (string, error)

	// Confirm asks a yes/no question. Anything but an explicit yes is no.
	Confirm(question string) (bool, error)
}
