// Package terminal talks to the operator's terminal: prompts and inline
// image previews.
package terminal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fwojciec/matrixctl"
	"golang.org/x/term"
)

// Ensure Prompter implements matrixctl.Prompter at compile time.
var _ matrixctl.Prompter = (*Prompter)(nil)

// Prompter reads answers from in and writes questions to out. Passwords
// are read without echo when in is a terminal.
type Prompter struct {
	in  io.Reader
	out io.Writer
	r   *bufio.Reader
}

// NewPrompter creates a new Prompter.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out, r: bufio.NewReader(in)}
}

// Password prompts for a secret.
func (p *Prompter) Password(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", matrixctl.Errorf(matrixctl.EINVALID, "cannot read password: %v", err)
		}
		return string(data), nil
	}
	return p.readLine()
}

// Confirm asks question and accepts "y" or "yes".
func (p *Prompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N] ", question)
	answer, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", matrixctl.Errorf(matrixctl.EINVALID, "no input")
		}
		return "", matrixctl.Errorf(matrixctl.EINVALID, "cannot read input: %v", err)
	}
	return strings.TrimSpace(line), nil
}
