package terminal

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fwojciec/matrixctl"
	"golang.org/x/term"
)

// Imgcat renders images inline using the iTerm2 OSC 1337 protocol.
type Imgcat struct {
	w      io.Writer
	config matrixctl.ImageConfig

	// Term is the value of $TERM. Terminals under tmux or screen get the
	// escape sequence wrapped in a DCS passthrough.
	Term string

	// Rows is the terminal height; zero means unknown.
	Rows int
}

// NewImgcat creates an Imgcat writing to w. The terminal height is taken
// from w when it is a terminal.
func NewImgcat(w io.Writer, config matrixctl.ImageConfig) *Imgcat {
	c := &Imgcat{w: w, config: config, Term: os.Getenv("TERM")}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if _, rows, err := term.GetSize(int(f.Fd())); err == nil {
			c.Rows = rows
		}
	}
	return c
}

// Enabled reports whether previews are switched on.
func (c *Imgcat) Enabled() bool {
	return c.config.Enabled
}

// Height returns the preview height in rows, or zero for the image's own
// height.
func (c *Imgcat) Height() int {
	if c.Rows == 0 {
		return 0
	}
	return max(1, int(float64(c.Rows)*c.config.MaxHeightOfTerminal*c.config.ScaleFactor))
}

// Sequence returns the escape sequence displaying data.
func (c *Imgcat) Sequence(name string, data []byte) string {
	args := []string{
		"name=" + base64.StdEncoding.EncodeToString([]byte(name)),
		fmt.Sprintf("size=%d", len(data)),
		"inline=1",
		"preserveAspectRatio=1",
	}
	if h := c.Height(); h > 0 {
		args = append(args, fmt.Sprintf("height=%d", h))
	}
	seq := "\x1b]1337;File=" + strings.Join(args, ";") + ":" + base64.StdEncoding.EncodeToString(data) + "\a"
	if strings.HasPrefix(c.Term, "screen") || strings.HasPrefix(c.Term, "tmux") {
		seq = "\x1bPtmux;" + strings.ReplaceAll(seq, "\x1b", "\x1b\x1b") + "\x1b\\"
	}
	return seq
}

// Show writes the image followed by a newline.
func (c *Imgcat) Show(name string, data []byte) error {
	_, err := io.WriteString(c.w, c.Sequence(name, data)+"\n")
	return err
}
