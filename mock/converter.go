package mock

import "github.com/fwojciec/matrixctl"

var _ matrixctl.Converter = (*Converter)(nil)

// Converter is a mock implementation of matrixctl.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}
