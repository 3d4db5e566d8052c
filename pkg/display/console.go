package display

import (
	"fmt"
	"io"
	"os"
)

// Console prints each set of lines followed by a blank separator line. Useful
// for debugging without the sign attached.
type Console struct {
	Out io.Writer
}

func NewConsole() *Console {
	return &Console{Out: os.Stdout}
}

func (c *Console) Show(lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(c.Out, line); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(c.Out)
	return err
}
