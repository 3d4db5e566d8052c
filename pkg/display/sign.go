package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/travigo/arrivalsign/pkg/util"
)

// Panel is the physical matrix driver. It receives one string per fixed text
// slot every time the sign changes.
type Panel interface {
	Render(slots []string) error
}

// Sign maps lines onto a fixed number of slots. Extra lines are dropped and
// unused slots are blanked.
type Sign struct {
	Panel Panel
	Width int

	slots []string
}

func NewSign(panel Panel, slots int, width int) *Sign {
	return &Sign{
		Panel: panel,
		Width: width,
		slots: make([]string, slots),
	}
}

func (s *Sign) Show(text []string) error {
	for i := range s.slots {
		s.slots[i] = ""
	}

	n := min(len(s.slots), len(text))
	for i := 0; i < n; i++ {
		s.slots[i] = util.TrimString(text[i], s.Width)
	}

	return s.Panel.Render(s.Slots())
}

func (s *Sign) Slots() []string {
	slots := make([]string, len(s.slots))
	copy(slots, s.slots)

	return slots
}

// Banner is shown on the sign until the first poll completes.
func Banner(agency string) []string {
	return []string{"Predictions", fmt.Sprintf("for %s", agency), "using API", "511.org"}
}

// TerminalPanel draws the sign as a boxed block of text, standing in for the
// LED matrix.
type TerminalPanel struct {
	Out   io.Writer
	Width int
}

func (p *TerminalPanel) Render(slots []string) error {
	width := p.Width
	for _, slot := range slots {
		width = max(width, len([]rune(slot)))
	}

	border := "+" + strings.Repeat("-", width+2) + "+"

	var b strings.Builder
	b.WriteString(border + "\n")
	for i, slot := range slots {
		// Separator between each pair of route lines, as on the matrix
		if i > 0 && i%2 == 0 {
			b.WriteString("|" + strings.Repeat("~", width+2) + "|\n")
		}
		padding := strings.Repeat(" ", width-len([]rune(slot)))
		b.WriteString("| " + slot + padding + " |\n")
	}
	b.WriteString(border + "\n")

	_, err := io.WriteString(p.Out, b.String())
	return err
}
