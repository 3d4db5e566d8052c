package display

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPanel struct {
	renders [][]string
}

func (p *recordingPanel) Render(slots []string) error {
	p.renders = append(p.renders, slots)
	return nil
}

type recordingSink struct {
	shown [][]string
	err   error
}

func (s *recordingSink) Show(lines []string) error {
	s.shown = append(s.shown, lines)
	return s.err
}

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	console := &Console{Out: &out}

	require.NoError(t, console.Show([]string{"14 MISSION", "Now 6m"}))
	require.NoError(t, console.Show(nil))

	assert.Equal(t, "14 MISSION\nNow 6m\n\n\n", out.String())
}

func TestSignClearsStaleSlots(t *testing.T) {
	panel := &recordingPanel{}
	sign := NewSign(panel, 4, 12)

	require.NoError(t, sign.Show([]string{"14 MISSION", "Now 6m", "49 VAN NESS-MISSION", "3m"}))
	assert.Equal(t, []string{"14 MISSION", "Now 6m", "49 VAN NESS-", "3m"}, sign.Slots())

	require.NoError(t, sign.Show([]string{"14 MISSION", "2m"}))
	assert.Equal(t, []string{"14 MISSION", "2m", "", ""}, sign.Slots())

	require.NoError(t, sign.Show(nil))
	assert.Equal(t, []string{"", "", "", ""}, sign.Slots())

	require.Len(t, panel.renders, 3)
	assert.Equal(t, []string{"14 MISSION", "2m", "", ""}, panel.renders[1])
}

func TestSignDropsExcessLines(t *testing.T) {
	panel := &recordingPanel{}
	sign := NewSign(panel, 2, 0)

	require.NoError(t, sign.Show([]string{"Network Error", "503", "Service Unavailable"}))

	assert.Equal(t, []string{"Network Error", "503"}, sign.Slots())
}

func TestSignSlotsAreCopies(t *testing.T) {
	sign := NewSign(&recordingPanel{}, 2, 0)
	require.NoError(t, sign.Show([]string{"a", "b"}))

	slots := sign.Slots()
	slots[0] = "changed"

	assert.Equal(t, []string{"a", "b"}, sign.Slots())
}

func TestTerminalPanel(t *testing.T) {
	var out bytes.Buffer
	panel := &TerminalPanel{Out: &out, Width: 6}

	require.NoError(t, panel.Render([]string{"14 X", "Now", "49 Y", ""}))

	assert.Equal(t, ""+
		"+--------+\n"+
		"| 14 X   |\n"+
		"| Now    |\n"+
		"|~~~~~~~~|\n"+
		"| 49 Y   |\n"+
		"|        |\n"+
		"+--------+\n", out.String())
}

func TestBanner(t *testing.T) {
	assert.Equal(t, []string{"Predictions", "for SF", "using API", "511.org"}, Banner("SF"))
}

func TestMultiSink(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{err: errors.New("matrix unplugged")}
	third := &recordingSink{}

	err := MultiSink{first, second, third}.Show([]string{"14 MISSION", "5m"})

	assert.ErrorContains(t, err, "matrix unplugged")
	for _, sink := range []*recordingSink{first, second, third} {
		assert.Equal(t, [][]string{{"14 MISSION", "5m"}}, sink.shown)
	}
}
