package display

import "github.com/sourcegraph/conc/pool"

// Sink shows finished lines of text. A sink given fewer lines than it showed
// last time must clear the rest so stale text never lingers.
type Sink interface {
	Show(lines []string) error
}

// MultiSink shows the same lines on several sinks at once. Sinks must not
// modify the lines they are given.
type MultiSink []Sink

func (m MultiSink) Show(lines []string) error {
	p := pool.New().WithErrors()

	for _, sink := range m {
		sink := sink
		p.Go(func() error {
			return sink.Show(lines)
		})
	}

	return p.Wait()
}
