package suite

import "github.com/atf-go/atfrun/internal/tcresult"

// teeSink fans every event out to multiple Sinks, in order, so a run can
// feed both the authoritative transcript and a human progress ticker
// without either depending on the other.
type teeSink struct {
	sinks []Sink
}

// TeeSink returns a Sink that forwards every call to each of sinks, in
// order given.
func TeeSink(sinks ...Sink) Sink {
	return &teeSink{sinks: sinks}
}

func (t *teeSink) Info(key, value string) {
	for _, s := range t.sinks {
		s.Info(key, value)
	}
}

func (t *teeSink) Count(n int) {
	for _, s := range t.sinks {
		s.Count(n)
	}
}

func (t *teeSink) StartProgram(path string, nCases int) {
	for _, s := range t.sinks {
		s.StartProgram(path, nCases)
	}
}

func (t *teeSink) EndProgram(path string, reason string) {
	for _, s := range t.sinks {
		s.EndProgram(path, reason)
	}
}

func (t *teeSink) StartCase(ident string) {
	for _, s := range t.sinks {
		s.StartCase(ident)
	}
}

func (t *teeSink) Stdout(line string) {
	for _, s := range t.sinks {
		s.Stdout(line)
	}
}

func (t *teeSink) Stderr(line string) {
	for _, s := range t.sinks {
		s.Stderr(line)
	}
}

func (t *teeSink) EndCase(tcr tcresult.TCR) {
	for _, s := range t.sinks {
		s.EndCase(tcr)
	}
}
