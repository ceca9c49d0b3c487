// Package suite implements the recursive manifest-tree walker (spec §4.8):
// directory-vs-file dispatch, lexical configuration scoping, and the
// dry-run program count the transcript header requires.
package suite

import "github.com/atf-go/atfrun/internal/tcresult"

// Sink receives the stream of walk events, in exactly the order the
// transcript writer (§4.10) must serialize them. internal/transcript
// implements this; tests and internal/render can implement it too without
// either package depending on the other.
type Sink interface {
	Info(key, value string)
	Count(n int)
	StartProgram(path string, nCases int)
	EndProgram(path string, reason string)
	StartCase(ident string)
	Stdout(line string)
	Stderr(line string)
	EndCase(tcr tcresult.TCR)
}
