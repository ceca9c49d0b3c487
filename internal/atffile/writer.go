package atffile

import (
	"fmt"
	"io"

	"github.com/atf-go/atfrun/internal/header"
)

// Write serializes m back into Atffile form. Writing the parsed
// representation and re-parsing it must produce an equal Manifest (spec §8
// "Manifest round-trip").
func Write(w io.Writer, m *Manifest) error {
	hw := header.NewWriter(w)
	hw.WriteHeader(header.ContentTypeEntry(MediaType, Version))
	if err := hw.Flush(); err != nil {
		return err
	}

	for _, e := range m.Events {
		var line string
		switch e.Kind {
		case EventComment:
			line = e.Comment
		case EventConf:
			line = fmt.Sprintf("conf: %s = %s", e.Name, e.Value)
		case EventProp:
			line = fmt.Sprintf("prop: %s = %s", e.Name, e.Value)
		case EventTp:
			line = fmt.Sprintf("tp: %s", e.TP)
		case EventTpGlob:
			line = fmt.Sprintf("tp-glob: %s", e.TP)
		}
		if err := hw.WriteBodyLine(line); err != nil {
			return err
		}
	}
	return nil
}
