package tplist

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/atf-go/atfrun/internal/header"
)

// Write serializes metas back into tp-list form.
func Write(w io.Writer, metas []Meta) error {
	hw := header.NewWriter(w)
	hw.WriteHeader(header.ContentTypeEntry(MediaType, Version))
	if err := hw.Flush(); err != nil {
		return err
	}

	for i, m := range metas {
		if i > 0 {
			if err := hw.WriteBodyLine(""); err != nil {
				return err
			}
		}
		if err := hw.WriteBodyLine(fmt.Sprintf("ident: %s", m.Ident)); err != nil {
			return err
		}
		if m.TimeoutSeconds != DefaultTimeoutSeconds {
			if err := hw.WriteBodyLine(fmt.Sprintf("timeout: %d", m.TimeoutSeconds)); err != nil {
				return err
			}
		}
		if m.HasCleanup {
			if err := hw.WriteBodyLine("has.cleanup: true"); err != nil {
				return err
			}
		}
		if m.Descr != "" {
			if err := hw.WriteBodyLine(fmt.Sprintf("descr: %s", m.Descr)); err != nil {
				return err
			}
		}
		if len(m.RequireArch) > 0 {
			if err := hw.WriteBodyLine(fmt.Sprintf("require.arch: %s", strings.Join(m.RequireArch, " "))); err != nil {
				return err
			}
		}
		if len(m.RequireMachine) > 0 {
			if err := hw.WriteBodyLine(fmt.Sprintf("require.machine: %s", strings.Join(m.RequireMachine, " "))); err != nil {
				return err
			}
		}
		if len(m.RequireConfig) > 0 {
			if err := hw.WriteBodyLine(fmt.Sprintf("require.config: %s", strings.Join(m.RequireConfig, " "))); err != nil {
				return err
			}
		}
		if len(m.RequireProgs) > 0 {
			if err := hw.WriteBodyLine(fmt.Sprintf("require.progs: %s", strings.Join(m.RequireProgs, " "))); err != nil {
				return err
			}
		}
		if m.RequireUser != RequireUserNone {
			if err := hw.WriteBodyLine(fmt.Sprintf("require.user: %s", m.RequireUser)); err != nil {
				return err
			}
		}

		keys := make([]string, 0, len(m.Extra))
		for k := range m.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := hw.WriteBodyLine(fmt.Sprintf("%s: %s", k, m.Extra[k])); err != nil {
				return err
			}
		}
	}
	return nil
}
