// Package executor implements the per-test-case state machine (spec §4.6):
// requirement pre-checks, the body/cleanup phases, timeout enforcement,
// and result reconciliation.
package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atf-go/atfrun/internal/atfpath"
	"github.com/atf-go/atfrun/internal/hostconfig"
	"github.com/atf-go/atfrun/internal/tplist"
)

// Outcome is the tri-state result of a requirement check (spec §9 Design
// Notes: "check_requirements... becomes a pure function returning
// RequirementOutcome::{Ok, Skip(reason), Fail(reason)}").
type Outcome int

const (
	Ok Outcome = iota
	Skip
	Fail
)

// RequirementOutcome is the verdict CheckRequirements returns; Reason is
// meaningful only when Kind != Ok.
type RequirementOutcome struct {
	Kind   Outcome
	Reason string
}

func ok() RequirementOutcome             { return RequirementOutcome{Kind: Ok} }
func skip(reason string) RequirementOutcome { return RequirementOutcome{Kind: Skip, Reason: reason} }
func fail(reason string) RequirementOutcome { return RequirementOutcome{Kind: Fail, Reason: reason} }

// CheckRequirements evaluates every require.* key in meta against cfg and
// the environment, per spec §4.6 step 1. Checks run in the order listed in
// the spec and the check's outcome is returned as soon as one fails or
// skips (first failure wins).
func CheckRequirements(meta tplist.Meta, cfg hostconfig.Config, pathEnv string) RequirementOutcome {
	if out := checkArchMachine(meta, cfg); out.Kind != Ok {
		return out
	}
	if out := checkConfig(meta, cfg); out.Kind != Ok {
		return out
	}
	if out := checkProgs(meta, pathEnv); out.Kind != Ok {
		return out
	}
	if out := checkUser(meta); out.Kind != Ok {
		return out
	}
	return ok()
}

func checkArchMachine(meta tplist.Meta, cfg hostconfig.Config) RequirementOutcome {
	if len(meta.RequireArch) > 0 {
		host, present := cfg["atf_arch"]
		if !present || !contains(meta.RequireArch, host) {
			return skip(fmt.Sprintf("Requires one of the '%s' architectures", strings.Join(meta.RequireArch, " ")))
		}
	}
	if len(meta.RequireMachine) > 0 {
		host, present := cfg["atf_machine"]
		if !present || !contains(meta.RequireMachine, host) {
			return skip(fmt.Sprintf("Requires one of the '%s' machine types", strings.Join(meta.RequireMachine, " ")))
		}
	}
	return ok()
}

func checkConfig(meta tplist.Meta, cfg hostconfig.Config) RequirementOutcome {
	for _, name := range meta.RequireConfig {
		if _, present := cfg[name]; !present {
			return skip(fmt.Sprintf("Required configuration variable %s not defined", name))
		}
	}
	return ok()
}

func checkProgs(meta tplist.Meta, pathEnv string) RequirementOutcome {
	for _, prog := range meta.RequireProgs {
		if filepath.IsAbs(prog) {
			p, err := atfpath.New(prog)
			if err != nil {
				return fail(err.Error())
			}
			executable, err := atfpath.IsExecutable(p)
			if err != nil {
				return fail(err.Error())
			}
			if !executable {
				return skip(fmt.Sprintf("The required program %s could not be found", prog))
			}
			continue
		}

		if pathEnv == "" {
			return skip(fmt.Sprintf("The required program %s could not be found in the PATH", prog))
		}

		found := false
		for _, dir := range strings.Split(pathEnv, ":") {
			if dir == "" {
				continue
			}
			candidate := filepath.Join(dir, prog)
			p, err := atfpath.New(candidate)
			if err != nil {
				continue
			}
			if executable, err := atfpath.IsExecutable(p); err == nil && executable {
				found = true
				break
			}
		}
		if !found {
			return skip(fmt.Sprintf("The required program %s could not be found in the PATH", prog))
		}
	}
	return ok()
}

func checkUser(meta tplist.Meta) RequirementOutcome {
	switch meta.RequireUser {
	case tplist.RequireUserNone:
		return ok()
	case tplist.RequireUserRoot:
		if os.Geteuid() != 0 {
			return skip("Requires root privileges")
		}
		return ok()
	case tplist.RequireUserUnprivileged:
		if os.Geteuid() == 0 {
			return skip("Requires unprivileged privileges")
		}
		return ok()
	default:
		return fail(fmt.Sprintf("Invalid value for require.user: %s", meta.RequireUser))
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
