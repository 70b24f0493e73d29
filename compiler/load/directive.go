package load

import (
	"fmt"
	"strings"
)

// Directive kinds recognized on annotated declarations.
const (
	dirFunction  = "function"
	dirType      = "type"
	dirEnum      = "enum"
	dirSchema    = "schema"
	dirSQL       = "sql"
	dirOperator  = "operator"
	dirTrigger   = "trigger"
	dirAggregate = "aggregate"
	dirOrd       = "ord"
	dirHash      = "hash"
)

const directivePrefix = "//pgmantle:"

// directive is one parsed //pgmantle: marker line.
type directive struct {
	// Kind is the word after the colon, e.g. "function".
	Kind string
	// Args are the positional words before the first key=value pair.
	Args []string
	// Opts are the key=value pairs.
	Opts map[string]string
	// Flags are bare option words, e.g. "bootstrap" or "immutable".
	Flags map[string]bool
}

// parseDirective parses one comment line. Lines without the directive
// prefix return ok=false.
func parseDirective(line string) (directive, bool, error) {
	if !strings.HasPrefix(line, directivePrefix) {
		return directive{}, false, nil
	}
	rest := strings.TrimPrefix(line, directivePrefix)
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return directive{}, false, fmt.Errorf("pgmantle: empty directive %q", line)
	}
	d := directive{
		Kind:  fields[0],
		Opts:  make(map[string]string),
		Flags: make(map[string]bool),
	}
	positional := true
	for _, f := range fields[1:] {
		if k, v, ok := strings.Cut(f, "="); ok {
			if k == "" {
				return directive{}, false, fmt.Errorf("pgmantle: malformed directive option %q in %q", f, line)
			}
			d.Opts[k] = v
			positional = false
			continue
		}
		if positional {
			d.Args = append(d.Args, f)
			continue
		}
		d.Flags[f] = true
	}
	// Bare words after the first key=value pair are flags; bare words
	// that name known flags are flags even in positional prefix.
	for i := 0; i < len(d.Args); {
		if knownFlags[d.Args[i]] {
			d.Flags[d.Args[i]] = true
			d.Args = append(d.Args[:i], d.Args[i+1:]...)
			continue
		}
		i++
	}
	return d, true, nil
}

var knownFlags = map[string]bool{
	"bootstrap":           true,
	"finalize":            true,
	"immutable":           true,
	"stable":              true,
	"volatile":            true,
	"strict":              true,
	"parallel_safe":       true,
	"parallel_unsafe":     true,
	"parallel_restricted": true,
	"security_definer":    true,
	"security_invoker":    true,
	"no_guard":            true,
	"hashes":              true,
	"merges":              true,
}

// list splits a comma-separated option value, dropping empties.
func (d directive) list(key string) []string {
	v, ok := d.Opts[key]
	if !ok || v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
