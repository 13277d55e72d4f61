package directory

import (
	"fmt"
	"strings"

	"github.com/opd-ai/passlok/codec"
)

// maxGroupDepth bounds group expansion so a group that names itself
// terminates.
const maxGroupDepth = 16

// Recipient is one resolved Lock. Name is the directory entry the Lock came
// from, or empty for a literal Lock or "me".
type Recipient struct {
	Name string
	Lock string
	Self bool
}

// Resolver expands recipient selectors against a directory.
type Resolver struct {
	Dir *Directory
	// OwnLock is substituted for the selector "me".
	OwnLock string
	// ExcludeSelf drops "me" (read-once messages cannot be addressed to
	// oneself).
	ExcludeSelf bool
}

// Resolve turns selectors (entry names, =group= names, literal Locks,
// comma-separated lists, or "me") into a deduplicated list of Locks in
// first-seen order.
func (r *Resolver) Resolve(selectors []string) ([]Recipient, error) {
	var out []Recipient
	seen := make(map[string]bool)

	add := func(rc Recipient) {
		if !seen[rc.Lock] {
			seen[rc.Lock] = true
			out = append(out, rc)
		}
	}

	var resolve func(sel, via string, depth int) error
	resolve = func(sel, via string, depth int) error {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			return nil
		}
		if depth > maxGroupDepth {
			return fmt.Errorf("%w: group nesting too deep at %q", ErrUnknownRecipient, sel)
		}

		if strings.EqualFold(sel, "me") {
			if r.ExcludeSelf {
				return nil
			}
			if codec.IsStrictLock(r.OwnLock) {
				add(Recipient{Lock: r.OwnLock, Self: true})
			}
			return nil
		}

		if codec.IsStrictLock(sel) {
			add(Recipient{Name: via, Lock: sel})
			return nil
		}

		if strings.Contains(sel, ",") {
			for _, item := range strings.Split(sel, ",") {
				if err := resolve(item, "", depth+1); err != nil {
					return err
				}
			}
			return nil
		}

		name := strings.TrimSuffix(strings.TrimPrefix(sel, "="), "=")
		e, ok := r.Dir.Get(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownRecipient, name)
		}
		if e.IsGroup() {
			return resolve(e.Lock, "", depth+1)
		}
		return resolve(e.Lock, name, depth+1)
	}

	for _, sel := range selectors {
		if err := resolve(sel, "", 0); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Locks returns just the Lock strings.
func Locks(rs []Recipient) []string {
	out := make([]string, len(rs))
	for i, rc := range rs {
		out[i] = rc.Lock
	}
	return out
}
