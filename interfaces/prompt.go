package interfaces

import (
	"errors"
	"fmt"
	"sync"

	"github.com/opd-ai/passlok/directory"
)

// PromptKind tells a Prompter what is being asked so it can mask input or
// render a yes/no choice.
type PromptKind int

const (
	// PromptPassword asks for a secret (symmetric message password, decoy
	// key, stego password). Input should be masked.
	PromptPassword PromptKind = iota
	// PromptConfirm asks a yes/no question. Any non-empty answer with ok
	// set means yes.
	PromptConfirm
	// PromptText asks for a visible value such as a contact name.
	PromptText
)

// String returns the kind name used in logs.
func (k PromptKind) String() string {
	switch k {
	case PromptPassword:
		return "password"
	case PromptConfirm:
		return "confirm"
	case PromptText:
		return "text"
	}
	return fmt.Sprintf("PromptKind(%d)", int(k))
}

// Prompter asks the user for input in the middle of an operation. ok is
// false when the user cancelled; err is reserved for I/O failures.
type Prompter interface {
	Prompt(kind PromptKind, message string) (answer string, ok bool, err error)
}

// HostStore persists per-site records keyed by registered domain.
type HostStore interface {
	HostRecord(host string) (directory.HostRecord, error)
	PutHostRecord(host string, rec directory.HostRecord) error
}

// ErrPromptExhausted is returned by ScriptedPrompter when it runs out of
// answers.
var ErrPromptExhausted = errors.New("no scripted answer left")

// Answer is one scripted reply.
type Answer struct {
	Text   string
	Cancel bool
}

// ScriptedPrompter replays fixed answers in order and records what was
// asked. It stands in for a terminal in tests and batch runs.
type ScriptedPrompter struct {
	mu      sync.Mutex
	answers []Answer
	Asked   []string
}

// NewScriptedPrompter queues answers.
func NewScriptedPrompter(answers ...Answer) *ScriptedPrompter {
	return &ScriptedPrompter{answers: answers}
}

// Prompt returns the next queued answer.
func (s *ScriptedPrompter) Prompt(kind PromptKind, message string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Asked = append(s.Asked, kind.String()+": "+message)
	if len(s.answers) == 0 {
		return "", false, ErrPromptExhausted
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	if a.Cancel {
		return "", false, nil
	}
	return a.Text, true, nil
}

// Remaining reports how many answers were not consumed.
func (s *ScriptedPrompter) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}
