package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opd-ai/passlok/interfaces"
	"golang.org/x/term"
)

// terminalPrompter asks on the controlling terminal. Passwords are read
// without echo when in is a terminal; otherwise answers are read line by
// line, which lets scripts pipe them in.
type terminalPrompter struct {
	in     *os.File
	out    io.Writer
	reader *bufio.Reader
}

func newTerminalPrompter(in *os.File, out io.Writer) *terminalPrompter {
	return &terminalPrompter{in: in, out: out, reader: bufio.NewReader(in)}
}

func (p *terminalPrompter) isTerminal() bool {
	return term.IsTerminal(int(p.in.Fd()))
}

// Prompt implements interfaces.Prompter. End of input counts as cancel.
func (p *terminalPrompter) Prompt(kind interfaces.PromptKind, message string) (string, bool, error) {
	if kind == interfaces.PromptConfirm {
		fmt.Fprintf(p.out, "%s [y/N] ", message)
	} else {
		fmt.Fprintf(p.out, "%s ", message)
	}

	if kind == interfaces.PromptPassword && p.isTerminal() {
		b, err := term.ReadPassword(int(p.in.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", false, fmt.Errorf("reading password: %w", err)
		}
		return string(b), true, nil
	}

	line, err := p.reader.ReadString('\n')
	if err == io.EOF && line == "" {
		return "", false, nil
	}
	if err != nil && err != io.EOF {
		return "", false, err
	}
	line = strings.TrimRight(line, "\r\n")

	if kind == interfaces.PromptConfirm {
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return "yes", true, nil
		}
		return "", false, nil
	}
	return line, true, nil
}
