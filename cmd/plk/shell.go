package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
)

const shellPrompt = "plk> "

// runShell reads one command per line until end of input, "exit" or ctx
// is done. The master password and folder key stay in the session between
// lines until it times out.
func runShell(ctx context.Context, c *cmdContext) int {
	c.interactive = true
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.env.stdin)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(c.env.stderr, shellPrompt)
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.env.stderr)
			return 130
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.env.stderr)
				return 0
			}
			line = l
		}

		args, err := splitLine(line)
		if err != nil {
			c.notef("%v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "exit", "quit":
			return 0
		case "help":
			for _, cmd := range commandTable() {
				c.notef("  %-28s %s\n", cmd.name+" "+cmd.usage, cmd.summary)
			}
			continue
		}

		cmd := lookupCommand(args[0])
		if cmd == nil {
			c.notef("Unknown command %q, try help\n", args[0])
			continue
		}
		if err := cmd.run(c, args[1:]); err != nil && !errors.Is(err, flag.ErrHelp) {
			c.notef("%s: %v\n", args[0], err)
		}
	}
}

// splitLine splits a shell line on blanks. Single or double quotes group
// words; a backslash escapes the next character outside single quotes.
func splitLine(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped, inWord = true, true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote, inWord = r, true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 || escaped {
		return nil, fmt.Errorf("unterminated quote or escape")
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
