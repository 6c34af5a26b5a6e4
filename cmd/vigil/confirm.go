package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// consoleConfirmer shows a preview and asks a yes/no question on the
// terminal. Without a terminal it declines everything so a stray pipe or
// cron invocation never rewrites the document; --yes flips that to a
// blanket accept.
type consoleConfirmer struct {
	in        io.Reader
	out       io.Writer
	assumeYes bool
	tty       bool
}

func newConsoleConfirmer(out io.Writer, assumeYes bool) *consoleConfirmer {
	return &consoleConfirmer{
		in:        os.Stdin,
		out:       out,
		assumeYes: assumeYes,
		tty:       isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
	}
}

func (c *consoleConfirmer) Confirm(prompt string, preview []string) bool {
	for _, line := range preview {
		fmt.Fprintln(c.out, line)
	}
	if c.assumeYes {
		fmt.Fprintf(c.out, "%s yes (--yes)\n", prompt)
		return true
	}
	if !c.tty {
		fmt.Fprintf(c.out, "%s skipped (no terminal; pass --yes to apply)\n", prompt)
		return false
	}

	fmt.Fprintf(c.out, "%s [y/N] ", prompt)
	reader := bufio.NewReader(c.in)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
