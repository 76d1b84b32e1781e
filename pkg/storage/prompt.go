package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the user where to save a file
type Prompter interface {
	// Prompt returns the chosen path; "" accepts defaultPath
	Prompt(defaultPath string) (string, error)
}

// TerminalPrompter reads a path from a terminal
type TerminalPrompter struct {
	in  io.Reader
	out io.Writer
	// interactive reports whether in is attached to a terminal
	interactive func() bool
}

// NewTerminalPrompter creates a prompter reading from in and writing to out.
// When in is not a terminal the default path is accepted without asking.
func NewTerminalPrompter(in *os.File, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{
		in:  in,
		out: out,
		interactive: func() bool {
			return in != nil && term.IsTerminal(int(in.Fd()))
		},
	}
}

func (p *TerminalPrompter) Prompt(defaultPath string) (string, error) {
	if p.interactive != nil && !p.interactive() {
		return defaultPath, nil
	}

	fmt.Fprintf(p.out, "Save archive as [%s]: ", defaultPath)
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		fmt.Fprintln(p.out)
		return "", err
	}

	return strings.TrimSpace(line), nil
}
