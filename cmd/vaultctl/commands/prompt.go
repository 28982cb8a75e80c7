package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads passwords from a terminal without echo, or line by line
// from anything else.
type prompter struct {
	out    io.Writer
	file   *os.File
	reader *bufio.Reader
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.file = f
		return p
	}
	p.reader = bufio.NewReader(in)
	return p
}

func (p *prompter) password(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)

	if p.file != nil {
		b, err := term.ReadPassword(int(p.file.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// newPassword asks twice and requires both answers to match.
func (p *prompter) newPassword() (string, error) {
	pw, err := p.password("Password: ")
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", errors.New("empty password")
	}

	again, err := p.password("Repeat password: ")
	if err != nil {
		return "", err
	}
	if pw != again {
		return "", errors.New("passwords do not match")
	}
	return pw, nil
}
