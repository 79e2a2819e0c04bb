package backend

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// SecretReader resolves a credential from the environment, falling back to a
// hidden prompt when stdin is an interactive terminal.
type SecretReader struct {
	Getenv       func(string) string
	IsTerminal   func() bool
	ReadPassword func() ([]byte, error)

	// Prompt receives the prompt text. Stderr keeps stdout pipeable.
	Prompt io.Writer
}

// TerminalSecrets reads secrets from the process environment and stdin.
func TerminalSecrets() *SecretReader {
	fd := int(os.Stdin.Fd())
	return &SecretReader{
		Getenv:       os.Getenv,
		IsTerminal:   func() bool { return term.IsTerminal(fd) },
		ReadPassword: func() ([]byte, error) { return term.ReadPassword(fd) },
		Prompt:       os.Stderr,
	}
}

// Secret returns the value of env. When env is unset and stdin is not a
// terminal the empty string is returned and the backend reports the missing
// credential itself.
func (r *SecretReader) Secret(env, label string) (string, error) {
	if v := r.Getenv(env); v != "" {
		return v, nil
	}
	if !r.IsTerminal() {
		return "", nil
	}

	fmt.Fprintf(r.Prompt, "Enter %s (%s): ", label, env)
	b, err := r.ReadPassword()
	fmt.Fprintln(r.Prompt) // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", label, err)
	}
	return string(b), nil
}

var secrets = TerminalSecrets()
