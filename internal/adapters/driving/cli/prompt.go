package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// lineReaders keeps one buffered reader per input so consecutive prompts
// don't lose buffered bytes.
var lineReaders = map[io.Reader]*bufio.Reader{}

func lineReader(cmd *cobra.Command) *bufio.Reader {
	in := cmd.InOrStdin()
	r, ok := lineReaders[in]
	if !ok {
		r = bufio.NewReader(in)
		lineReaders[in] = r
	}
	return r
}

// promptLine asks for one line of input.
func promptLine(cmd *cobra.Command, label string) (string, error) {
	cmd.Print(label)
	line, err := lineReader(cmd).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal,
// otherwise as a plain line so it can be piped.
func promptPassword(cmd *cobra.Command, label string) (string, error) {
	if cmd.InOrStdin() == os.Stdin && term.IsTerminal(int(os.Stdin.Fd())) {
		cmd.Print(label)
		data, err := term.ReadPassword(int(os.Stdin.Fd()))
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(data), nil
	}
	return promptLine(cmd, label)
}

// confirm asks a yes/no question. Anything but y or yes declines.
func confirm(cmd *cobra.Command, question string) bool {
	answer, err := promptLine(cmd, question+" [y/N]: ")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
