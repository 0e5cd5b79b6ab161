package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/sqlsense/pkg/token"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// SourceOptions locates the SQL text and the cursor inside it.
type SourceOptions struct {
	File      string // SQL file, "-" for stdin
	Offset    int    // byte offset, -1 for unset
	Line      int    // 1-based line, 0 for unset
	Character int    // 1-based byte column
}

func (o *SourceOptions) addFlags(cmd *cobra.Command, cursor bool) {
	cmd.Flags().StringVarP(&o.File, "file", "f", "", "Read SQL from a file (- for stdin)")
	if !cursor {
		return
	}
	cmd.Flags().IntVar(&o.Offset, "offset", -1, "Cursor byte offset (default: end of text)")
	cmd.Flags().IntVar(&o.Line, "line", 0, "Cursor line, 1-based")
	cmd.Flags().IntVar(&o.Character, "col", 1, "Cursor column in bytes, 1-based")
}

// read returns the SQL from the first argument, --file, or stdin.
func (o *SourceOptions) read(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) > 0:
		return args[0], nil
	case o.File == "-" || o.File == "":
		if o.File == "" && isTerminal(cmd.InOrStdin()) {
			return "", fmt.Errorf("no SQL given: pass it as an argument, with --file, or on stdin")
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(o.File)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", o.File, err)
		}
		return string(data), nil
	}
}

// cursor resolves the cursor flags to a byte offset into text. Without
// flags the cursor sits at the end, ignoring one trailing newline.
func (o *SourceOptions) cursor(text string) int {
	switch {
	case o.Offset >= 0:
		return min(o.Offset, len(text))
	case o.Line > 0:
		return token.OffsetAt(text, o.Line-1, o.Character-1)
	default:
		return len(strings.TrimSuffix(text, "\n"))
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
