//go:build !windows

package git

import (
	"os"
	"path/filepath"
	"strings"
)

// writeSequenceEditor writes a shell script that replaces the todo file git
// passes as $1 with todo.
func writeSequenceEditor(dir, todo string) (string, error) {
	script := filepath.Join(dir, "sequence-editor.sh")
	body := "#!/bin/sh\ncp " + shellQuote(todo) + " \"$1\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		return "", err
	}
	return shellQuote(script), nil
}

// shellQuote wraps s in single quotes for /bin/sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
