//go:build windows

package git

import (
	"os"
	"path/filepath"
)

// writeSequenceEditor writes a batch file that replaces the todo file git
// passes as %1 with todo.
func writeSequenceEditor(dir, todo string) (string, error) {
	script := filepath.Join(dir, "sequence-editor.bat")
	body := "@copy /y \"" + todo + "\" %1 >NUL\r\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		return "", err
	}
	return `"` + script + `"`, nil
}
