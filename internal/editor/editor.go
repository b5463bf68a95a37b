package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

func editorCmd() []string {
	for _, env := range []string{"SEASTAR_EDITOR", "EDITOR", "VISUAL"} {
		if fields := strings.Fields(os.Getenv(env)); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}

// Open runs the user's editor on path and waits for it to exit. Editor
// settings with arguments ("code --wait") are split on whitespace.
func Open(ctx context.Context, path string) error {
	argv := editorCmd()
	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %q: %w", strings.Join(argv, " "), err)
	}
	return nil
}
