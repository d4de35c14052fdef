package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// execCmd runs command and returns its combined output.
func execCmd(ctx context.Context, command string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return output, fmt.Errorf("%s: %w", command, ctx.Err())
		}
		return output, fmt.Errorf("%s: %s: %w", command, strings.TrimSpace(string(output)), err)
	}
	return output, nil
}

// execStdout runs command and returns only its standard output. Standard
// error is kept apart and reported on failure.
func execStdout(ctx context.Context, command string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stdout.Bytes(), fmt.Errorf("%s: %w", command, ctx.Err())
		}
		return stdout.Bytes(), fmt.Errorf("%s: %s: %w", command, strings.TrimSpace(stderr.String()), err)
	}
	return stdout.Bytes(), nil
}

// stripWarnings removes the "warning:" lines MuPDF interleaves with its
// output.
func stripWarnings(output []byte) []byte {
	lines := strings.Split(string(output), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "warning:") {
			continue
		}
		kept = append(kept, line)
	}
	return []byte(strings.Join(kept, "\n"))
}
