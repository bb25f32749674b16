package remotedb

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// writeEnvKey replaces the key's line in the env file, or appends one when
// absent. Every unrelated line, comments included, is written back verbatim
// in its original order, so repeated saves of the same value are no-ops at
// the byte level.
func writeEnvKey(path, key, value string) error {
	var lines []string
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		lines = strings.SplitAfter(string(data), "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
	case os.IsNotExist(err):
		// First save creates the file.
	default:
		return fmt.Errorf("remotedb: read %s: %w", path, err)
	}

	newLine := key + "=" + value + "\n"
	found := false
	for i, line := range lines {
		if strings.HasPrefix(line, key+"=") {
			lines[i] = newLine
			found = true
		}
	}
	if !found {
		if n := len(lines); n > 0 && !strings.HasSuffix(lines[n-1], "\n") {
			lines[n-1] += "\n"
		}
		lines = append(lines, newLine)
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "")), 0o644); err != nil {
		return fmt.Errorf("remotedb: write %s: %w", path, err)
	}
	return nil
}

// readEnvKey returns the key's current value from the env file, or "" when
// the file or key is absent.
func readEnvKey(path, key string) (string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("remotedb: read %s: %w", path, err)
	}
	return values[key], nil
}
