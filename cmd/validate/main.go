// Command validate checks server configuration files before deployment.
// Each file named on the command line (default: configs/*.yaml) is parsed
// with unknown fields rejected and validated the same way the server does
// at startup. It checks:
//   - Listen port range
//   - Session id range and allocation attempts
//   - Idle sweep settings
//   - Kind catalog entries and the default kind
//   - Relay event names
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/richardl62/richards-old-games-server/game/config"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Messages contains informational lines; otherwise it
// lists the problems that were found.
type ValidationResult struct {
	File     string
	Valid    bool
	Messages []string
}

// validateConfig loads and validates a single configuration file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:     filepath.Base(filePath),
		Valid:    true,
		Messages: []string{},
	}

	cfg, err := config.Load(filePath)
	if err != nil {
		result.Valid = false
		result.Messages = problems(err)
		return result
	}

	s := cfg.Sessions
	result.Messages = append(result.Messages,
		fmt.Sprintf("✓ Listen address: %s", cfg.Addr()),
		fmt.Sprintf("✓ Session ids: %d-%d (%d attempts)", s.IDMin, s.IDMax, s.AllocationAttempts),
	)

	if s.IdleTTL > 0 {
		result.Messages = append(result.Messages,
			fmt.Sprintf("✓ Idle sessions removed after %s (checked every %s)", s.IdleTTL, s.SweepInterval))
	} else {
		result.Messages = append(result.Messages, "✓ Idle sweep disabled")
	}

	if names := cfg.KindNames(); names != nil {
		result.Messages = append(result.Messages,
			fmt.Sprintf("✓ Kinds: %s (default %s)", strings.Join(names, ", "), cfg.DefaultKind()))
	} else {
		result.Messages = append(result.Messages,
			fmt.Sprintf("✓ Kinds: any (default %s)", cfg.DefaultKind()))
	}

	result.Messages = append(result.Messages,
		fmt.Sprintf("✓ Relay events: %s", strings.Join(cfg.RelayEvents, ", ")))

	return result
}

// problems splits a load error into one line per problem.
func problems(err error) []string {
	msg := err.Error()
	if errors.Is(err, config.ErrInvalidConfig) {
		if _, rest, ok := strings.Cut(msg, config.ErrInvalidConfig.Error()+": "); ok {
			msg = rest
		}
	}

	var lines []string
	for _, line := range strings.Split(msg, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// main validates every file given, printing a concise report and exiting
// with non-zero status if any are invalid.
func main() {
	files := os.Args[1:]
	if len(files) == 0 {
		matches, err := filepath.Glob(filepath.Join("configs", "*.yaml"))
		if err != nil {
			fmt.Printf("Error finding config files: %v\n", err)
			os.Exit(1)
		}
		files = matches
	}
	if len(files) == 0 {
		fmt.Println("No configuration files found")
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Messages {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, problem := range result.Messages {
				fmt.Println("  ❌ " + problem)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
