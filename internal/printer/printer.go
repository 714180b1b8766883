// Package printer renders CLI output: colored status messages and the
// engine's answers with their verification summaries.
package printer

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/dyluth/quorum/internal/factcheck"
	"github.com/dyluth/quorum/internal/orchestrator"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	// Color definitions
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Printf("⚠️  %s", msg)
	} else {
		yellow.Print(msg)
	}
}

// Error creates a formatted error message with title, explanation, and suggestions
// Prints the formatted error to stderr with colors and returns a simple error for Cobra
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)
	fmt.Fprintf(os.Stderr, "%s\n", explanation)

	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(os.Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(os.Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}

// Answer renders an engine answer: the final text, the verification
// summary, and — in verbose mode — every annotation and intermediate
// artifact count.
func Answer(a *orchestrator.Answer, verbose bool) {
	cyan.Printf("Protocol: %s (mode: %s)\n\n", a.Protocol, a.Mode)

	if a.FinalText == "" {
		Warning("No answer could be produced.\n")
	} else {
		fmt.Println(a.FinalText)
	}
	fmt.Println()

	if a.FactCheck != nil {
		printVerification(a.FactCheck)
	}

	if a.Degraded {
		Warning("Answer is degraded; see notes below.\n")
	}
	if a.LoopbackAttempts > 0 {
		Info("Recovery attempts: %d\n", a.LoopbackAttempts)
	}

	if verbose {
		for _, note := range a.Annotations {
			faint.Printf("  note: %s\n", note)
		}
		if a.Artifacts != nil {
			faint.Printf("  artifacts: %d responses, %d critiques, %d improvements\n",
				len(a.Artifacts.InitialResponses), len(a.Artifacts.Critiques), len(a.Artifacts.Improvements))
		}
		for key := range a.Scratchpad {
			faint.Printf("  scratchpad: %s\n", key)
		}
	}
}

func printVerification(check *factcheck.Result) {
	if check.IsValid {
		Success("Verified: %.0f%% of %d claims supported\n",
			check.VerificationScore*100, len(check.Claims))
		return
	}

	Warning("Verification: score %.2f, %d of %d claims failed\n",
		check.VerificationScore, len(check.FailedClaims), len(check.Claims))
	for _, claim := range check.FailedClaims {
		faint.Printf("  [%s] %s\n", claim.Status, claim.Text)
	}
}
