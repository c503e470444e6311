package orchestrator

import (
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/layout"
)

// Assignment records which slot a team was written to.
type Assignment struct {
	Team  string
	Slot  rompatch.SlotID
	Label string
}

// Check is the verification result of one written field.
type Check struct {
	Slot   rompatch.SlotID
	Team   string
	Field  string
	Region layout.Region
	// Passed is true if the image holds exactly the bytes that were written.
	Passed bool
	// Changed is true if those bytes differ from the source image.
	Changed bool
}

func (c Check) String() string {
	status := "PASS"
	if !c.Passed {
		status = "FAIL"
	}
	change := "UNCHANGED"
	if c.Changed {
		change = "CHANGED"
	}
	return fmt.Sprintf("%s %-9s %-12s %-18s %s", status, change, c.Slot, c.Field, c.Region)
}

// Report describes everything a patch run did.
type Report struct {
	RunID  string
	State  State
	Target string

	SourcePath         string
	OutputPath         string
	SourceDigestBefore string
	SourceDigestAfter  string
	OutputDigest       string
	BasePatch          string

	Assignments []Assignment
	// Warnings holds every non-fatal problem: dropped teams and players,
	// truncated names, padding.
	Warnings []error
	// SlotErrors holds the slots that couldn't be written at all.
	SlotErrors *multierror.Error
	Checks     []Check
}

// Mismatches counts the fields that failed verification.
func (r *Report) Mismatches() int {
	total := 0
	for _, check := range r.Checks {
		if !check.Passed {
			total++
		}
	}
	return total
}

// SourceUntouched reports whether the source image was verifiably left as it
// was.
func (r *Report) SourceUntouched() bool {
	return r.SourceDigestBefore != "" && r.SourceDigestBefore == r.SourceDigestAfter
}

// Passed is true if the run finished, every slot was written, and every
// written field verified.
func (r *Report) Passed() bool {
	return r.State == Done && r.SlotErrors.ErrorOrNil() == nil && r.Mismatches() == 0
}

// VerificationError gives [rompatch.ErrVerificationMismatch] if any field
// failed verification, and nil otherwise.
func (r *Report) VerificationError() error {
	mismatches := r.Mismatches()
	if mismatches == 0 {
		return nil
	}
	return rompatch.ErrVerificationMismatch.WithMessage(
		fmt.Sprintf("%d of %d fields don't hold what was written", mismatches, len(r.Checks)))
}

// WriteTo writes the report as plain text.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var builder strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&builder, format+"\n", args...)
	}

	line("run:     %s", r.RunID)
	line("target:  %s", r.Target)
	line("source:  %s", r.SourcePath)
	line("  blake3 before: %s", r.SourceDigestBefore)
	line("  blake3 after:  %s", r.SourceDigestAfter)
	if r.SourceUntouched() {
		line("  source image untouched")
	} else {
		line("  WARNING: source image could not be verified as untouched")
	}
	line("output:  %s", r.OutputPath)
	line("  blake3: %s", r.OutputDigest)
	if r.BasePatch != "" {
		line("base patch: %s", r.BasePatch)
	}
	line("state:   %s", r.State)

	line("")
	line("assignments (%d):", len(r.Assignments))
	for _, a := range r.Assignments {
		line("  %-12s %-6s %s", a.Slot, a.Label, a.Team)
	}

	if len(r.Warnings) > 0 {
		line("")
		line("warnings (%d):", len(r.Warnings))
		for _, warning := range r.Warnings {
			line("  %s", warning)
		}
	}

	if failed := r.SlotErrors.ErrorOrNil(); failed != nil {
		line("")
		line("failed slots (%d):", len(r.SlotErrors.Errors))
		for _, err := range r.SlotErrors.Errors {
			line("  %s", err)
		}
	}

	line("")
	line("verification:")
	for _, check := range r.Checks {
		line("  %s", check)
	}

	line("")
	summary := "PASS"
	if !r.Passed() {
		summary = "FAIL"
	}
	line("%s: %d fields checked, %d mismatches", summary, len(r.Checks), r.Mismatches())

	n, err := io.WriteString(w, builder.String())
	if err != nil {
		return int64(n), rompatch.ErrIOFailed.Wrap(err)
	}
	return int64(n), nil
}
