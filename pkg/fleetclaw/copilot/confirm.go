// confirm.go implements the terminal confirmation prompt. Anything short
// of an explicit "yes" (interruption, closed stdin, a non-interactive
// terminal) is a decline; state-changing operations never proceed on
// ambiguity.
package copilot

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// TerminalConfirmer prompts on the controlling terminal via huh forms.
type TerminalConfirmer struct{}

// NewTerminalConfirmer creates the standard interactive confirmer.
func NewTerminalConfirmer() *TerminalConfirmer {
	return &TerminalConfirmer{}
}

// Confirm shows a single yes/no prompt for one operation.
func (t *TerminalConfirmer) Confirm(ctx context.Context, description string) bool {
	return t.run(ctx, "Approve this operation?", description)
}

// ConfirmBatch itemizes every operation and asks once for the whole batch.
func (t *TerminalConfirmer) ConfirmBatch(ctx context.Context, descriptions []string) bool {
	var sb strings.Builder
	for i, d := range descriptions {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, d)
	}
	title := fmt.Sprintf("Proceed with all %d operations?", len(descriptions))
	return t.run(ctx, title, sb.String())
}

func (t *TerminalConfirmer) run(ctx context.Context, title, description string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		// No human attached: fail closed.
		return false
	}

	approved := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative("Approve").
			Negative("Decline").
			Value(&approved),
	))
	if err := form.RunWithContext(ctx); err != nil {
		// Ctrl-C, EOF, timeout: all count as decline.
		return false
	}
	return approved
}
