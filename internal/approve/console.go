package approve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(9)
	findingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	blockStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	bodyStyle    = lipgloss.NewStyle().PaddingLeft(2)
)

// Console serves queued reviews interactively in the terminal.
type Console struct {
	Queue  *Queue
	Out    io.Writer
	Logger *slog.Logger
}

// Run pulls previews and collects decisions until ctx is canceled.
func (c *Console) Run(ctx context.Context) error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	for {
		p, err := c.Queue.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		fmt.Fprintln(out, renderPreview(p))
		d, err := c.prompt(p)
		if err != nil {
			// An aborted form is a refusal, not an approval.
			if c.Logger != nil {
				c.Logger.Warn("review prompt failed, discarding", "message_id", string(p.MessageID), "error", err)
			}
			d = Decision{Outcome: OutcomeDiscard}
		}
		if submitErr := c.Queue.Submit(p.MessageID, d); submitErr != nil && c.Logger != nil {
			c.Logger.Warn("submit decision", "message_id", string(p.MessageID), "error", submitErr)
		}
	}
}

func (c *Console) prompt(p Preview) (Decision, error) {
	choice := "approve"
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Dispatch this reply?").
			Options(
				huh.NewOption("Send it", "approve"),
				huh.NewOption("Edit the body first", "edit"),
				huh.NewOption("Save as draft", "save-draft"),
				huh.NewOption("Discard", "discard"),
			).
			Value(&choice),
	))
	if err := form.Run(); err != nil {
		return Decision{}, fmt.Errorf("run decision form: %w", err)
	}

	switch choice {
	case "edit":
		body := p.Body
		edit := huh.NewForm(huh.NewGroup(
			huh.NewText().
				Title("Reply body").
				Description("The edited body is re-scanned before it can be sent.").
				Value(&body),
		))
		if err := edit.Run(); err != nil {
			return Decision{}, fmt.Errorf("run edit form: %w", err)
		}
		return Decision{Outcome: OutcomeEdit, EditedBody: body}, nil
	case "save-draft":
		return Decision{Outcome: OutcomeSaveDraft}, nil
	case "discard":
		return Decision{Outcome: OutcomeDiscard}, nil
	default:
		return Decision{Outcome: OutcomeApprove}, nil
	}
}

func renderPreview(p Preview) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("── reply awaiting approval ──"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("To:"), p.To)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("From:"), p.From)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Subject:"), p.Subject)
	if len(p.Findings) > 0 {
		b.WriteString(labelStyle.Render("Findings:"))
		for _, m := range p.Findings {
			style := findingStyle
			note := "advisory"
			if m.Kind.Blocking() {
				style = blockStyle
				note = "blocking"
			}
			fmt.Fprintf(&b, " %s", style.Render(fmt.Sprintf("%s(%s)", m.Kind, note)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(bodyStyle.Render(p.Body))
	b.WriteString("\n")
	return b.String()
}
