package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// TerminalPrompter asks questions on a line-oriented terminal.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer

	title   *color.Color
	flagged *color.Color
	dim     *color.Color
}

// NewTerminalPrompter reads answers from in and writes prompts to out.
// Colors are only used when out is a terminal.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	p := &TerminalPrompter{
		in:      bufio.NewReader(in),
		out:     out,
		title:   color.New(color.FgCyan, color.Bold),
		flagged: color.New(color.FgYellow, color.Bold),
		dim:     color.New(color.Faint),
	}
	if !isTerminal(out) {
		p.title.DisableColor()
		p.flagged.DisableColor()
		p.dim.DisableColor()
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// IsInteractive reports whether stdin is attached to a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func (p *TerminalPrompter) Present(_ context.Context, h Header) error {
	status := "looks complete"
	if h.NeedsReview {
		status = "NEEDS REVIEW"
	}
	_, err := fmt.Fprintf(p.out, "\n%s\n%s\n",
		p.title.Sprintf("=== %s (%s)", h.RelPath, status),
		p.dim.Sprintf("variant=%s anchors=%d avg_conf=%.1f", h.Variant, h.Anchors, h.Confidence),
	)
	return err
}

func (p *TerminalPrompter) AskField(ctx context.Context, fp FieldPrompt) (string, error) {
	label := fmt.Sprintf("%-15s", fp.Column)
	current := fp.Current
	if current == "" {
		current = "<empty>"
	}
	if fp.NeedsReview {
		label = p.flagged.Sprint(label + " [?]")
	}
	if _, err := fmt.Fprintf(p.out, "%s %s\n  > ", label, p.dim.Sprint(current)); err != nil {
		return "", err
	}
	line, err := p.readLine(ctx)
	if err == io.EOF {
		return "", nil
	}
	return line, err
}

func (p *TerminalPrompter) Confirm(ctx context.Context, question string, defaultYes bool) (bool, error) {
	hint := "[Y/n]"
	if !defaultYes {
		hint = "[y/N]"
	}
	for {
		if _, err := fmt.Fprintf(p.out, "%s %s ", question, hint); err != nil {
			return false, err
		}
		line, err := p.readLine(ctx)
		if err == io.EOF {
			return defaultYes, nil
		}
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

func (p *TerminalPrompter) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
