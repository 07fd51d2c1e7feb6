package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/internal/knownissues"
)

func newKnownIssuesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "known-issues",
		Aliases: []string{"ki"},
		Short:   "Inspect and record human reviews of findings",
	}
	cmd.AddCommand(
		newKISummaryCmd(a),
		newKIListCmd(a),
		newKIShowCmd(a),
		newKISearchCmd(a),
		newKIAddCmd(a),
	)
	return cmd
}

func (a *app) store() *knownissues.Store {
	return knownissues.NewStore(a.cfg.Paths.KnownIssuesDir)
}

func newKISummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Count reviews per status and flag expired ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.store()
			out := cmd.OutOrStdout()
			if !s.Exists() {
				fmt.Fprintf(out, "No known issues directory at %s\n", s.Dir())
				return nil
			}
			sum, err := s.Summarize(time.Now())
			if err != nil {
				return err
			}
			bold := color.New(color.Bold)
			bold.Fprintf(out, "Known issues: %d\n", sum.Total)
			for _, st := range knownissues.Statuses {
				if n := sum.ByStatus[st]; n > 0 {
					fmt.Fprintf(out, "  %-16s %d\n", st, n)
				}
			}
			if n := sum.ByStatus["unknown"]; n > 0 {
				fmt.Fprintf(out, "  %-16s %d\n", "unknown", n)
			}
			if len(sum.Expired) > 0 {
				color.New(color.FgRed, color.Bold).Fprintf(out, "\nExpired reviews (%d):\n", len(sum.Expired))
				for _, is := range sum.Expired {
					fmt.Fprintf(out, "  %s (expired %s)\n", is.ProblemID, is.Expires)
				}
			}
			if len(sum.ExpiringSoon) > 0 {
				color.New(color.FgYellow, color.Bold).Fprintf(out, "\nExpiring within 30 days (%d):\n", len(sum.ExpiringSoon))
				for _, is := range sum.ExpiringSoon {
					fmt.Fprintf(out, "  %s (expires %s)\n", is.ProblemID, is.Expires)
				}
			}
			return nil
		},
	}
}

func newKIListCmd(a *app) *cobra.Command {
	var (
		status  string
		details bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reviews, optionally filtered by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if status != "" && !knownissues.ValidStatus(status) {
				return errs.New(errs.CodeCLIInputInvalid, fmt.Sprintf("invalid status %q (want one of %s)",
					status, strings.Join(knownissues.Statuses, ", ")))
			}
			issues, err := a.store().List(status)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(issues) == 0 {
				fmt.Fprintln(out, "No known issues found.")
				return nil
			}
			for _, is := range issues {
				if details {
					printIssue(out, is)
					fmt.Fprintln(out)
					continue
				}
				fmt.Fprintf(out, "%-40s %-16s %s\n", is.ProblemID, is.Status, is.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only list reviews with this status")
	cmd.Flags().BoolVar(&details, "details", false, "print every field of each review")
	return cmd
}

func newKIShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show PROBLEM_ID",
		Short: "Print the review recorded for a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			is, err := a.store().Lookup(args[0])
			if err != nil {
				if errs.HasCode(err, errs.CodeKnownIssueNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "No known issue recorded for %s\n", args[0])
					return nil
				}
				return err
			}
			printIssue(cmd.OutOrStdout(), is)
			return nil
		},
	}
}

func newKISearchCmd(a *app) *cobra.Command {
	var problemID string
	cmd := &cobra.Command{
		Use:   "search TERM...",
		Short: "Find reviews relevant to the given terms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := a.store().Search(args, problemID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintln(out, "No matching known issues.")
				return nil
			}
			for i, m := range matches {
				color.New(color.Bold).Fprintf(out, "%d. %s", i+1, m.ProblemID)
				fmt.Fprintf(out, " [%s] score %.1f\n", m.Status, m.RelevanceScore)
				if m.Title != "" {
					fmt.Fprintf(out, "   %s\n", m.Title)
				}
				if len(m.MatchReasons) > 0 {
					fmt.Fprintf(out, "   matched: %s\n", strings.Join(m.MatchReasons, "; "))
				}
				fmt.Fprintf(out, "   %s\n", m.HumanReasoning)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&problemID, "problem-id", "", "boost reviews whose ID resembles this problem ID")
	return cmd
}

func newKIAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Record a new review interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}
			is := knownissues.Issue{
				ProblemID: p.line("Problem ID: "),
				Title:     p.line("Title: "),
				Status: p.line(fmt.Sprintf("Status (%s) [%s]: ",
					strings.Join(knownissues.Statuses, ", "), knownissues.StatusNotApplicable)),
				HumanReasoning: p.line("Reasoning: "),
				Context:        p.lines("Context lines (blank line to finish):"),
				Evidence:       p.lines("Evidence lines (blank line to finish):"),
				ReviewedBy:     p.line("Reviewed by: "),
				Expires:        p.line("Expires (YYYY-MM-DD, optional): "),
			}
			if is.Expires != "" {
				if _, err := time.Parse(knownissues.DateLayout, is.Expires); err != nil {
					return errs.New(errs.CodeCLIInputInvalid, fmt.Sprintf("expires must be YYYY-MM-DD, got %q", is.Expires))
				}
			}
			path, err := a.store().Add(is, time.Now())
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}
}

func printIssue(out io.Writer, is knownissues.Issue) {
	color.New(color.Bold).Fprintln(out, is.ProblemID)
	if is.Title != "" {
		fmt.Fprintf(out, "  Title:       %s\n", is.Title)
	}
	fmt.Fprintf(out, "  Status:      %s\n", is.Status)
	fmt.Fprintf(out, "  Reviewed by: %s on %s\n", is.ReviewedBy, is.ReviewDate)
	if is.Expires != "" {
		fmt.Fprintf(out, "  Expires:     %s\n", is.Expires)
	}
	fmt.Fprintf(out, "  Reasoning:   %s\n", is.HumanReasoning)
	for _, c := range is.Context {
		fmt.Fprintf(out, "  Context:     %s\n", c)
	}
	for _, e := range is.Evidence {
		fmt.Fprintf(out, "  Evidence:    %s\n", e)
	}
}

// prompter reads answers line by line. EOF yields empty answers.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p prompter) line(prompt string) string {
	fmt.Fprint(p.out, prompt)
	s, _ := p.in.ReadString('\n')
	return strings.TrimSpace(s)
}

func (p prompter) lines(prompt string) []string {
	fmt.Fprintln(p.out, prompt)
	var out []string
	for {
		s, err := p.in.ReadString('\n')
		s = strings.TrimSpace(s)
		if s == "" {
			return out
		}
		out = append(out, s)
		if err != nil {
			return out
		}
	}
}
