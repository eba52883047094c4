package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/calderae/atalaya/internal/cli"
	"github.com/calderae/atalaya/internal/service"
)

func studentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Inspect students and their risk history",
	}

	cmd.AddCommand(studentsListCmd())
	cmd.AddCommand(studentsShowCmd())
	cmd.AddCommand(studentsAddCmd())

	return cmd
}

func studentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all students",
		RunE:  runStudentsList,
	}
}

func runStudentsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	students, err := store.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}

	if len(students) == 0 {
		fmt.Println(cli.InfoStyle.Render("No students in the database.")) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Println(cli.FormatTitle("Students")) //nolint:forbidigo // User-facing output
	fmt.Println()                            //nolint:forbidigo // User-facing output

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		headerStyle.Render("Code"),
		headerStyle.Render("Name"),
		headerStyle.Render("Current Band"),
		headerStyle.Render("Probability")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range students {
		student := &students[i]
		band := "-"
		probability := "-"
		if latest, latestErr := store.GetLatestRiskScore(ctx, student.ID); latestErr == nil && latest != nil {
			band = cli.StyleBand(latest.Band)
			probability = fmt.Sprintf("%.2f%%", latest.Probability*100)
		}

		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			student.Code, student.FullName(), band, probability); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}

func studentsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <student-code>",
		Short: "Show one student's profile and risk evolution",
		Args:  cobra.ExactArgs(1),
		RunE:  runStudentsShow,
	}

	cmd.Flags().Int("limit", 0, "cap the number of history rows (0 = all)")

	return cmd
}

func runStudentsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	student, err := store.GetStudentByCode(ctx, args[0])
	if err != nil {
		return err
	}

	profile := fmt.Sprintf("  • Code: %s\n", student.Code) +
		fmt.Sprintf("  • Name: %s", student.FullName())
	if cohort, cohortErr := store.GetCohortGroup(ctx, student.CohortGroupID); cohortErr == nil {
		profile += fmt.Sprintf("\n  • Group: %s", cohort.Name)
		if cohort.Track != nil {
			profile += fmt.Sprintf(" (%s)", cohort.Track.Name)
		}
	}
	fmt.Println(cli.RenderBox("Student", profile)) //nolint:forbidigo // User-facing output

	limit, _ := cmd.Flags().GetInt("limit")
	scores, err := store.GetRiskScores(ctx, service.ScoreFilter{StudentID: &student.ID, Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to get score history: %w", err)
	}

	if len(scores) == 0 {
		fmt.Println(cli.InfoStyle.Render("No risk scores recorded yet.")) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Println(cli.FormatTitle("Risk Evolution")) //nolint:forbidigo // User-facing output
	fmt.Println()                                  //nolint:forbidigo // User-facing output

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("Date"),
		headerStyle.Render("Probability"),
		headerStyle.Render("Band"),
		headerStyle.Render("Kind"),
		headerStyle.Render("Model")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Storage returns most recent first; history reads better oldest first.
	for i := len(scores) - 1; i >= 0; i-- {
		score := &scores[i]
		if _, err := fmt.Fprintf(w, "%s\t%.2f%%\t%s\t%s\t%s\n",
			score.ScoreDate.Format("2006-01-02"), score.Probability*100,
			cli.StyleBand(score.Band), score.Kind, score.ModelVersion); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}
