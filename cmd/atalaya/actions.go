package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/calderae/atalaya/internal/alerts"
	"github.com/calderae/atalaya/internal/cli"
	"github.com/calderae/atalaya/internal/service"
)

func actionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Record and list follow-up interventions",
	}

	cmd.AddCommand(actionsAddCmd())
	cmd.AddCommand(actionsListCmd())

	return cmd
}

func actionsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <student-code>",
		Short: "Record a follow-up action for a student",
		Long: `Record an intervention taken for a student, such as a tutoring
session or a counseling referral. The action attaches to the student's
most recent risk score; students who have never been scored cannot
receive actions.

Examples:
  atalaya actions add 2019114001 --description "Interview with the counseling office"
  atalaya actions add 2019114001 --description "Academic tutoring" --date 2026-08-28 --by "tutor p.gomez"`,
		Args: cobra.ExactArgs(1),
		RunE: runActionsAdd,
	}

	cmd.Flags().String("description", "", "what was done (required)")
	cmd.Flags().String("date", "", "action date (YYYY-MM-DD, default today)")
	cmd.Flags().String("by", "", "who recorded the action")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func runActionsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	description, _ := cmd.Flags().GetString("description")
	recordedBy, _ := cmd.Flags().GetString("by")

	now := time.Now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if rawDate, _ := cmd.Flags().GetString("date"); rawDate != "" {
		parsed, err := time.Parse("2006-01-02", rawDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		date = parsed
	}

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

	alertEngine := alerts.NewEngine(store)
	action, err := alertEngine.RecordAction(ctx, student.ID, description, date, recordedBy)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recorded action %d for %s (score %d)", //nolint:forbidigo // User-facing output
		action.ID, student.FullName(), action.RiskScoreID)))
	return nil
}

func actionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List follow-up actions, most recent first",
		RunE:  runActionsList,
	}

	cmd.Flags().String("student", "", "only actions for this student code")
	cmd.Flags().Int64("score", 0, "only actions attached to this risk score id")
	cmd.Flags().Int("limit", 50, "cap the number of rows (0 = all)")

	return cmd
}

func runActionsList(cmd *cobra.Command, _ []string) error {
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

	var filter service.ActionFilter
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	if code, _ := cmd.Flags().GetString("student"); code != "" {
		student, studentErr := store.GetStudentByCode(ctx, code)
		if studentErr != nil {
			return studentErr
		}
		filter.StudentID = &student.ID
	}
	if scoreID, _ := cmd.Flags().GetInt64("score"); scoreID != 0 {
		filter.RiskScoreID = &scoreID
	}

	actions, err := store.GetActions(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list actions: %w", err)
	}
	if len(actions) == 0 {
		fmt.Println(cli.InfoStyle.Render("No actions recorded.")) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Println(cli.FormatTitle("Follow-up Actions")) //nolint:forbidigo // User-facing output
	fmt.Println()                                     //nolint:forbidigo // User-facing output

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("Student"),
		headerStyle.Render("Date"),
		headerStyle.Render("Score"),
		headerStyle.Render("Description")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	names := map[int64]string{}
	for _, action := range actions {
		name, ok := names[action.StudentID]
		if !ok {
			student, studentErr := store.GetStudentByID(ctx, action.StudentID)
			if studentErr != nil {
				name = fmt.Sprintf("#%d", action.StudentID)
			} else {
				name = student.FullName()
			}
			names[action.StudentID] = name
		}

		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
			action.ID, name, action.Date.Format("2006-01-02"),
			action.RiskScoreID, action.Description); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}
