package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/calderae/atalaya/internal/alerts"
	"github.com/calderae/atalaya/internal/cli"
	"github.com/calderae/atalaya/internal/model"
	"github.com/calderae/atalaya/internal/service"
	"github.com/calderae/atalaya/internal/tui"
)

func alertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List and manage at-risk alerts",
	}

	cmd.AddCommand(alertsListCmd())
	cmd.AddCommand(alertsUpdateCmd())
	cmd.AddCommand(alertsReviewCmd())

	return cmd
}

func alertsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		Long: `Display alerts, most recent first.

By default each student collapses to their most recent alert with a count
of the others; --all expands the full list.`,
		RunE: runAlertsList,
	}

	cmd.Flags().String("student", "", "only alerts for this student code")
	cmd.Flags().String("state", "", "filter by state (ACTIVE, IN_REVIEW, RESOLVED, DISCARDED)")
	cmd.Flags().String("type", "", "filter by type (EARLY, CRITICAL, DROPOUT_RISK)")
	cmd.Flags().String("band", "", "filter by risk band (LOW, MEDIUM, HIGH, CRITICAL)")
	cmd.Flags().Bool("all", false, "show every alert instead of collapsing per student")

	return cmd
}

func runAlertsList(cmd *cobra.Command, _ []string) error {
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

	filter, err := alertFilterFromFlags(cmd, store)
	if err != nil {
		return err
	}

	alertList, err := store.GetAlerts(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to get alerts: %w", err)
	}

	if len(alertList) == 0 {
		fmt.Println(cli.InfoStyle.Render("No alerts match.")) //nolint:forbidigo // User-facing output
		return nil
	}

	showAll, _ := cmd.Flags().GetBool("all")
	extra := map[int64]int{}
	if !showAll {
		alertList, extra = collapsePerStudent(alertList)
	}

	fmt.Println(cli.FormatTitle("Alerts")) //nolint:forbidigo // User-facing output
	fmt.Println()                         //nolint:forbidigo // User-facing output

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("Student"),
		headerStyle.Render("Type"),
		headerStyle.Render("Band"),
		headerStyle.Render("State"),
		headerStyle.Render("Created"),
		headerStyle.Render("Title")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	names := map[int64]string{}
	for _, alert := range alertList {
		name, ok := names[alert.StudentID]
		if !ok {
			student, studentErr := store.GetStudentByID(ctx, alert.StudentID)
			if studentErr != nil {
				name = fmt.Sprintf("#%d", alert.StudentID)
			} else {
				name = student.FullName()
			}
			names[alert.StudentID] = name
		}

		title := alert.Title
		if n := extra[alert.StudentID]; n > 0 {
			title += fmt.Sprintf(" (+%d additional alert(s))", n)
		}

		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			alert.ID, name, alert.Type, cli.StyleBand(alert.Band), alert.State,
			alert.CreatedAt.Format("2006-01-02"), title); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}

// collapsePerStudent keeps each student's most recent alert. The input is
// already sorted most recent first, so the first alert per student wins.
func collapsePerStudent(alertList []model.Alert) ([]model.Alert, map[int64]int) {
	collapsed := make([]model.Alert, 0, len(alertList))
	extra := make(map[int64]int)
	seen := make(map[int64]bool)

	for _, alert := range alertList {
		if seen[alert.StudentID] {
			extra[alert.StudentID]++
			continue
		}
		seen[alert.StudentID] = true
		collapsed = append(collapsed, alert)
	}

	return collapsed, extra
}

func alertFilterFromFlags(cmd *cobra.Command, store service.Storage) (service.AlertFilter, error) {
	var filter service.AlertFilter

	if code, _ := cmd.Flags().GetString("student"); code != "" {
		student, err := store.GetStudentByCode(cmd.Context(), code)
		if err != nil {
			return filter, err
		}
		filter.StudentID = &student.ID
	}

	if raw, _ := cmd.Flags().GetString("state"); raw != "" {
		state := model.AlertState(strings.ToUpper(raw))
		if !state.Valid() {
			return filter, fmt.Errorf("invalid alert state: %s", raw)
		}
		filter.State = &state
	}

	if raw, _ := cmd.Flags().GetString("type"); raw != "" {
		alertType := model.AlertType(strings.ToUpper(raw))
		filter.Type = &alertType
	}

	if raw, _ := cmd.Flags().GetString("band"); raw != "" {
		band := model.RiskBand(strings.ToUpper(raw))
		if !band.Valid() {
			return filter, fmt.Errorf("invalid risk band: %s", raw)
		}
		filter.Band = &band
	}

	return filter, nil
}

func alertsUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <alert-id>",
		Short: "Move an alert to a new lifecycle state",
		Long: `Apply a human state transition to an alert.

Valid targets are IN_REVIEW, RESOLVED, and DISCARDED. Resolved and
discarded alerts record who closed them and when.

Examples:
  atalaya alerts update 42 --state IN_REVIEW --by "tutor p.gomez"
  atalaya alerts update 42 --state RESOLVED --by "tutor p.gomez" --note "met with the student"`,
		Args: cobra.ExactArgs(1),
		RunE: runAlertsUpdate,
	}

	cmd.Flags().String("state", "", "target state (required)")
	cmd.Flags().String("by", "", "who is applying the transition (required)")
	cmd.Flags().String("note", "", "resolution note")
	_ = cmd.MarkFlagRequired("state")
	_ = cmd.MarkFlagRequired("by")

	return cmd
}

func runAlertsUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	alertID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid alert id: %s", args[0])
	}

	rawState, _ := cmd.Flags().GetString("state")
	actor, _ := cmd.Flags().GetString("by")
	noteText, _ := cmd.Flags().GetString("note")

	var note *string
	if noteText != "" {
		note = &noteText
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

	alertEngine := alerts.NewEngine(store)
	alert, err := alertEngine.Transition(ctx, alertID, model.AlertState(strings.ToUpper(rawState)), actor, note)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Alert %d is now %s", alert.ID, alert.State))) //nolint:forbidigo // User-facing output
	return nil
}

func alertsReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review open alerts interactively",
		Long:  `Walk open alerts in a terminal interface and resolve or discard them with notes.`,
		RunE:  runAlertsReview,
	}

	cmd.Flags().String("reviewer", "", "name recorded on resolved and discarded alerts")

	return cmd
}

func runAlertsReview(cmd *cobra.Command, _ []string) error {
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

	reviewer, _ := cmd.Flags().GetString("reviewer")

	return tui.Run(ctx,
		tui.WithStorage(store),
		tui.WithAlertEngine(alerts.NewEngine(store)),
		tui.WithReviewer(reviewer),
	)
}
