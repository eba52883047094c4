package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/calderae/atalaya/internal/alerts"
	"github.com/calderae/atalaya/internal/cli"
	"github.com/calderae/atalaya/internal/model"
)

func attendanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Record attendance and inspect absence streaks",
	}

	cmd.AddCommand(attendanceRecordCmd())
	cmd.AddCommand(attendanceStreakCmd())

	return cmd
}

func attendanceRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <student-code> <subject-code>",
		Short: "Record one attendance mark",
		Long: `Record a daily attendance mark for a student in a subject.

At most one mark exists per student, subject, and date. After an absence
is recorded, the escalation rule runs for that student/subject pair and
may open an alert.

Examples:
  atalaya attendance record 2019114001 MAT-101 --status ABSENT
  atalaya attendance record 2019114001 MAT-101 --status EXCUSED --date 2026-08-28 --note "medical leave"`,
		Args: cobra.ExactArgs(2),
		RunE: runAttendanceRecord,
	}

	cmd.Flags().String("status", "", "attendance status: PRESENT, ABSENT, EXCUSED, NOT_ENROLLED (required)")
	cmd.Flags().String("date", "", "mark date (YYYY-MM-DD, default today)")
	cmd.Flags().String("note", "", "free-form note")
	cmd.Flags().String("by", "", "who recorded the mark")
	_ = cmd.MarkFlagRequired("status")

	return cmd
}

func runAttendanceRecord(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rawStatus, _ := cmd.Flags().GetString("status")
	status := model.AttendanceStatus(strings.ToUpper(rawStatus))
	if !status.Valid() {
		return fmt.Errorf("invalid attendance status: %s", rawStatus)
	}

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
	subject, err := store.GetSubjectByCode(ctx, args[1])
	if err != nil {
		return err
	}

	note, _ := cmd.Flags().GetString("note")
	recordedBy, _ := cmd.Flags().GetString("by")

	mark := &model.AttendanceMark{
		StudentID:  student.ID,
		SubjectID:  subject.ID,
		Date:       date,
		Status:     status,
		Note:       note,
		RecordedBy: recordedBy,
	}
	if err := store.SaveAttendanceMark(ctx, mark); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recorded %s for %s in %s on %s", //nolint:forbidigo // User-facing output
		status, student.FullName(), subject.Name, date.Format("2006-01-02"))))

	// The escalation rule only reacts to absences.
	if status != model.AttendanceAbsent {
		return nil
	}

	alertEngine := alerts.NewEngine(store)
	alert, err := alertEngine.HandleAttendance(ctx, student.ID, subject.ID)
	if err != nil {
		return err
	}
	if alert != nil {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("Alert raised: %s", alert.Title))) //nolint:forbidigo // User-facing output
	}

	return nil
}

func attendanceStreakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streak <student-code> <subject-code>",
		Short: "Show the current consecutive absence streak",
		Args:  cobra.ExactArgs(2),
		RunE:  runAttendanceStreak,
	}
}

func runAttendanceStreak(cmd *cobra.Command, args []string) error {
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
	subject, err := store.GetSubjectByCode(ctx, args[1])
	if err != nil {
		return err
	}

	alertEngine := alerts.NewEngine(store)
	streak, err := alertEngine.Streak(ctx, student.ID, subject.ID)
	if err != nil {
		return err
	}

	fmt.Printf("%s has %d consecutive absence(s) in %s\n", student.FullName(), streak, subject.Name) //nolint:forbidigo // User-facing output
	return nil
}
