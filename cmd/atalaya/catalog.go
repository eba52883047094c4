package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/calderae/atalaya/internal/cli"
	"github.com/calderae/atalaya/internal/model"
)

// The catalog commands cover the minimum needed to get a working database:
// tracks, terms, cohort groups, subjects, and individual students.

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage tracks, terms, cohort groups, and subjects",
	}

	cmd.AddCommand(catalogAddTrackCmd())
	cmd.AddCommand(catalogAddTermCmd())
	cmd.AddCommand(catalogAddGroupCmd())
	cmd.AddCommand(catalogAddSubjectCmd())

	return cmd
}

func catalogAddTrackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-track <name>",
		Short: "Add a program track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			track, err := store.CreateTrack(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Track %q created with id %d", track.Name, track.ID))) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}

func catalogAddTermCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-term <name>",
		Short: "Add an academic term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			term, err := store.CreateTerm(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Term %q created with id %d", term.Name, term.ID))) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}

func catalogAddGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-group <name>",
		Short: "Add a cohort group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			trackID, _ := cmd.Flags().GetInt64("track")
			termID, _ := cmd.Flags().GetInt64("term")

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			var term *int64
			if termID != 0 {
				term = &termID
			}
			group, err := store.CreateCohortGroup(ctx, args[0], trackID, term)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Cohort group %q created with id %d", group.Name, group.ID))) //nolint:forbidigo // User-facing output
			return nil
		},
	}

	cmd.Flags().Int64("track", 0, "track id the group belongs to (required)")
	cmd.Flags().Int64("term", 0, "term id the group runs in")
	_ = cmd.MarkFlagRequired("track")

	return cmd
}

func catalogAddSubjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-subject <code>",
		Short: "Add a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				name = args[0]
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			subject, err := store.CreateSubject(ctx, args[0], name)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Subject %s (%s) created with id %d", subject.Code, subject.Name, subject.ID))) //nolint:forbidigo // User-facing output
			return nil
		},
	}

	cmd.Flags().String("name", "", "display name (defaults to the code)")

	return cmd
}

func studentsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <code>",
		Short: "Add a student to a cohort group",
		Long: `Register one student.

Sociodemographic fields are optional; anything left unset stays null and
is imputed at scoring time, or filled later by a batch file.

Examples:
  atalaya students add 2019114001 --first-name Ana --last-name Diaz --group 3
  atalaya students add 2019114002 --first-name Luis --last-name Mora --group 3 --birth-date 2001-04-17 --gender F`,
		Args: cobra.ExactArgs(1),
		RunE: runStudentsAdd,
	}

	cmd.Flags().String("first-name", "", "first name")
	cmd.Flags().String("last-name", "", "last name")
	cmd.Flags().Int64("group", 0, "cohort group id (required)")
	cmd.Flags().String("birth-date", "", "birth date (YYYY-MM-DD)")
	cmd.Flags().String("gender", "", "gender")
	cmd.Flags().String("grade", "", "grade level")
	cmd.Flags().String("stratum", "", "socioeconomic stratum")
	cmd.Flags().String("occupation", "", "work occupation")
	cmd.Flags().String("lives-with", "", "who the student lives with")
	cmd.Flags().String("support", "", "financial support source")
	cmd.Flags().String("admission", "", "admission mode")
	cmd.Flags().String("high-school", "", "high school type")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

func runStudentsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	groupID, _ := cmd.Flags().GetInt64("group")
	// Fail early on a bad group id instead of on the foreign key.
	if _, err := store.GetCohortGroup(ctx, groupID); err != nil {
		return err
	}

	firstName, _ := cmd.Flags().GetString("first-name")
	lastName, _ := cmd.Flags().GetString("last-name")

	student := &model.Student{
		Code:             args[0],
		FirstName:        firstName,
		LastName:         lastName,
		CohortGroupID:    groupID,
		Gender:           stringFlag(cmd, "gender"),
		Grade:            stringFlag(cmd, "grade"),
		SocioStratum:     stringFlag(cmd, "stratum"),
		WorkOccupation:   stringFlag(cmd, "occupation"),
		LivesWith:        stringFlag(cmd, "lives-with"),
		FinancialSupport: stringFlag(cmd, "support"),
		AdmissionMode:    stringFlag(cmd, "admission"),
		HighSchoolType:   stringFlag(cmd, "high-school"),
	}

	if rawDate, _ := cmd.Flags().GetString("birth-date"); rawDate != "" {
		parsed, parseErr := time.Parse("2006-01-02", rawDate)
		if parseErr != nil {
			return fmt.Errorf("invalid birth date format (use YYYY-MM-DD): %w", parseErr)
		}
		student.BirthDate = &parsed
	}

	if err := store.CreateStudent(ctx, student); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Student %s (%s) created with id %d", //nolint:forbidigo // User-facing output
		student.Code, student.FullName(), student.ID)))
	return nil
}

// closeStorage logs instead of failing; commands are already done with
// their writes when it runs.
func closeStorage(store interface{ Close() error }) {
	if err := store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}
