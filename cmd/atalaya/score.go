package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/calderae/atalaya/internal/cli"
	"github.com/calderae/atalaya/internal/features"
)

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <student-code>",
		Short: "Score one student for dropout risk",
		Long: `Score a single student with the loaded predictive model.

Academic inputs come from flags; sociodemographic values default to the
student's stored profile and can be overridden per field. The score is
persisted as immutable history and the alert engine runs on the result.

Examples:
  atalaya score 2019114001 --enrolled 6 --failed 1 --average 3.4
  atalaya score 2019114001 --enrolled 5 --average 4.1 --stratum 2`,
		Args: cobra.ExactArgs(1),
		RunE: runScore,
	}

	// Academic inputs
	cmd.Flags().Float64("enrolled", 0, "subjects enrolled this term")
	cmd.Flags().Float64("failed", 0, "subjects previously failed")
	cmd.Flags().Float64("second-chance", 0, "subjects in second examination")
	cmd.Flags().Float64("average", 0, "overall grade average")

	// Sociodemographic overrides
	cmd.Flags().Float64("age", 0, "override the student's age")
	cmd.Flags().String("grade", "", "override the grade level")
	cmd.Flags().String("gender", "", "override the gender")
	cmd.Flags().String("stratum", "", "override the socioeconomic stratum")
	cmd.Flags().String("occupation", "", "override the work occupation")
	cmd.Flags().String("lives-with", "", "override who the student lives with")
	cmd.Flags().String("support", "", "override the financial support source")
	cmd.Flags().String("admission", "", "override the admission mode")
	cmd.Flags().String("high-school", "", "override the high school type")

	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	code := args[0]

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	scoring, _, err := newScoringEngine(store)
	if err != nil {
		return err
	}

	student, err := store.GetStudentByCode(ctx, code)
	if err != nil {
		return err
	}

	academic := features.AcademicInput{
		EnrolledSubjects: float64Flag(cmd, "enrolled"),
		FailedSubjects:   float64Flag(cmd, "failed"),
		SecondChance:     float64Flag(cmd, "second-chance"),
		OverallAverage:   float64Flag(cmd, "average"),
	}

	override := &features.SocioOverride{
		Age:            float64Flag(cmd, "age"),
		Grade:          stringFlag(cmd, "grade"),
		Gender:         stringFlag(cmd, "gender"),
		SocioStratum:   stringFlag(cmd, "stratum"),
		WorkOccupation: stringFlag(cmd, "occupation"),
		LivesWith:      stringFlag(cmd, "lives-with"),
		Support:        stringFlag(cmd, "support"),
		AdmissionMode:  stringFlag(cmd, "admission"),
		HighSchool:     stringFlag(cmd, "high-school"),
	}

	outcome, err := scoring.ScoreStudent(ctx, student.ID, academic, override)
	if err != nil {
		return err
	}

	fmt.Println(cli.RenderScoreResult(student, outcome.Score, outcome.Alert)) //nolint:forbidigo // User-facing output
	return nil
}

// float64Flag returns the flag value only when the caller set it.
func float64Flag(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	value, _ := cmd.Flags().GetFloat64(name)
	return &value
}

// stringFlag returns the flag value only when the caller set it.
func stringFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	value, _ := cmd.Flags().GetString(name)
	if value == "" {
		return nil
	}
	return &value
}
