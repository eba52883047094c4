package main

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/calderae/atalaya/internal/cli"
	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/engine"
	"github.com/calderae/atalaya/internal/features"
	"github.com/calderae/atalaya/internal/model"
)

// codeColumn is the student-code column every batch file must carry.
const codeColumn = "Codigo"

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file.csv>",
		Short: "Score a CSV of students in one run",
		Long: `Score every student listed in a CSV file.

The file needs a Codigo column with student codes plus the academic
columns the model was trained on (Mat, Rep, 2T, Prom, edad). Optional
sociodemographic columns override and refresh the stored student profile.
Rows with unknown codes are reported as errors while the rest of the
batch continues.

Examples:
  atalaya batch cohort-2026-1.csv
  atalaya batch cohort-2026-1.csv --requested-by "wellbeing office"`,
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}

	cmd.Flags().String("requested-by", "", "who requested this batch run")
	_ = viper.BindPFlag("batch.requested_by", cmd.Flags().Lookup("requested-by"))

	cmd.AddCommand(batchListCmd())
	cmd.AddCommand(batchShowCmd())

	return cmd
}

func batchListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List past batch runs",
		Args:  cobra.NoArgs,
		RunE:  runBatchList,
	}
}

func runBatchList(cmd *cobra.Command, _ []string) error {
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

	batches, err := store.ListScoreBatches(ctx)
	if err != nil {
		return fmt.Errorf("failed to list batches: %w", err)
	}
	if len(batches) == 0 {
		fmt.Println(cli.InfoStyle.Render("No batches recorded yet.")) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Println(cli.FormatTitle("Score Batches")) //nolint:forbidigo // User-facing output
	fmt.Println()                                 //nolint:forbidigo // User-facing output

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("File"),
		headerStyle.Render("Status"),
		headerStyle.Render("Scored"),
		headerStyle.Render("L/M/H/C"),
		headerStyle.Render("Created")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range batches {
		batch := &batches[i]
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d/%d/%d/%d\t%s\n",
			batch.ID, batch.FileName, batch.Status,
			batch.TotalScored, batch.TotalRows,
			batch.TotalLow, batch.TotalMedium, batch.TotalHigh, batch.TotalCritical,
			batch.CreatedAt.Format("2006-01-02 15:04")); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}

func batchShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show the details of one batch run",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatchShow,
	}
}

func runBatchShow(cmd *cobra.Command, args []string) error {
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

	batch, err := store.GetScoreBatch(ctx, args[0])
	if err != nil {
		return err
	}

	details := fmt.Sprintf("  • File: %s\n", batch.FileName) +
		fmt.Sprintf("  • Status: %s\n", batch.Status) +
		fmt.Sprintf("  • Scored: %d of %d rows\n", batch.TotalScored, batch.TotalRows) +
		fmt.Sprintf("  • Bands: %d low, %d medium, %d high, %d critical\n",
			batch.TotalLow, batch.TotalMedium, batch.TotalHigh, batch.TotalCritical) +
		fmt.Sprintf("  • Model: %s\n", batch.ModelVersion) +
		fmt.Sprintf("  • Created: %s", batch.CreatedAt.Format("2006-01-02 15:04"))
	if batch.RequestedBy != "" {
		details += fmt.Sprintf("\n  • Requested by: %s", batch.RequestedBy)
	}
	fmt.Println(cli.RenderBox(fmt.Sprintf("Batch %s", batch.ID), details)) //nolint:forbidigo // User-facing output

	if batch.ErrorSummary != "" {
		fmt.Println(cli.FormatWarning("Row errors:")) //nolint:forbidigo // User-facing output
		fmt.Println(batch.ErrorSummary)               //nolint:forbidigo // User-facing output
	}

	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	filePath := args[0]

	rows, err := readBatchFile(filePath)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println(cli.FormatWarning("The file has no data rows; nothing to score.")) //nolint:forbidigo // User-facing output
		return nil
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

	scoring, _, err := newScoringEngine(store)
	if err != nil {
		return err
	}

	requestedBy := viper.GetString("batch.requested_by")

	interruptHandler := cli.NewInterruptHandler(nil)
	ctx = interruptHandler.HandleInterrupts(ctx, true)

	bar := cli.NewScoringProgressBar(os.Stdout, len(rows))
	progress := func(done, total int) {
		if err := bar.Set(done); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}

	result, err := scoring.ScoreBatch(ctx, filepath.Base(filePath), requestedBy, rows, progress)
	if err != nil {
		return err
	}

	fmt.Println(cli.RenderBatchSummary(result)) //nolint:forbidigo // User-facing output
	return nil
}

// readBatchFile parses the CSV into batch rows. Row numbers refer to file
// lines, counting the header as line 1.
func readBatchFile(path string) ([]engine.BatchRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("Failed to close batch file", "error", closeErr)
		}
	}()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	if _, ok := columns[codeColumn]; !ok {
		return nil, fmt.Errorf("%w: batch file is missing the %s column", common.ErrInvalidInput, codeColumn)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	rows := make([]engine.BatchRow, 0, len(records))
	for i, record := range records {
		line := i + 2

		code := strings.TrimSpace(cell(record, columns, codeColumn))
		if code == "" {
			return nil, fmt.Errorf("%w: row %d has an empty %s", common.ErrInvalidInput, line, codeColumn)
		}

		academic := features.AcademicInput{
			EnrolledSubjects: numericCell(record, columns, model.FeatureEnrolled),
			FailedSubjects:   numericCell(record, columns, model.FeatureFailed),
			SecondChance:     numericCell(record, columns, model.FeatureSecondChance),
			OverallAverage:   numericCell(record, columns, model.FeatureAverage),
		}

		override := &features.SocioOverride{
			Age:            numericCell(record, columns, model.FeatureAge),
			Grade:          textCell(record, columns, model.FeatureGrade),
			Gender:         textCell(record, columns, model.FeatureGender),
			SocioStratum:   textCell(record, columns, model.FeatureSocioStratum),
			WorkOccupation: textCell(record, columns, model.FeatureWorkOccupation),
			LivesWith:      textCell(record, columns, model.FeatureLivesWith),
			Support:        textCell(record, columns, model.FeatureSupport),
			AdmissionMode:  textCell(record, columns, model.FeatureAdmissionMode),
			HighSchool:     textCell(record, columns, model.FeatureHighSchool),
		}

		rows = append(rows, engine.BatchRow{
			StudentCode: code,
			Academic:    academic,
			Override:    override,
			Row:         line,
		})
	}

	return rows, nil
}

func cell(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func textCell(record []string, columns map[string]int, name string) *string {
	value := strings.TrimSpace(cell(record, columns, name))
	if value == "" {
		return nil
	}
	return &value
}

func numericCell(record []string, columns map[string]int, name string) *float64 {
	value := strings.TrimSpace(cell(record, columns, name))
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		// Unparseable cells behave like missing values.
		slog.Debug("Ignoring unparseable numeric cell", "column", name, "value", value)
		return nil
	}
	return &parsed
}
