package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/calderae/atalaya/internal/model"
	"github.com/calderae/atalaya/internal/service"
)

// RenderScoreResult renders one scoring outcome as a boxed summary.
func RenderScoreResult(student *model.Student, score *model.RiskScore, alert *model.Alert) string {
	body := fmt.Sprintf("  • Student: %s (%s)\n", student.FullName(), student.Code) +
		fmt.Sprintf("  • Dropout probability: %.2f%%\n", score.Probability*100) +
		fmt.Sprintf("  • Risk band: %s\n", StyleBand(score.Band)) +
		fmt.Sprintf("  • Model: %s", score.ModelVersion)

	if alert != nil {
		body += "\n" + WarningStyle.Render(fmt.Sprintf("  %s Alert raised: %s", AlertIcon, alert.Title))
	}

	return RenderBox("Risk Score", body)
}

// RenderBatchSummary renders the completion box for a batch scoring run.
func RenderBatchSummary(result *service.BatchResult) string {
	summary := ChartIcon + " Results:\n" +
		fmt.Sprintf("  • Rows read: %d\n", result.TotalRows) +
		fmt.Sprintf("  • Students scored: %d\n", result.Processed) +
		fmt.Sprintf("  • Low: %d  Medium: %d  High: %d  Critical: %d\n",
			result.TotalLow, result.TotalMedium, result.TotalHigh, result.TotalCritical) +
		fmt.Sprintf("  • Alerts created: %d\n", result.AlertsCreated) +
		fmt.Sprintf("  • Time taken: %s", result.Duration.Round(time.Second))

	if len(result.Errors) > 0 {
		summary += "\n\n" + WarningStyle.Render(fmt.Sprintf("%d row(s) failed:", len(result.Errors)))
		for _, rowErr := range result.Errors {
			summary += fmt.Sprintf("\n  row %d (%s): %s", rowErr.Row, rowErr.StudentCode, rowErr.Message)
		}
	}

	return RenderBox("Batch Scoring Complete", summary)
}

// NewScoringProgressBar builds the progress bar shown during batch scoring.
func NewScoringProgressBar(writer io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Scoring students...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}
