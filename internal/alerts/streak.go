package alerts

import (
	"context"
	"fmt"

	"github.com/calderae/atalaya/internal/model"
)

// Streak returns the current trailing-absence count for a (student,
// subject) pair: the number of consecutive Absent marks walking back from
// the most recent one. Any non-Absent mark (present, excused, not enrolled)
// breaks the streak. The count is over calendar marks, not calendar days;
// gaps in the class schedule neither break nor extend it.
func (e *Engine) Streak(ctx context.Context, studentID, subjectID int64) (int, error) {
	history, err := e.storage.GetAttendanceHistory(ctx, studentID, subjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to load attendance history: %w", err)
	}

	streak := 0
	for _, mark := range history {
		if mark.Status != model.AttendanceAbsent {
			break
		}
		streak++
	}
	return streak, nil
}
