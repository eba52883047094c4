// Package features assembles the flat feature record a scoring call needs:
// academic-period inputs from the caller, sociodemographic attributes from
// the student entity, and track/term context derived from the student's
// cohort group.
package features

import (
	"fmt"
	"strings"
	"time"

	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/model"
)

// AcademicInput carries the academic-period numeric fields. All four are
// required: they come from the caller and are never defaulted or imputed.
type AcademicInput struct {
	EnrolledSubjects *float64
	FailedSubjects   *float64
	SecondChance     *float64
	OverallAverage   *float64
}

// SocioOverride carries caller-supplied sociodemographic values. Every set
// field wins over the value stored on the student; unset fields fall back
// to storage.
type SocioOverride struct {
	Age            *float64
	Grade          *string
	Gender         *string
	SocioStratum   *string
	WorkOccupation *string
	LivesWith      *string
	Support        *string
	AdmissionMode  *string
	HighSchool     *string
}

// Assemble builds the feature record for one student. It only reads
// collaborator state. The cohort group (with its track and term resolved)
// supplies the derived categorical context; a cohort without a term leaves
// the term feature nil.
func Assemble(student *model.Student, cohort *model.CohortGroup, academic AcademicInput, override *SocioOverride, now time.Time) (model.FeatureRecord, error) {
	if student == nil {
		return nil, fmt.Errorf("%w: student is required", common.ErrInvalidInput)
	}
	if err := requireAcademic(academic); err != nil {
		return nil, err
	}

	record := model.NewFeatureRecord()
	record[model.FeatureEnrolled] = *academic.EnrolledSubjects
	record[model.FeatureFailed] = *academic.FailedSubjects
	record[model.FeatureSecondChance] = *academic.SecondChance
	record[model.FeatureAverage] = *academic.OverallAverage

	if cohort != nil {
		if cohort.Term != nil {
			record[model.FeatureTerm] = leadingToken(cohort.Term.Name)
		}
		if cohort.Track != nil {
			record[model.FeatureTrack] = cohort.Track.Name
		}
	}

	overrideString := func(key string, fromOverride *string, stored *string) {
		switch {
		case fromOverride != nil:
			record[key] = *fromOverride
		case stored != nil:
			record[key] = *stored
		}
	}
	var ov SocioOverride
	if override != nil {
		ov = *override
	}
	overrideString(model.FeatureGrade, ov.Grade, student.Grade)
	overrideString(model.FeatureGender, ov.Gender, student.Gender)
	overrideString(model.FeatureSocioStratum, ov.SocioStratum, student.SocioStratum)
	overrideString(model.FeatureWorkOccupation, ov.WorkOccupation, student.WorkOccupation)
	overrideString(model.FeatureLivesWith, ov.LivesWith, student.LivesWith)
	overrideString(model.FeatureSupport, ov.Support, student.FinancialSupport)
	overrideString(model.FeatureAdmissionMode, ov.AdmissionMode, student.AdmissionMode)
	overrideString(model.FeatureHighSchool, ov.HighSchool, student.HighSchoolType)

	switch {
	case ov.Age != nil:
		record[model.FeatureAge] = *ov.Age
	default:
		if age := student.Age(now); age != nil {
			record[model.FeatureAge] = float64(*age)
		}
	}

	return record, nil
}

func requireAcademic(academic AcademicInput) error {
	missing := []string{}
	if academic.EnrolledSubjects == nil {
		missing = append(missing, "enrolled subjects")
	}
	if academic.FailedSubjects == nil {
		missing = append(missing, "failed subjects")
	}
	if academic.SecondChance == nil {
		missing = append(missing, "second-chance exams")
	}
	if academic.OverallAverage == nil {
		missing = append(missing, "overall average")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing academic fields: %s", common.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// leadingToken exposes a term name as its first word only, the granularity
// the model was trained with ("First Semester 2026" -> "First").
func leadingToken(name string) any {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return nil
	}
	return fields[0]
}
