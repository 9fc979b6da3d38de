package sequence

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hms-core/internal/model"
)

// format describes how a periodic identifier kind is rendered.
type format struct {
	prefix string
	width  int
}

var periodicFormats = map[model.SequenceKind]format{
	model.SequenceKindAdmission: {prefix: "ADM", width: 4},
	model.SequenceKindInvoice:   {prefix: "INV", width: 4},
	model.SequenceKindPatient:   {prefix: "PAT", width: 5},
	model.SequenceKindRecord:    {prefix: "MRN", width: 5},
}

// FormatToken renders a doctor-day token, e.g. A-007. Values past 999 widen.
func FormatToken(n int64) string {
	return fmt.Sprintf("A-%03d", n)
}

// FormatPeriodic renders PREFIX-PERIOD-000N with n zero padded to width.
func FormatPeriodic(prefix, period string, n int64, width int) string {
	return fmt.Sprintf("%s-%s-%0*d", prefix, period, width, n)
}

// Period is the YYMM bucket of t.
func Period(t time.Time) string {
	return t.Format("0601")
}

func ScopeKey(parts ...string) string {
	return strings.Join(parts, ":")
}

// TokenScope is hospitalId:token:doctorId:YYYYMMDD.
func TokenScope(hospitalID, doctorID uuid.UUID, date time.Time) string {
	return ScopeKey(hospitalID.String(), string(model.SequenceKindToken), doctorID.String(), date.Format("20060102"))
}

// PeriodScope is hospitalId:kind:YYMM.
func PeriodScope(hospitalID uuid.UUID, kind model.SequenceKind, period string) string {
	return ScopeKey(hospitalID.String(), string(kind), period)
}
