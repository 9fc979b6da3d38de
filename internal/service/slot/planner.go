package slot

import (
	"fmt"
	"sort"
	"time"

	"github.com/jwalitptl/hms-core/internal/model"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
)

// ComputeSlots lays out the bookable offsets of the given blocks and marks
// the ones whose time string appears in booked. Blocks are expanded
// independently and the result is stable-sorted by time; overlapping blocks
// yield duplicate times.
//
// Inactive blocks and blocks that cannot advance are skipped, so a bad row
// never loops or fails the read.
func ComputeSlots(blocks []*model.ScheduleBlock, booked []string) []model.Slot {
	taken := make(map[string]struct{}, len(booked))
	for _, t := range booked {
		taken[t] = struct{}{}
	}

	slots := []model.Slot{}
	for _, b := range blocks {
		if b == nil || !b.IsActive {
			continue
		}
		start, err := toMinutes(b.StartTime)
		if err != nil {
			continue
		}
		end, err := toMinutes(b.EndTime)
		if err != nil {
			continue
		}
		step := b.SlotDurationMinutes + b.BufferMinutes
		if step <= 0 || b.SlotDurationMinutes <= 0 {
			continue
		}

		for cur := start; cur+b.SlotDurationMinutes <= end; cur += step {
			t := fromMinutes(cur)
			_, isTaken := taken[t]
			slots = append(slots, model.Slot{Time: t, Available: !isTaken})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Time < slots[j].Time
	})
	return slots
}

// ValidateBlock rejects blocks the planner could not lay out.
func ValidateBlock(b *model.ScheduleBlock) error {
	start, err := toMinutes(b.StartTime)
	if err != nil {
		return apperrors.Validation("start_time must be HH:MM", err)
	}
	end, err := toMinutes(b.EndTime)
	if err != nil {
		return apperrors.Validation("end_time must be HH:MM", err)
	}
	if b.DayOfWeek < 0 || b.DayOfWeek > 6 {
		return apperrors.Validation("day_of_week must be between 0 and 6", nil)
	}
	if b.SlotDurationMinutes <= 0 || b.SlotDurationMinutes+b.BufferMinutes <= 0 {
		return apperrors.Validation("slot duration plus buffer must be positive", nil)
	}
	if b.BufferMinutes < 0 {
		return apperrors.Validation("buffer_minutes cannot be negative", nil)
	}
	if end <= start {
		return apperrors.Validation("end_time must be after start_time", nil)
	}
	if start+b.SlotDurationMinutes > end {
		return apperrors.Validation(fmt.Sprintf("window %s-%s is shorter than one slot", b.StartTime, b.EndTime), nil)
	}
	return nil
}

func toMinutes(hhmm string) (int, error) {
	t, err := time.Parse(model.TimeLayout, hhmm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func fromMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
