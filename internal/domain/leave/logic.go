package leave

import "time"

const dateLayout = "2006-01-02"

// DateKey normalizes a timestamp to its calendar-day key, which is how the
// working-day counter matches holidays.
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// CountWorkingDays walks every calendar date from start to end inclusive and
// counts the chargeable ones: Monday through Friday, excluding the given
// public holidays. Zero is a valid result, not an error; callers decide
// whether an empty range is acceptable. start must not be after end.
func CountWorkingDays(start, end time.Time, publicHolidays map[string]struct{}) int {
	count := 0
	for d := truncateToDay(start); !d.After(truncateToDay(end)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		if _, holiday := publicHolidays[DateKey(d)]; holiday {
			continue
		}
		count++
	}
	return count
}

// Overlaps reports whether two inclusive date intervals intersect, using the
// canonical test s1 <= e2 && s2 <= e1.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	s1, e1 = truncateToDay(s1), truncateToDay(e1)
	s2, e2 = truncateToDay(s2), truncateToDay(e2)
	return !s1.After(e2) && !s2.After(e1)
}

// PolicyApplies reports whether a policy's role/department scope matches a
// user. An empty scope field applies to everyone.
func PolicyApplies(p LeavePolicy, roleID, departmentID string) bool {
	if p.RoleID != "" && p.RoleID != roleID {
		return false
	}
	if p.DepartmentID != "" && p.DepartmentID != departmentID {
		return false
	}
	return true
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
