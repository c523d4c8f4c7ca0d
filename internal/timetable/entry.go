package timetable

import "time"

// Entry is one class schedule slot. Its id is derived from class, day, and
// start time, so re-submitting the same slot overwrites rather than
// duplicating. Deletion is soft, via the active flag.
type Entry struct {
	ID          string     `json:"id"`
	ClassID     string     `json:"classId"`
	ClassName   string     `json:"className"`
	TeacherID   string     `json:"teacherId"`
	TeacherName string     `json:"teacherName"`
	Day         string     `json:"day"`       // weekday name, e.g. "Monday"
	StartTime   string     `json:"startTime"` // "HH:MM"
	EndTime     string     `json:"endTime"`
	Subject     string     `json:"subject"`
	Room        string     `json:"room,omitempty"`
	Active      bool       `json:"active"`
	AssignedAt  *time.Time `json:"assignedAt,omitempty"`
}

// EntryID derives the deterministic slot key.
func EntryID(classID, day, startTime string) string {
	return classID + "#" + day + "#" + startTime
}
