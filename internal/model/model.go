package model

// Patient is the external input to schedule generation. It only lives for
// the duration of one Build call; the schedule keeps its own copy.
type Patient struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

// ScheduleEntry is one patient slot in the persisted schedule. Entries are
// immutable once generated; regeneration replaces the whole schedule.
type ScheduleEntry struct {
	ID            string `json:"id"`
	FullName      string `json:"fullName"`
	Phone         string `json:"phone"`
	ScheduledDate string `json:"scheduledDate"` // YYYY-MM-DD pickup day
	SendDate      string `json:"sendDate"`      // scheduledDate minus one day
	Text          string `json:"text"`
}

// DispatchResult is the typed outcome of one channel attempt. Via names the
// channel that produced the response ("error" when every channel failed at
// transport level).
type DispatchResult struct {
	OK     bool   `json:"ok"`
	Via    string `json:"via"`
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// SendLogEntry is one row of the append-only dispatch audit trail.
type SendLogEntry struct {
	ID     string         `json:"id"`
	Date   string         `json:"date"`
	Result DispatchResult `json:"result"`
	Count  int            `json:"count"`
	Auto   bool           `json:"auto,omitempty"`
	Type   string         `json:"type,omitempty"`
}
