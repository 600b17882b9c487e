package persistence

import "time"

// Student is a tutored contact as stored.
type Student struct {
	ID                string
	Name              string
	StudyYear         string
	Phone             string
	Email             string
	Address           string
	Subjects          []string
	PaymentStatus     string
	BillingStartDay   int
	PaymentStatusDate time.Time
	HourlyRate        *string
	Sessions          []SessionSlot
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SessionSlot is one weekly lesson of a student. Day is a three letter symbol,
// Start and End are HHmm strings.
type SessionSlot struct {
	Day   string
	Start string
	End   string
}
