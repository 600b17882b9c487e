package application

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/tutor-scheduler/internal/scheduler"
)

// PaymentStatus is the billing state of a student.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentOverdue PaymentStatus = "OVERDUE"
)

// DefaultBillingStartDay is used when a payment is recorded without a billing day.
const DefaultBillingStartDay = 1

// Payment tracks a student's billing status and monthly billing day.
type Payment struct {
	Status          PaymentStatus
	BillingStartDay int
	// StatusDate is when Status was last changed.
	StatusDate time.Time
}

// DaysOverdue counts the days from the billing date the overdue status refers
// to until now. It is zero unless the status is OVERDUE.
func (p Payment) DaysOverdue(now time.Time) int {
	if p.Status != PaymentOverdue || p.StatusDate.IsZero() {
		return 0
	}
	billingDay := p.BillingStartDay
	if billingDay < 1 || billingDay > 31 {
		billingDay = DefaultBillingStartDay
	}

	set := p.StatusDate.In(now.Location())
	billed := billingDate(set.Year(), set.Month(), billingDay)
	// Up to and including the billing day, the unpaid bill is last month's.
	if set.Day() <= billingDay {
		billed = billingDate(set.Year(), set.Month()-1, billingDay)
	}

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return max(int(today.Sub(billed).Hours()/24), 0)
}

// billingDate returns the billing day in the given month, clamped to its
// length, as a UTC calendar date.
func billingDate(year int, month time.Month, day int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(day, last)-1)
}

// Student is a tutored contact together with their weekly lessons.
type Student struct {
	ID         string
	Name       string
	StudyYear  string
	Phone      string
	Email      string
	Address    string
	Subjects   []string
	Payment    Payment
	HourlyRate *decimal.Decimal
	Sessions   []scheduler.Session
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// WeeklyHours is the total lesson time per week.
func (s Student) WeeklyHours() time.Duration {
	var total time.Duration
	for _, session := range s.Sessions {
		total += session.Duration()
	}
	return total
}

// WeeklyFee is HourlyRate times WeeklyHours rounded to cents. ok is false when
// no rate is set.
func (s Student) WeeklyFee() (fee decimal.Decimal, ok bool) {
	if s.HourlyRate == nil {
		return decimal.Zero, false
	}
	minutes := decimal.NewFromInt(int64(s.WeeklyHours() / time.Minute))
	return s.HourlyRate.Mul(minutes).Div(decimal.NewFromInt(60)).Round(2), true
}

// clone returns a copy that shares no slices with s.
func (s Student) clone() Student {
	out := s
	out.Subjects = slices.Clone(s.Subjects)
	out.Sessions = slices.Clone(s.Sessions)
	if s.HourlyRate != nil {
		rate := *s.HourlyRate
		out.HourlyRate = &rate
	}
	return out
}

// SessionInput is a weekly session as supplied by a caller.
type SessionInput struct {
	Day   string
	Start string
	End   string
}

// StudentInput captures caller provided student fields.
type StudentInput struct {
	Name      string
	StudyYear string
	Phone     string
	Email     string
	Address   string
	Subjects  []string
	// HourlyRate is a decimal string such as "45.50"; nil leaves the rate unset.
	HourlyRate *string
	Sessions   []SessionInput
}

// StudentPatch lists the fields to change on an existing student. Nil fields
// are left as they are; a non-nil Sessions replaces the whole session set.
type StudentPatch struct {
	Name      *string
	StudyYear *string
	Phone     *string
	Email     *string
	Address   *string
	Sessions  *[]SessionInput
}

// StudentFilter narrows ListStudents. A student matches when any keyword
// equals one of the words of their name, ignoring case.
type StudentFilter struct {
	Keywords []string
}

// TimetableSlot is one distinct registered session and who holds it.
type TimetableSlot struct {
	Session   scheduler.Session
	Occupancy int
	Owners    []string
}
