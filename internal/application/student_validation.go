package application

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/tutor-scheduler/internal/scheduler"
)

var (
	namePattern      = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} ]*$`)
	studyYearPattern = regexp.MustCompile(`^(PRI[1-6]|SEC[1-5]|JC[1-2]|POLY[1-3]|UNI[1-5])$`)
	phonePattern     = regexp.MustCompile(`^\d{3,}$`)
	emailPattern     = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N}+_.-]*@[\p{L}\p{N}]([\p{L}\p{N}-]*[\p{L}\p{N}])?(\.[\p{L}\p{N}]([\p{L}\p{N}-]*[\p{L}\p{N}])?)*$`)
)

// Subjects is the vocabulary of subject tags a student may carry.
var Subjects = []string{
	"MATH", "ENG", "SCI", "PHY", "CHEM", "BIO",
	"HIST", "GEOG", "LIT", "CHI", "MALAY", "TAMIL",
	"POA", "ECONS", "ART", "MUSIC", "COMSCI",
}

// MaxFreeSlotHours bounds free slot queries to the daily operating window.
const MaxFreeSlotHours = int((scheduler.ClosingTime - scheduler.OpeningTime) / 60)

func normalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func normalizeStudentInput(input StudentInput) StudentInput {
	out := StudentInput{
		Name:       normalizeName(input.Name),
		StudyYear:  strings.ToUpper(strings.TrimSpace(input.StudyYear)),
		Phone:      strings.TrimSpace(input.Phone),
		Email:      strings.TrimSpace(input.Email),
		Address:    strings.TrimSpace(input.Address),
		HourlyRate: input.HourlyRate,
		Sessions:   input.Sessions,
	}
	for _, subject := range input.Subjects {
		out.Subjects = append(out.Subjects, normalizeSubject(subject))
	}
	return out
}

func validateStudentInput(input StudentInput) *ValidationError {
	vErr := &ValidationError{}
	validateName(input.Name, vErr)
	validateStudyYear(input.StudyYear, vErr)
	validatePhone(input.Phone, vErr)
	validateEmail(input.Email, vErr)
	validateAddress(input.Address, vErr)

	seen := make(map[string]bool, len(input.Subjects))
	for _, subject := range input.Subjects {
		if !slices.Contains(Subjects, subject) {
			vErr.add("subjects", fmt.Sprintf("unknown subject %q; must be one of %s", subject, strings.Join(Subjects, ", ")))
			break
		}
		if seen[subject] {
			vErr.add("subjects", fmt.Sprintf("subject %s listed twice", subject))
			break
		}
		seen[subject] = true
	}

	if input.HourlyRate != nil {
		if _, err := parseHourlyRate(*input.HourlyRate); err != nil {
			var inner *ValidationError
			if errors.As(err, &inner) {
				vErr.merge(inner)
			}
		}
	}
	return vErr
}

func validateName(name string, vErr *ValidationError) {
	switch {
	case name == "":
		vErr.add("name", "name is required")
	case !namePattern.MatchString(name):
		vErr.add("name", "name should only contain alphanumeric characters and spaces")
	}
}

func validateStudyYear(year string, vErr *ValidationError) {
	if !studyYearPattern.MatchString(year) {
		vErr.add("study_year", "study year must be one of PRI1-6, SEC1-5, JC1-2, POLY1-3, UNI1-5")
	}
}

func validatePhone(phone string, vErr *ValidationError) {
	if !phonePattern.MatchString(phone) {
		vErr.add("phone", "phone number should only contain digits and be at least 3 digits long")
	}
}

func validateEmail(email string, vErr *ValidationError) {
	if !emailPattern.MatchString(email) {
		vErr.add("email", "email should be of the format local-part@domain")
	}
}

func validateAddress(address string, vErr *ValidationError) {
	if address == "" {
		vErr.add("address", "address is required")
	}
}

func normalizeSubject(subject string) string {
	return strings.ToUpper(strings.TrimSpace(subject))
}

// parseHourlyRate accepts a non-negative amount with at most two decimal places.
func parseHourlyRate(value string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Decimal{}, fieldError("hourly_rate", "hourly rate must be a number such as 45 or 45.50")
	}
	if rate.IsNegative() {
		return decimal.Decimal{}, fieldError("hourly_rate", "hourly rate cannot be negative")
	}
	if !rate.Equal(rate.Truncate(2)) {
		return decimal.Decimal{}, fieldError("hourly_rate", "hourly rate can have at most 2 decimal places")
	}
	return rate, nil
}

func parsePaymentStatus(value string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case PaymentPending, PaymentPaid, PaymentOverdue:
		return status, nil
	}
	return "", fieldError("status", "payment status must be one of PENDING, PAID, OVERDUE")
}

// parseSessions builds sessions in input order. The first invalid session is
// reported with its index.
func parseSessions(inputs []SessionInput) ([]scheduler.Session, error) {
	sessions := make([]scheduler.Session, 0, len(inputs))
	for i, in := range inputs {
		s, err := scheduler.NewSession(in.Day, in.Start, in.End)
		if err != nil {
			return nil, fmt.Errorf("sessions[%d]: %w", i, err)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func sortedSessions(sessions []scheduler.Session) []scheduler.Session {
	out := slices.Clone(sessions)
	slices.SortFunc(out, scheduler.Session.Compare)
	return out
}

func validateFreeSlotHours(hours int) error {
	if hours < 1 || hours > MaxFreeSlotHours {
		return fieldError("hours", fmt.Sprintf("duration must be a whole number of hours between 1 and %d", MaxFreeSlotHours))
	}
	return nil
}
