package domain

import "fmt"

// phoneSuffixSentinel replaces the phone suffix when fewer than four
// characters are available.
const phoneSuffixSentinel = "XXXX"

// GenerateParticipantID derives the participant identifier from intake
// fields: name, birth year, and the last four characters of the phone
// number joined with underscores. The function is pure and deterministic;
// it enforces no uniqueness, so two respondents sharing all three inputs
// collide silently.
func GenerateParticipantID(name string, birthYear int, phone string) string {
	suffix := phoneSuffixSentinel
	if len(phone) >= 4 {
		suffix = phone[len(phone)-4:]
	}
	return fmt.Sprintf("%s_%d_%s", name, birthYear, suffix)
}
