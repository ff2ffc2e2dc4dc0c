// Package domain defines the core survey entities, the session state
// machine, and the persistence contracts used by surveycore.
package domain

import "time"

// TimestampLayout is the wall-clock format used in persisted records.
const TimestampLayout = "2006-01-02 15:04:05"

// SentencePair is one unit of comparison: two sentences under a stable
// numeric ID. Catalog rows are immutable once loaded.
type SentencePair struct {
	ID        int    `json:"id"`
	SentenceA string `json:"sentence_a"`
	SentenceB string `json:"sentence_b"`
}

// Participant identifies a respondent across sessions. The ID is derived
// from intake fields; the struct is immutable after intake submission.
type Participant struct {
	ID        string    `json:"participant_id"`
	Name      string    `json:"name"`
	BirthYear int       `json:"birth_year"`
	Phone     string    `json:"phone"`
	StartedAt time.Time `json:"started_at"`

	// Extended intake variant fields. Zero values when the extended
	// variant is disabled.
	Age         int    `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
	Email       string `json:"email,omitempty"`
	BankAccount string `json:"bank_account,omitempty"`
	NationalID  string `json:"national_id,omitempty"`
}

// Response records one similarity judgment. Responses are append-only and
// never mutated or deleted.
type Response struct {
	PairID      int         `json:"pair_id"`
	SentenceA   string      `json:"sentence_a"`
	SentenceB   string      `json:"sentence_b"`
	Rating      int         `json:"rating"`
	AnsweredAt  time.Time   `json:"answered_at"`
	Participant Participant `json:"participant"`
}

// RatingMin and RatingMax bound the similarity scale.
const (
	RatingMin = 1
	RatingMax = 7
	// RatingDefault is the pre-selected midpoint-leaning choice.
	RatingDefault = 4
)

// RatingLabels maps each rating value to its display label, in scale order.
var RatingLabels = []string{
	"1 - 완전히 다름",
	"2 - 매우 다름",
	"3 - 꽤 다름",
	"4 - 비슷함",
	"5 - 꽤 비슷함",
	"6 - 매우 비슷함",
	"7 - 거의 동일함",
}

// ValidRating reports whether r is on the 1..7 scale.
func ValidRating(r int) bool {
	return r >= RatingMin && r <= RatingMax
}

// ConsentStatements is the fixed ordered list of explanatory statements.
// The survey start action is gated on every statement being acknowledged.
var ConsentStatements = []string{
	"자율주행차 운전자들의 태도를 반영한 문장들을 두 개씩 제시합니다.",
	"응답자는 두 문장이 얼마나 유사한지를 1점(완전히 다름)에서 7점(거의 동일함)까지 주관적으로 판단하여 평가합니다.",
	"총 문장쌍 수는 300개이며, 설문 시간은 약 1.5시간~2시간이 소요됩니다.",
	"가능한 한 응답을 중단하지 않고 한 번에 완료해 주세요.",
}
