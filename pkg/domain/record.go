package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Response CSV column names. Participant fields are flattened into every
// row so that the backup file alone can answer resume lookups.
const (
	ColPairID        = "ID"
	ColSentenceA     = "Sentence A"
	ColSentenceB     = "Sentence B"
	ColRating        = "Rating"
	ColAnsweredAt    = "Answered At"
	ColParticipantID = "Participant ID"
	ColName          = "Name"
	ColBirthYear     = "Birth Year"
	ColPhone         = "Phone"
	ColStartedAt     = "Started At"
	ColAge           = "Age"
	ColGender        = "Gender"
	ColAffiliation   = "Affiliation"
	ColEmail         = "Email"
	ColBankAccount   = "Bank Account"
	ColNationalID    = "National ID"
)

var baseColumns = []string{
	ColPairID, ColSentenceA, ColSentenceB, ColRating, ColAnsweredAt,
	ColParticipantID, ColName, ColBirthYear, ColPhone, ColStartedAt,
}

var extendedColumns = []string{
	ColAge, ColGender, ColAffiliation, ColEmail, ColBankAccount, ColNationalID,
}

// CSVHeader returns the response column names. The extended variant
// appends the additional demographic columns.
func CSVHeader(extended bool) []string {
	header := append([]string(nil), baseColumns...)
	if extended {
		header = append(header, extendedColumns...)
	}
	return header
}

// CSVRecord flattens the response into one row matching CSVHeader order.
func (r Response) CSVRecord(extended bool) []string {
	p := r.Participant
	record := []string{
		strconv.Itoa(r.PairID),
		r.SentenceA,
		r.SentenceB,
		strconv.Itoa(r.Rating),
		r.AnsweredAt.Format(TimestampLayout),
		p.ID,
		p.Name,
		strconv.Itoa(p.BirthYear),
		p.Phone,
		p.StartedAt.Format(TimestampLayout),
	}
	if extended {
		record = append(record,
			strconv.Itoa(p.Age), p.Gender, p.Affiliation, p.Email, p.BankAccount, p.NationalID)
	}
	return record
}

// ParseResponseRecord reconstructs a response from a CSV row using the
// header for column positions. Unknown columns are ignored and absent
// extended columns leave zero values, so minimal and extended files parse
// with the same code path.
func ParseResponseRecord(header, record []string) (Response, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	field := func(name string) string {
		if i, ok := index[name]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}

	pairID, err := strconv.Atoi(field(ColPairID))
	if err != nil {
		return Response{}, fmt.Errorf("parse %s: %w", ColPairID, err)
	}
	rating, err := strconv.Atoi(field(ColRating))
	if err != nil {
		return Response{}, fmt.Errorf("parse %s: %w", ColRating, err)
	}
	answeredAt, err := time.Parse(TimestampLayout, field(ColAnsweredAt))
	if err != nil {
		return Response{}, fmt.Errorf("parse %s: %w", ColAnsweredAt, err)
	}

	p := Participant{
		ID:          field(ColParticipantID),
		Name:        field(ColName),
		Phone:       field(ColPhone),
		Gender:      field(ColGender),
		Affiliation: field(ColAffiliation),
		Email:       field(ColEmail),
		BankAccount: field(ColBankAccount),
		NationalID:  field(ColNationalID),
	}
	if v := field(ColBirthYear); v != "" {
		if p.BirthYear, err = strconv.Atoi(v); err != nil {
			return Response{}, fmt.Errorf("parse %s: %w", ColBirthYear, err)
		}
	}
	if v := field(ColAge); v != "" {
		if p.Age, err = strconv.Atoi(v); err != nil {
			return Response{}, fmt.Errorf("parse %s: %w", ColAge, err)
		}
	}
	if v := field(ColStartedAt); v != "" {
		if p.StartedAt, err = time.Parse(TimestampLayout, v); err != nil {
			return Response{}, fmt.Errorf("parse %s: %w", ColStartedAt, err)
		}
	}

	return Response{
		PairID:      pairID,
		SentenceA:   field(ColSentenceA),
		SentenceB:   field(ColSentenceB),
		Rating:      rating,
		AnsweredAt:  answeredAt,
		Participant: p,
	}, nil
}
