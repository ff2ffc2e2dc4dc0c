package sqlite

import (
	"fmt"
	"time"

	"surveycore/pkg/domain"
)

func parseTimestamp(v string) (time.Time, error) {
	t, err := time.Parse(domain.TimestampLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
	}
	return t, nil
}
