// Package catalog loads the fixed sentence-pair table that drives the
// survey. The file is read once per process and cached; there is no
// hot-reload, so every session sees the same ordered sequence.
package catalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"surveycore/pkg/domain"
)

// DefaultPath is the conventional catalog location.
const DefaultPath = "sentence_pairs_attitude.csv"

// Expected catalog column order.
var header = []string{"ID", "Sentence A", "Sentence B"}

// Catalog is the immutable in-memory pair table.
type Catalog struct {
	pairs []domain.SentencePair
}

// Load reads and validates the catalog CSV. A missing or malformed file is
// a startup failure; there is no recovery path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("catalog %s is empty", path)
	}
	if err := checkHeader(rows[0]); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	pairs := make([]domain.SentencePair, 0, len(rows)-1)
	for i, row := range rows[1:] {
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("catalog %s row %d: parse ID: %w", path, i+2, err)
		}
		pairs = append(pairs, domain.SentencePair{ID: id, SentenceA: row[1], SentenceB: row[2]})
	}
	return &Catalog{pairs: pairs}, nil
}

func checkHeader(row []string) error {
	if len(row) != len(header) {
		return fmt.Errorf("expected %d columns, got %d", len(header), len(row))
	}
	for i, name := range header {
		if row[i] != name {
			return fmt.Errorf("expected column %q at position %d, got %q", name, i, row[i])
		}
	}
	return nil
}

// Len returns the fixed pair count N.
func (c *Catalog) Len() int { return len(c.pairs) }

// Pairs returns the ordered pair table. The slice is shared and must be
// treated as read-only.
func (c *Catalog) Pairs() []domain.SentencePair { return c.pairs }

// CachedLoader loads the catalog at most once for the process lifetime and
// hands the same table to every session.
type CachedLoader struct {
	path string
	once sync.Once
	cat  *Catalog
	err  error
}

// NewCachedLoader returns a loader for path (DefaultPath when empty).
func NewCachedLoader(path string) *CachedLoader {
	if path == "" {
		path = DefaultPath
	}
	return &CachedLoader{path: path}
}

// Catalog returns the cached table, loading it on first use.
func (l *CachedLoader) Catalog() (*Catalog, error) {
	l.once.Do(func() {
		l.cat, l.err = Load(l.path)
	})
	return l.cat, l.err
}
