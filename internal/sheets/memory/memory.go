// Package memory is an in-process sheet used for dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

type Store struct {
	mu     sync.Mutex
	rows   [][]any
	writes int
}

func New() *Store {
	return &Store{}
}

// WriteRows replaces the stored rows and returns a synthetic range reference.
func (s *Store) WriteRows(_ context.Context, rows [][]any) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("no rows to write")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make([][]any, len(rows))
	for i, r := range rows {
		s.rows[i] = append([]any(nil), r...)
	}
	s.writes++
	return fmt.Sprintf("mem!A1:%s%d", column(len(rows[0])), len(rows)), nil
}

// Rows returns a copy of the last written rows.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// column converts a 1-based column count to its A1 letter.
func column(n int) string {
	if n <= 0 {
		return "A"
	}
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}
