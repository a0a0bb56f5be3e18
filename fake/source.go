// Author: momentics <momentics@gmail.com>

package fake

// Source is an in-memory plaintext source for ring tests.
type Source struct {
	data []byte
	// Chunk bounds a single ReadPlaintext; 0 means unbounded.
	Chunk int
}

// NewSource returns a source holding a copy of data.
func NewSource(data []byte) *Source {
	return &Source{data: append([]byte(nil), data...)}
}

// ReadPlaintext copies buffered bytes into p.
func (s *Source) ReadPlaintext(p []byte) (int, error) {
	if s.Chunk > 0 && len(p) > s.Chunk {
		p = p[:s.Chunk]
	}
	n := copy(p, s.data)
	s.data = s.data[n:]
	return n, nil
}

// PlaintextLen returns the bytes left.
func (s *Source) PlaintextLen() int { return len(s.data) }
