// File: protocol/scanner.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Resumable HTTP/1.x request-head scanner over a VectoredBuffer.
//
// The scanner walks plaintext byte by byte and keeps its re-entry position
// as an absolute stream position, so input may end anywhere, including in
// the middle of a token or between CR and LF. Nothing is copied: request
// line parts and header fields are reported as spans into the buffer.

package protocol

import "github.com/momentics/hioload-tls/pool"

// Status is the outcome of one Scan call.
type Status uint8

const (
	// NeedMore means all buffered input was consumed without finishing a request.
	NeedMore Status = iota
	// RequestDone means one request, including any skipped body, was consumed.
	RequestDone
)

// RequestLine is the first line of a request.
type RequestLine struct {
	Method pool.Span
	Target pool.Span
	Minor  int
}

// HeaderField is one header line with surrounding whitespace trimmed from the value.
type HeaderField struct {
	Name  pool.Span
	Value pool.Span
}

// RequestConsumer receives scan events. Any returned error aborts the scan
// and is handed back from Scan unchanged.
type RequestConsumer interface {
	OnRequestLine(line RequestLine) error
	OnHeader(field HeaderField) error
	// OnHeadersFinished returns how many body bytes follow the head.
	// The scanner skips them before reporting RequestDone.
	OnHeadersFinished() (bodyLen int64, err error)
}

type scanState uint8

const (
	stLeadingNewline scanState = iota
	stMethod
	stTarget
	stVersion
	stLineStart
	stName
	stValueLeading
	stValue
	stValueLF
	stHeadEndLF
	stBody
	stDone
)

// Scanner holds the parse state of one request head at a time.
type Scanner struct {
	limits Constraints

	state    scanState
	pos      uint64 // next byte to examine
	start    uint64 // first byte of the request line
	tok      uint64 // first byte of the current token
	line     RequestLine
	version  versionState
	name     pool.Span
	valStart uint64
	valEnd   uint64 // one past the last non-whitespace value byte
	headers  int
	body     int64
}

// NewScanner creates a scanner positioned at pos.
func NewScanner(limits Constraints, pos uint64) *Scanner {
	s := &Scanner{limits: limits}
	s.Reset(pos)
	return s
}

// Reset prepares the scanner for the next request starting at pos.
func (s *Scanner) Reset(pos uint64) {
	*s = Scanner{limits: s.limits, pos: pos, start: pos, version: newVersionState()}
}

// Position returns the re-entry position: every byte before it has been scanned.
func (s *Scanner) Position() uint64 { return s.pos }

// Start returns the position of the current request's first byte.
func (s *Scanner) Start() uint64 { return s.start }

// Line returns the request line once it has been reported.
func (s *Scanner) Line() RequestLine { return s.line }

// InBody reports whether the scanner is discarding a request body.
func (s *Scanner) InBody() bool { return s.state == stBody }

// Done reports whether the current request has been fully consumed.
func (s *Scanner) Done() bool { return s.state == stDone }

// Scan resumes scanning from the re-entry position up to the buffer tail.
func (s *Scanner) Scan(buf *pool.VectoredBuffer, c RequestConsumer) (Status, error) {
	if s.pos < buf.Head() {
		return NeedMore, pool.ErrOffsetOutOfRange
	}
	for s.state != stDone {
		if s.state == stBody {
			avail := int64(buf.Tail() - s.pos)
			n := min(avail, s.body)
			s.pos += uint64(n)
			s.body -= n
			if s.body > 0 {
				return NeedMore, nil
			}
			s.state = stDone
			break
		}
		seg := buf.Segment(s.pos)
		if len(seg) == 0 {
			return NeedMore, nil
		}
		for _, b := range seg {
			if err := s.step(b, c); err != nil {
				return NeedMore, err
			}
			if s.state == stDone || s.state == stBody {
				break
			}
		}
	}
	return RequestDone, nil
}

// step consumes the byte at s.pos.
func (s *Scanner) step(b byte, c RequestConsumer) error {
	at := s.pos
	s.pos++
	if exceeds(s.limits.MaxHeaderBytes, int(s.pos-s.start)) {
		return tooLarge("request head too large")
	}
	switch s.state {
	case stLeadingNewline:
		if b == '\r' || b == '\n' {
			s.start = s.pos
			return nil
		}
		s.tok = at
		s.state = stMethod
		fallthrough
	case stMethod:
		switch {
		case isTchar(b):
		case b == ' ' && at > s.tok:
			s.line.Method = pool.Span{Start: s.tok, End: at}
			s.tok = s.pos
			s.state = stTarget
		default:
			return badRequest("invalid character in method")
		}
	case stTarget:
		switch {
		case isTargetChar(b):
			if exceeds(s.limits.MaxURILength, int(s.pos-s.tok)) {
				return &ScanError{Reason: ReasonURITooLong}
			}
		case b == ' ':
			if at == s.tok {
				return badRequest("empty request target")
			}
			s.line.Target = pool.Span{Start: s.tok, End: at}
			s.state = stVersion
		case b == '\r' || b == '\n':
			return &ScanError{Reason: ReasonHTTPVersionNotSupported, Detail: "missing protocol version"}
		default:
			return badRequest("invalid character in request target")
		}
	case stVersion:
		done, err := s.version.step(b)
		if err != nil {
			return err
		}
		if done {
			s.line.Minor = s.version.minor
			s.state = stLineStart
			if err := c.OnRequestLine(s.line); err != nil {
				return err
			}
		}
	case stLineStart:
		switch {
		case b == '\r':
			s.state = stHeadEndLF
		case b == '\n':
			return s.finishHead(c)
		case isWhitespace(b):
			return badRequest("obsolete line folding")
		case isTchar(b):
			s.tok = at
			s.state = stName
		default:
			return badRequest("invalid character in header name")
		}
	case stName:
		switch {
		case isTchar(b):
		case b == ':':
			s.name = pool.Span{Start: s.tok, End: at}
			s.valStart, s.valEnd = s.pos, s.pos
			s.state = stValueLeading
		default:
			return badRequest("invalid character in header name")
		}
		if exceeds(s.limits.MaxHeaderFieldLength, int(s.pos-s.tok)) {
			return tooLarge("header field too long")
		}
	case stValueLeading, stValue:
		if exceeds(s.limits.MaxHeaderFieldLength, int(s.pos-s.tok)) {
			return tooLarge("header field too long")
		}
		switch {
		case b == '\r':
			s.state = stValueLF
		case b == '\n':
			return s.finishField(c)
		case isWhitespace(b):
			if s.state == stValueLeading {
				s.valStart, s.valEnd = s.pos, s.pos
			}
		case isFieldValueChar(b):
			s.state = stValue
			s.valEnd = s.pos
		default:
			return badRequest("invalid character in header value")
		}
	case stValueLF:
		if b != '\n' {
			return badRequest("CR not followed by LF")
		}
		return s.finishField(c)
	case stHeadEndLF:
		if b != '\n' {
			return badRequest("CR not followed by LF")
		}
		return s.finishHead(c)
	}
	return nil
}

func (s *Scanner) finishField(c RequestConsumer) error {
	s.headers++
	if exceeds(s.limits.MaxHeaders, s.headers) {
		return tooLarge("too many header fields")
	}
	s.state = stLineStart
	return c.OnHeader(HeaderField{
		Name:  s.name,
		Value: pool.Span{Start: s.valStart, End: s.valEnd},
	})
}

func (s *Scanner) finishHead(c RequestConsumer) error {
	n, err := c.OnHeadersFinished()
	if err != nil {
		return err
	}
	if n < 0 {
		return badRequest("negative body length")
	}
	if n > 0 {
		s.body = n
		s.state = stBody
		return nil
	}
	s.state = stDone
	return nil
}
