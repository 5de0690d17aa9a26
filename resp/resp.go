// Package resp implements an incremental decoder for the RESP wire protocol.
//
// Unlike a bufio.Reader-based decoder, Parse never blocks and never assumes a
// contiguous stream: it is fed arbitrary byte fragments as they arrive off the
// wire and returns either a completed value plus whatever bytes follow it, or
// a continuation state to resume with on the next fragment. This lets a
// connection driver own exactly one goroutine and one buffer per socket read,
// with no blocking read calls embedded in the parser itself.
package resp

import (
	"bytes"

	"github.com/Nordix/eredis/internal/bytesutil"
)

// Type tags the kind of value a Reply holds.
type Type uint8

const (
	SimpleString Type = iota
	Error
	Integer
	BulkString
	Nil
	Array
	NilArray
)

func (t Type) String() string {
	switch t {
	case SimpleString:
		return "SimpleString"
	case Error:
		return "Error"
	case Integer:
		return "Integer"
	case BulkString:
		return "BulkString"
	case Nil:
		return "Nil"
	case Array:
		return "Array"
	case NilArray:
		return "NilArray"
	default:
		return "Unknown"
	}
}

// Code is the outcome classification paired with every completed value.
type Code uint8

const (
	OK Code = iota
	Err
)

// Value is a single decoded RESP value, possibly nested.
type Value struct {
	Type  Type
	Str   []byte  // SimpleString, Error, BulkString
	Int   int64   // Integer
	Array []Value // Array
}

// String renders Str as a string. For types that don't carry Str (Integer,
// Nil, Array, NilArray) it returns the empty string; callers that don't know
// the type should switch on it first.
func (v Value) String() string {
	return string(v.Str)
}

// arrayFrame tracks one level of an in-progress nested array.
type arrayFrame struct {
	remaining int
	values    []Value
}

// State is the parser's continuation state between fragments. The zero value
// is the idle state: no partial value in progress.
type State struct {
	stack []arrayFrame

	line []byte // accumulated bytes of a line not yet terminated by CRLF

	inBulk    bool
	bulkLen   int // declared length of the bulk string in progress
	bulkBuf   []byte
}

// Outcome is the result of one Parse call.
type Outcome struct {
	// Done reports whether a complete top-level value was produced. When
	// false, State carries the continuation and Leftover/Value/Code are
	// zero.
	Done bool

	Code  Code
	Value Value

	// Leftover holds bytes not consumed in producing Value. The caller
	// should re-enter Parse with State and Leftover if Leftover is
	// non-empty.
	Leftover []byte

	State State

	// Err is set when the fragment violates RESP grammar. The connection
	// that produced it should be considered corrupt and torn down; State
	// is not meaningful after an error.
	Err error
}

// Parse feeds fragment into state and returns the next outcome. It never
// blocks and never retains fragment beyond the call: Leftover and any bytes
// copied into Value.Str are independent copies.
func Parse(state State, fragment []byte) Outcome {
	s := state
	p := fragment

	for {
		if s.inBulk {
			need := (s.bulkLen + 2) - len(s.bulkBuf)
			take := need
			if take > len(p) {
				take = len(p)
			}
			s.bulkBuf = append(s.bulkBuf, p[:take]...)
			p = p[take:]
			if len(s.bulkBuf) < s.bulkLen+2 {
				return Outcome{Done: false, State: s}
			}
			payload := append([]byte(nil), s.bulkBuf[:s.bulkLen]...)
			s.inBulk = false
			s.bulkBuf = nil
			s.bulkLen = 0
			done, v := emit(&s, Value{Type: BulkString, Str: payload})
			if done {
				return finish(s, v, p)
			}
			continue
		}

		line, rest, ok := scanLine(s.line, p)
		if !ok {
			s.line = append(s.line[:0:0], append(s.line, p...)...)
			return Outcome{Done: false, State: s}
		}
		p = rest
		s.line = nil

		if len(line) == 0 {
			return Outcome{Err: errProtocol("empty line"), State: State{}}
		}
		tag, body := line[0], line[1:]

		var v Value
		switch tag {
		case '+':
			v = Value{Type: SimpleString, Str: append([]byte(nil), body...)}
		case '-':
			v = Value{Type: Error, Str: append([]byte(nil), body...)}
		case ':':
			n, err := parseInt(body)
			if err != nil {
				return Outcome{Err: err, State: State{}}
			}
			v = Value{Type: Integer, Int: n}
		case '$':
			n, err := parseInt(body)
			if err != nil {
				return Outcome{Err: err, State: State{}}
			}
			if n == -1 {
				v = Value{Type: Nil}
			} else if n < -1 {
				return Outcome{Err: errProtocol("negative bulk length"), State: State{}}
			} else {
				s.inBulk = true
				s.bulkLen = int(n)
				s.bulkBuf = make([]byte, 0, n+2)
				continue
			}
		case '*':
			n, err := parseInt(body)
			if err != nil {
				return Outcome{Err: err, State: State{}}
			}
			if n == -1 {
				v = Value{Type: NilArray}
			} else if n < -1 {
				return Outcome{Err: errProtocol("negative array length"), State: State{}}
			} else if n == 0 {
				v = Value{Type: Array, Array: []Value{}}
			} else {
				s.stack = append(s.stack, arrayFrame{remaining: int(n), values: make([]Value, 0, n)})
				continue
			}
		default:
			return Outcome{Err: errProtocol("unknown type tag"), State: State{}}
		}

		done, vv := emit(&s, v)
		if done {
			return finish(s, vv, p)
		}
	}
}

// emit delivers a fully-decoded value either into the enclosing array frame
// (decrementing its remaining count, and recursing if that frame is now
// itself complete) or, if the stack is empty, back to the caller as a
// top-level result.
func emit(s *State, v Value) (done bool, out Value) {
	for {
		if len(s.stack) == 0 {
			return true, v
		}
		top := &s.stack[len(s.stack)-1]
		top.values = append(top.values, v)
		top.remaining--
		if top.remaining > 0 {
			return false, Value{}
		}
		v = Value{Type: Array, Array: top.values}
		s.stack = s.stack[:len(s.stack)-1]
	}
}

func finish(s State, v Value, leftover []byte) Outcome {
	code := OK
	if v.Type == Error {
		code = Err
	}
	var lo []byte
	if len(leftover) > 0 {
		lo = append([]byte(nil), leftover...)
	}
	return Outcome{Done: true, Code: code, Value: v, Leftover: lo, State: State{}}
}

// scanLine looks for a CRLF terminator across the boundary of carry (bytes
// held over from a previous fragment) and p (the new fragment). It never
// consumes a partial line: if no CRLF is present it returns ok=false and the
// caller is responsible for retaining the combined bytes as the new carry.
func scanLine(carry, p []byte) (line, rest []byte, ok bool) {
	if len(carry) == 0 {
		idx := bytes.Index(p, crlf)
		if idx < 0 {
			return nil, nil, false
		}
		return p[:idx], p[idx+2:], true
	}
	buf := make([]byte, 0, len(carry)+len(p))
	buf = append(buf, carry...)
	buf = append(buf, p...)
	idx := bytes.Index(buf, crlf)
	if idx < 0 {
		return nil, nil, false
	}
	return buf[:idx], buf[idx+2:], true
}

var crlf = []byte("\r\n")

func parseInt(b []byte) (int64, error) {
	n, err := bytesutil.ParseInt(b)
	if err != nil {
		return 0, errProtocol(err.Error())
	}
	return n, nil
}
