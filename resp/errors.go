package resp

import "fmt"

// protocolError reports a grammar violation in the byte stream: an unknown
// type tag, a malformed length/integer field, or an illegal negative length.
// It's distinct from a transport-level error; the caller owns what to do
// with the connection.
type protocolError struct {
	msg string
}

func (e *protocolError) Error() string {
	return fmt.Sprintf("resp: protocol error: %s", e.msg)
}

func errProtocol(msg string) error {
	return &protocolError{msg: msg}
}
