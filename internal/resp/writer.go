package resp

import (
	"bufio"
	"errors"
	"io"
	"strconv"
)

var ErrUnknownType = errors.New("unknown value type")

var crlf = []byte("\r\n")

// Encoder serializes replies into a buffered stream. Nothing reaches the
// underlying writer until Flush, so a connection can batch a pipeline of replies
type Encoder struct {
	writer *bufio.Writer
}

// NewEncoder wraps w in a buffered writer
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{writer: bufio.NewWriter(w)}
}

// Write appends the RESP2 framing of v to the buffer.
//
// The zero Value (Type 0) is the "no reply" marker used by commands that answer
// out of band, such as SUBSCRIBE; it writes nothing and returns nil. Null bulk
// strings and null arrays are written as $-1 and *-1. A non-zero Type outside
// the five RESP2 kinds returns ErrUnknownType.
func (e *Encoder) Write(v Value) error {
	switch v.Type {
	case 0:
		return nil
	case TypeInteger:
		return e.writeNumber(TypeInteger, v.Integer)
	case TypeSimpleString, TypeError:
		return e.writeLine(v.Type, v.String)
	case TypeBulkString:
		return e.writeBulk(v)
	case TypeArray:
		return e.writeArray(v)
	default:
		return ErrUnknownType
	}
}

// Flush sends all buffered data to the underlying writer
func (e *Encoder) Flush() error {
	return e.writer.Flush()
}

func (e *Encoder) writeBulk(v Value) error {
	if v.IsNull {
		return e.writeNumber(TypeBulkString, -1)
	}
	if err := e.writeNumber(TypeBulkString, int64(len(v.String))); err != nil {
		return err
	}
	if _, err := e.writer.Write(v.String); err != nil {
		return err
	}
	_, err := e.writer.Write(crlf)
	return err
}

func (e *Encoder) writeArray(v Value) error {
	if v.IsNull {
		return e.writeNumber(TypeArray, -1)
	}
	if err := e.writeNumber(TypeArray, int64(len(v.Array))); err != nil {
		return err
	}
	for _, el := range v.Array {
		if err := e.Write(el); err != nil {
			return err
		}
	}
	return nil
}

// writeNumber writes an integer reply or a length header, formatted in place in the spare buffer
func (e *Encoder) writeNumber(prefix byte, n int64) error {
	b := append(e.writer.AvailableBuffer(), prefix)
	b = strconv.AppendInt(b, n, 10)
	b = append(b, crlf...)
	_, err := e.writer.Write(b)
	return err
}

func (e *Encoder) writeLine(prefix byte, payload []byte) error {
	if err := e.writer.WriteByte(prefix); err != nil {
		return err
	}
	if _, err := e.writer.Write(payload); err != nil {
		return err
	}
	_, err := e.writer.Write(crlf)
	return err
}
