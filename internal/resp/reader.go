package resp

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

const (
	maxBulkSize  = 512 * 1024 * 1024
	maxArraySize = 1024 * 1024
)

var (
	ErrInvalidEnding  = errors.New("invalid line ending")
	ErrInvalidLength  = errors.New("invalid bulk or multibulk length")
	ErrInvalidInteger = errors.New("invalid integer")
)

// Decoder reads RESP values from a buffered stream
type Decoder struct {
	rd *bufio.Reader
}

// NewDecoder wraps rd in a buffered RESP decoder
func NewDecoder(rd io.Reader) *Decoder {
	return &Decoder{rd: bufio.NewReader(rd)}
}

// Buffered returns the number of bytes that can be read from the current buffer
func (d *Decoder) Buffered() int {
	return d.rd.Buffered()
}

// Read decodes the next value. Lines not starting with a RESP type byte are
// parsed as inline commands and returned as an array of bulk strings
func (d *Decoder) Read() (Value, error) {
	_type, err := d.rd.ReadByte()
	if err != nil {
		return Value{}, err
	}

	switch _type {
	case TypeSimpleString, TypeError:
		str, err := d.readLine()
		if err != nil {
			return Value{}, err
		}
		return Value{Type: _type, String: str}, nil

	case TypeInteger:
		num, err := d.readInteger()
		if err != nil {
			return Value{}, err
		}
		return Value{Type: TypeInteger, Integer: num}, nil

	case TypeBulkString:
		return d.readBulkString()

	case TypeArray:
		return d.readArray()
	}

	if err := d.rd.UnreadByte(); err != nil {
		return Value{}, err
	}
	return d.readInline()
}

// readLine reads bytes up to CRLF and strips the terminator
func (d *Decoder) readLine() ([]byte, error) {
	line, err := d.rd.ReadBytes('\n')
	if err != nil {
		return nil, err
	}

	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, ErrInvalidEnding
	}

	return line[:len(line)-2], nil
}

func (d *Decoder) readInteger() (int64, error) {
	line, err := d.readLine()
	if err != nil {
		return 0, err
	}

	// Command with integer cant be empty
	if len(line) == 0 {
		return 0, ErrInvalidInteger
	}

	num, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return 0, ErrInvalidInteger
	}

	return num, nil
}

func (d *Decoder) readBulkString() (Value, error) {
	size, err := d.readInteger()
	if err != nil {
		return Value{}, err
	}

	if size == -1 {
		return MakeNilBulkString(), nil
	}
	if size < 0 || size > maxBulkSize {
		return Value{}, ErrInvalidLength
	}

	buf := make([]byte, size+2)
	if _, err := io.ReadFull(d.rd, buf); err != nil {
		return Value{}, err
	}
	if buf[size] != '\r' || buf[size+1] != '\n' {
		return Value{}, ErrInvalidEnding
	}

	return Value{Type: TypeBulkString, String: buf[:size]}, nil
}

func (d *Decoder) readArray() (Value, error) {
	size, err := d.readInteger()
	if err != nil {
		return Value{}, err
	}

	if size == -1 {
		return MakeNilArray(), nil
	}
	if size < 0 || size > maxArraySize {
		return Value{}, ErrInvalidLength
	}

	values := make([]Value, size)
	for i := range values {
		if values[i], err = d.Read(); err != nil {
			return Value{}, err
		}
	}

	return MakeArray(values), nil
}

// readInline supports telnet-style commands: "SET key value\r\n"
func (d *Decoder) readInline() (Value, error) {
	line, err := d.rd.ReadString('\n')
	if err != nil {
		return Value{}, err
	}

	fields := strings.Fields(line)
	return MakeBulkArray(fields), nil
}
