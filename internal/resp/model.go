package resp

const (
	TypeSimpleString = '+'
	TypeError        = '-'
	TypeInteger      = ':'
	TypeBulkString   = '$'
	TypeArray        = '*'
)

// Value is a single RESP2 frame. The zero Value means "no reply" and is never written
type Value struct {
	String  []byte // SimpleString, Error, BulkString
	Array   []Value
	Integer int64 // Integer
	Type    byte
	IsNull  bool // For nil BulkString and nil Array
}

// IsZero reports whether v carries no reply at all
func (v Value) IsZero() bool {
	return v.Type == 0
}

// IsError reports whether v is an error reply
func (v Value) IsError() bool {
	return v.Type == TypeError
}

// Text returns the payload of string-like values
func (v Value) Text() string {
	return string(v.String)
}
