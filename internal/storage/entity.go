package storage

type DataType byte

const (
	TypeString DataType = iota + 1
	TypeList
	TypeSet
	TypeHash
	TypeZSet
)

// String returns the name reported by the TYPE command
func (t DataType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeSet:
		return "set"
	case TypeHash:
		return "hash"
	case TypeZSet:
		return "zset"
	}
	return "none"
}

// Entity generic container for value.
// Value holds string, *List, map[string]struct{}, map[string]string or *SortedSet
// depending on Type
type Entity struct {
	Type  DataType
	Value interface{}
}

func (e *Entity) str() string {
	return e.Value.(string)
}

func (e *Entity) list() *List {
	return e.Value.(*List)
}

func (e *Entity) set() map[string]struct{} {
	return e.Value.(map[string]struct{})
}

func (e *Entity) hash() map[string]string {
	return e.Value.(map[string]string)
}

func (e *Entity) zset() *SortedSet {
	return e.Value.(*SortedSet)
}
