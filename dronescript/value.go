package dronescript

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mgomes/dronelab/farm"
)

// ValueKind tags a Value.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindEntity
)

func (k ValueKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "str"
	case KindList:
		return "list"
	case KindEntity:
		return "entity"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is the tagged union every script value is stored in.
type Value struct {
	kind ValueKind
	data any
}

func NewNone() Value                       { return Value{kind: KindNone} }
func NewBool(b bool) Value                 { return Value{kind: KindBool, data: b} }
func NewInt(i int64) Value                 { return Value{kind: KindInt, data: i} }
func NewFloat(f float64) Value             { return Value{kind: KindFloat, data: f} }
func NewString(s string) Value             { return Value{kind: KindString, data: s} }
func NewList(items []Value) Value          { return Value{kind: KindList, data: &listData{items: items}} }
func NewEntity(kind farm.EntityKind) Value { return Value{kind: KindEntity, data: kind} }

// listData is shared between copies of a list value so that two names bound
// to the same list see the same elements.
type listData struct {
	items []Value
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) Bool() bool {
	b, _ := v.data.(bool)
	return b
}

func (v Value) Int() int64 {
	i, _ := v.data.(int64)
	return i
}

func (v Value) Float() float64 {
	switch v.kind {
	case KindFloat:
		return v.data.(float64)
	case KindInt:
		return float64(v.data.(int64))
	}
	return 0
}

func (v Value) Str() string {
	s, _ := v.data.(string)
	return s
}

func (v Value) List() []Value {
	if l, ok := v.data.(*listData); ok {
		return l.items
	}
	return nil
}

func (v Value) Entity() farm.EntityKind {
	e, _ := v.data.(farm.EntityKind)
	return e
}

func (v Value) isNumber() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// String renders the value the way print shows it.
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "None"
	case KindBool:
		if v.Bool() {
			return "True"
		}
		return "False"
	case KindInt:
		return strconv.FormatInt(v.Int(), 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case KindString:
		return v.Str()
	case KindEntity:
		return v.Entity().String()
	case KindList:
		items := v.List()
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = item.Repr()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("<%v>", v.kind)
	}
}

// Repr renders the value as it appears inside a list.
func (v Value) Repr() string {
	switch v.kind {
	case KindString:
		return "'" + strings.ReplaceAll(v.Str(), "'", `\'`) + "'"
	case KindEntity:
		return "'" + v.Entity().String() + "'"
	default:
		return v.String()
	}
}

func (v Value) Truthy() bool {
	switch v.kind {
	case KindNone:
		return false
	case KindBool:
		return v.Bool()
	case KindInt:
		return v.Int() != 0
	case KindFloat:
		return v.Float() != 0
	case KindString:
		return v.Str() != ""
	case KindList:
		return len(v.List()) > 0
	case KindEntity:
		return v.Entity() != farm.Empty
	default:
		return false
	}
}

// Equal compares values without coercion, except that ints and floats
// compare numerically and an entity equals the string naming its kind.
// ok is false when the kinds cannot be compared at all.
func (v Value) Equal(other Value) (equal bool, ok bool) {
	switch {
	case v.kind == KindNone || other.kind == KindNone:
		return v.kind == other.kind, true
	case v.isNumber() && other.isNumber():
		if v.kind == KindInt && other.kind == KindInt {
			return v.Int() == other.Int(), true
		}
		return v.Float() == other.Float(), true
	case v.kind == KindEntity && other.kind == KindString:
		return entityMatches(v.Entity(), other.Str())
	case v.kind == KindString && other.kind == KindEntity:
		return entityMatches(other.Entity(), v.Str())
	case v.kind != other.kind:
		return false, false
	}

	switch v.kind {
	case KindBool:
		return v.Bool() == other.Bool(), true
	case KindString:
		return v.Str() == other.Str(), true
	case KindEntity:
		return v.Entity() == other.Entity(), true
	case KindList:
		a, b := v.List(), other.List()
		if len(a) != len(b) {
			return false, true
		}
		for i := range a {
			eq, ok := a[i].Equal(b[i])
			if !ok || !eq {
				return false, true
			}
		}
		return true, true
	}
	return false, false
}

// entityMatches compares a scanned entity with a kind name. A string that
// names no kind cannot be compared with an entity.
func entityMatches(kind farm.EntityKind, name string) (bool, bool) {
	parsed, ok := farm.ParseEntityKind(name)
	if !ok {
		return false, false
	}
	return parsed == kind, true
}
