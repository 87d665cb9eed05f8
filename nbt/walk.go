package nbt

import (
	"strconv"

	"github.com/yehan2002/errors"
)

// SkipChildren can be returned by a WalkFunc to skip the children of the current node.
const SkipChildren = errors.Error("nbt: skip children")

// Node a tag visited by Walk.
type Node struct {
	Kind Kind
	// Depth the nesting depth of the node. The root has depth 0.
	Depth int
	// Name the name of the node. Only compound members and the root are named.
	Name  string
	Named bool
	// Size the number of bytes used to encode the node, including the kind
	// byte and name of named nodes.
	Size int
	// Value a short human readable representation of the value.
	Value string
	// Tag the visited tag. This is nil for the TAG_End that closes a compound.
	Tag Tag
}

// WalkFunc is called by Walk for every node.
type WalkFunc func(n Node) error

// Walk visits every node of the tree in document order.
// The TAG_End closing each compound is visited as the last child of the compound.
// If fn returns SkipChildren the children of the node are skipped, any other
// error stops the walk and is returned.
func Walk(root Named, fn WalkFunc) error {
	if root.Tag == nil {
		return nil
	}
	err := walk(root.Tag, root.Name, true, 0, fn)
	if err == SkipChildren {
		return nil
	}
	return err
}

func walk(t Tag, name string, named bool, depth int, fn WalkFunc) error {
	size := Size(t)
	if named && t.Kind() != KindEnd {
		size += 3 + modifiedUTF8Len(name)
	} else if t.Kind() == KindEnd {
		size = 1
	}

	err := fn(Node{Kind: t.Kind(), Depth: depth, Name: name, Named: named, Size: size, Value: Format(t), Tag: t})
	if err != nil {
		if err == SkipChildren {
			return nil
		}
		return err
	}

	switch t := t.(type) {
	case List:
		for _, item := range t.Items {
			if err = walk(item, "", false, depth+1, fn); err != nil {
				return err
			}
		}
	case Compound:
		for _, m := range t {
			if err = walk(m.Tag, m.Name, true, depth+1, fn); err != nil {
				return err
			}
		}
		err = fn(Node{Kind: KindEnd, Depth: depth + 1, Size: 1})
		if err == SkipChildren {
			err = nil
		}
	}
	return err
}

// Size returns the number of bytes used to encode the payload of t.
// The kind byte and name are not included.
func Size(t Tag) int {
	switch t := t.(type) {
	case End:
		return 0
	case String:
		return 2 + modifiedUTF8Len(string(t))
	case ByteArray:
		return 4 + len(t)
	case IntArray:
		return 4 + 4*len(t)
	case LongArray:
		return 4 + 8*len(t)
	case List:
		n := 5
		for _, item := range t.Items {
			n += Size(item)
		}
		return n
	case Compound:
		n := 1
		for _, m := range t {
			n += 3 + modifiedUTF8Len(m.Name) + Size(m.Tag)
		}
		return n
	case nil:
		return 0
	}
	return t.Kind().width()
}

// Format returns a short human readable representation of t.
// Lists, compounds and arrays are summarised by their length.
func Format(t Tag) string {
	switch t := t.(type) {
	case End:
		return ""
	case Byte:
		return strconv.FormatInt(int64(t), 10)
	case Short:
		return strconv.FormatInt(int64(t), 10)
	case Int:
		return strconv.FormatInt(int64(t), 10)
	case Long:
		return strconv.FormatInt(int64(t), 10)
	case Float:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case Double:
		return strconv.FormatFloat(float64(t), 'g', -1, 64)
	case String:
		return string(t)
	case ByteArray:
		return plural(len(t), "byte")
	case IntArray:
		return plural(len(t), "int")
	case LongArray:
		return plural(len(t), "long")
	case List:
		return plural(len(t.Items), "entry") + " of " + t.Elem.String()
	case Compound:
		return plural(len(t), "entry")
	}
	return ""
}

func plural(n int, unit string) string {
	s := strconv.Itoa(n) + " " + unit
	if n == 1 {
		return s
	}
	if unit == "entry" {
		return strconv.Itoa(n) + " entries"
	}
	return s + "s"
}
