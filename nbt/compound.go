package nbt

import "fmt"

// Compound an ordered list of named tags.
//
// Decoded compounds keep every member in the order it was read, including
// members that share a name. Lookups return the last member with the name.
type Compound []Named

// NewCompound creates a compound from the given members.
func NewCompound(members ...Named) (Compound, error) {
	c := make(Compound, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m.Tag == nil || m.Tag.Kind() == KindEnd {
			return nil, fmt.Errorf("%w: member %q has no value", ErrValueOutOfRange, m.Name)
		}
		if _, ok := seen[m.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateMember, m.Name)
		}
		seen[m.Name] = struct{}{}
		c = append(c, m)
	}
	return c, nil
}

// Len returns the number of members.
func (c Compound) Len() int { return len(c) }

func (c Compound) index(name string) int {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Name == name {
			return i
		}
	}
	return -1
}

// Get returns the member with the given name.
func (c Compound) Get(name string) (t Tag, ok bool) {
	if i := c.index(name); i >= 0 {
		return c[i].Tag, true
	}
	return nil, false
}

// Lookup returns the member with the given name or ErrNoSuchMember.
func (c Compound) Lookup(name string) (Tag, error) {
	if t, ok := c.Get(name); ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoSuchMember, name)
}

// Find follows path through nested compounds and returns the final member.
func (c Compound) Find(path ...string) (t Tag, err error) {
	t = c
	for i, name := range path {
		var parent Compound
		if parent, err = AsCompound(t); err != nil {
			return nil, fmt.Errorf("%v: %w", path[:i], err)
		}
		if t, err = parent.Lookup(name); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Names returns the member names in order.
func (c Compound) Names() []string {
	names := make([]string, len(c))
	for i, m := range c {
		names[i] = m.Name
	}
	return names
}

// Put sets the member called name to t.
// Every existing member with the same name is replaced by the single new member,
// which takes the position of the first one.
func (c *Compound) Put(name string, t Tag) error {
	if t == nil || t.Kind() == KindEnd {
		return fmt.Errorf("%w: member %q has no value", ErrValueOutOfRange, name)
	}
	first := -1
	for i, m := range *c {
		if m.Name == name {
			first = i
			break
		}
	}
	if first < 0 {
		*c = append(*c, Named{Name: name, Tag: t})
		return nil
	}
	c.Delete(name)
	*c = append(*c, Named{})
	copy((*c)[first+1:], (*c)[first:])
	(*c)[first] = Named{Name: name, Tag: t}
	return nil
}

// Delete removes every member called name.
// It returns if any member was removed.
func (c *Compound) Delete(name string) (removed bool) {
	kept := (*c)[:0]
	for _, m := range *c {
		if m.Name == name {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	for i := len(kept); i < len(*c); i++ {
		(*c)[i] = Named{}
	}
	*c = kept
	return
}

func (c Compound) member(name string, want Kind) (Tag, error) {
	t, err := c.Lookup(name)
	if err != nil {
		return nil, err
	}
	if t.Kind() != want {
		return nil, fmt.Errorf("%w: %q is %s, not %s", ErrKindMismatch, name, t.Kind(), want)
	}
	return t, nil
}

// GetByte returns the value of a TAG_Byte member.
func (c Compound) GetByte(name string) (int8, error) {
	t, err := c.member(name, KindByte)
	if err != nil {
		return 0, err
	}
	return int8(t.(Byte)), nil
}

// GetShort returns the value of a TAG_Short member.
func (c Compound) GetShort(name string) (int16, error) {
	t, err := c.member(name, KindShort)
	if err != nil {
		return 0, err
	}
	return int16(t.(Short)), nil
}

// GetInt returns the value of a TAG_Int member.
func (c Compound) GetInt(name string) (int32, error) {
	t, err := c.member(name, KindInt)
	if err != nil {
		return 0, err
	}
	return int32(t.(Int)), nil
}

// GetLong returns the value of a TAG_Long member.
func (c Compound) GetLong(name string) (int64, error) {
	t, err := c.member(name, KindLong)
	if err != nil {
		return 0, err
	}
	return int64(t.(Long)), nil
}

// GetFloat returns the value of a TAG_Float member.
func (c Compound) GetFloat(name string) (float32, error) {
	t, err := c.member(name, KindFloat)
	if err != nil {
		return 0, err
	}
	return float32(t.(Float)), nil
}

// GetDouble returns the value of a TAG_Double member.
func (c Compound) GetDouble(name string) (float64, error) {
	t, err := c.member(name, KindDouble)
	if err != nil {
		return 0, err
	}
	return float64(t.(Double)), nil
}

// GetString returns the value of a TAG_String member.
func (c Compound) GetString(name string) (string, error) {
	t, err := c.member(name, KindString)
	if err != nil {
		return "", err
	}
	return string(t.(String)), nil
}

// GetByteArray returns the value of a TAG_Byte_Array member.
func (c Compound) GetByteArray(name string) ([]byte, error) {
	t, err := c.member(name, KindByteArray)
	if err != nil {
		return nil, err
	}
	return t.(ByteArray), nil
}

// GetIntArray returns the value of a TAG_Int_Array member.
func (c Compound) GetIntArray(name string) ([]int32, error) {
	t, err := c.member(name, KindIntArray)
	if err != nil {
		return nil, err
	}
	return t.(IntArray), nil
}

// GetLongArray returns the value of a TAG_Long_Array member.
func (c Compound) GetLongArray(name string) ([]int64, error) {
	t, err := c.member(name, KindLongArray)
	if err != nil {
		return nil, err
	}
	return t.(LongArray), nil
}

// GetList returns the value of a TAG_List member.
func (c Compound) GetList(name string) (List, error) {
	t, err := c.member(name, KindList)
	if err != nil {
		return List{}, err
	}
	return t.(List), nil
}

// GetCompound returns the value of a TAG_Compound member.
func (c Compound) GetCompound(name string) (Compound, error) {
	t, err := c.member(name, KindCompound)
	if err != nil {
		return nil, err
	}
	return t.(Compound), nil
}
