package classfile

import (
	"fmt"
	"math"
	"unicode/utf16"
)

// Constant pool tags
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// refSizes is the payload size of the reference-only entries kept as
// placeholders.
var refSizes = map[uint8]int{
	TagMethodHandle:  3, // reference_kind, reference_index
	TagMethodType:    2,
	TagModule:        2,
	TagPackage:       2,
	TagDynamic:       4, // bootstrap_method_attr_index, name_and_type_index
	TagInvokeDynamic: 4,
}

// parseConstantPool reads count-1 entries. The result is indexed by
// constant pool index, so slot 0 and the slot after each long or double
// are nil.
func parseConstantPool(r *reader, count uint16) ([]ConstantPoolEntry, error) {
	pool := make([]ConstantPoolEntry, count)
	for i := 1; i < int(count); i++ {
		tag := r.u1("tag")
		var e ConstantPoolEntry
		switch tag {
		case TagUtf8:
			raw := r.take(int(r.u2("Utf8 length")), "Utf8 bytes")
			e = &ConstantUtf8{Value: decodeModifiedUTF8(raw)}
		case TagInteger:
			e = &ConstantInteger{Value: int32(r.u4("Integer"))}
		case TagFloat:
			e = &ConstantFloat{Value: math.Float32frombits(r.u4("Float"))}
		case TagLong:
			e = &ConstantLong{Value: int64(r.u8("Long"))}
		case TagDouble:
			e = &ConstantDouble{Value: math.Float64frombits(r.u8("Double"))}
		case TagClass:
			e = &ConstantClass{NameIndex: r.u2("Class name index")}
		case TagString:
			e = &ConstantString{StringIndex: r.u2("String index")}
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			e = &ConstantMemberref{tag: tag, ClassIndex: r.u2("member class"), NameAndTypeIndex: r.u2("member name and type")}
		case TagNameAndType:
			e = &ConstantNameAndType{NameIndex: r.u2("NameAndType name"), DescriptorIndex: r.u2("NameAndType descriptor")}
		default:
			n, ok := refSizes[tag]
			if !ok {
				if r.err != nil {
					return nil, r.err
				}
				return nil, fmt.Errorf("unknown tag %d at index %d", tag, i)
			}
			r.take(n, "reference entry")
			e = &constantPlaceholder{tag: tag}
		}
		if r.err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, r.err)
		}
		pool[i] = e
		if tag == TagLong || tag == TagDouble {
			i++
		}
	}
	return pool, nil
}

// decodeModifiedUTF8 handles the two places the class-file encoding departs
// from UTF-8: NUL as 0xC0 0x80 and supplementary characters as surrogate pairs.
func decodeModifiedUTF8(b []byte) string {
	ascii := true
	for _, c := range b {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}
	var units []uint16
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			units = append(units, 0xFFFD)
			i++
		}
	}
	return string(utf16.Decode(units))
}

// constantPlaceholder is used for constant pool entries we don't fully parse.
type constantPlaceholder struct {
	tag uint8
}

func (c *constantPlaceholder) Tag() uint8 { return c.tag }

// GetUtf8 returns the Utf8 string at the given constant pool index.
func GetUtf8(pool []ConstantPoolEntry, index uint16) (string, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return "", fmt.Errorf("invalid constant pool index %d", index)
	}
	utf8, ok := pool[index].(*ConstantUtf8)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Utf8 (tag=%d)", index, pool[index].Tag())
	}
	return utf8.Value, nil
}

// GetClassName returns the class name referenced by a CONSTANT_Class entry.
func GetClassName(pool []ConstantPoolEntry, classIndex uint16) (string, error) {
	if int(classIndex) >= len(pool) || pool[classIndex] == nil {
		return "", fmt.Errorf("invalid constant pool index %d", classIndex)
	}
	class, ok := pool[classIndex].(*ConstantClass)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Class", classIndex)
	}
	return GetUtf8(pool, class.NameIndex)
}

// MemberRef holds a resolved field, method or interface method reference.
type MemberRef struct {
	ClassName  string
	Name       string
	Descriptor string
	Interface  bool
}

// Key returns name+descriptor, the form used to look a member up in its owner.
func (m *MemberRef) Key() string { return m.Name + m.Descriptor }

func (m *MemberRef) String() string { return m.ClassName + "->" + m.Name + m.Descriptor }

// ResolveMemberref resolves an entry whose tag is one of want.
func ResolveMemberref(pool []ConstantPoolEntry, index uint16, want ...uint8) (*MemberRef, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, fmt.Errorf("invalid constant pool index %d", index)
	}
	mref, ok := pool[index].(*ConstantMemberref)
	if !ok || !tagIn(mref.tag, want) {
		return nil, fmt.Errorf("constant pool index %d is not a member ref of tag %v (tag=%d)", index, want, pool[index].Tag())
	}

	className, err := GetClassName(pool, mref.ClassIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving member ref class: %w", err)
	}

	if int(mref.NameAndTypeIndex) >= len(pool) || pool[mref.NameAndTypeIndex] == nil {
		return nil, fmt.Errorf("invalid NameAndType index %d", mref.NameAndTypeIndex)
	}
	nat, ok := pool[mref.NameAndTypeIndex].(*ConstantNameAndType)
	if !ok {
		return nil, fmt.Errorf("constant pool index %d is not NameAndType", mref.NameAndTypeIndex)
	}

	name, err := GetUtf8(pool, nat.NameIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving member name: %w", err)
	}
	descriptor, err := GetUtf8(pool, nat.DescriptorIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving member descriptor: %w", err)
	}

	return &MemberRef{
		ClassName:  className,
		Name:       name,
		Descriptor: descriptor,
		Interface:  mref.tag == TagInterfaceMethodref,
	}, nil
}

func tagIn(tag uint8, want []uint8) bool {
	for _, w := range want {
		if tag == w {
			return true
		}
	}
	return false
}

// ResolveFieldref resolves a CONSTANT_Fieldref entry.
func ResolveFieldref(pool []ConstantPoolEntry, index uint16) (*MemberRef, error) {
	return ResolveMemberref(pool, index, TagFieldref)
}

// ResolveMethodref resolves a CONSTANT_Methodref entry, or an
// InterfaceMethodref, which invokestatic and invokespecial may also name.
func ResolveMethodref(pool []ConstantPoolEntry, index uint16) (*MemberRef, error) {
	return ResolveMemberref(pool, index, TagMethodref, TagInterfaceMethodref)
}

// ResolveInterfaceMethodref resolves a CONSTANT_InterfaceMethodref entry.
func ResolveInterfaceMethodref(pool []ConstantPoolEntry, index uint16) (*MemberRef, error) {
	return ResolveMemberref(pool, index, TagInterfaceMethodref)
}
