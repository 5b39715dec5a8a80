package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

// ProgramVersion is the current container format version.
// Increment when making incompatible changes to the format.
const ProgramVersion uint16 = 1

// Magic bytes for compiled program files: "STBC" (STrand ByteCode).
var ProgramMagic = []byte{'S', 'T', 'B', 'C'}

// Loader errors.
var (
	// ErrBadMagic is returned when data does not start with the STBC magic.
	ErrBadMagic = errors.New("invalid program magic")

	// ErrUnsupportedVersion is returned for containers newer than this
	// implementation supports.
	ErrUnsupportedVersion = errors.New("unsupported program version")

	// ErrTruncated is returned when the container ends mid-structure.
	ErrTruncated = errors.New("unexpected end of program data")

	// ErrUnsupportedInstruction is returned for opcodes this
	// implementation does not know. Forward compatibility is explicitly
	// not guaranteed.
	ErrUnsupportedInstruction = errors.New("unsupported instruction")

	// ErrMalformed is returned for structurally invalid containers, such
	// as labels pointing outside their node.
	ErrMalformed = errors.New("malformed program")
)

// Serialize encodes the program to bytes for storage/transport.
// Format:
//
//	[magic:4] [version:2]
//	[node_count:2] [nodes:...]
//	  node: [name] [instr_count:4] [instructions:...]
//	        [label_count:2] [labels:...] [tag_count:2] [tags:...]
//	  instruction: [opcode:1] [operand_count:1] [operands:...]
//	  operand: [kind:1] [payload]
//	[string_count:2] [entries:...]
//	[initial_count:2] [name+value pairs:...]
//
// Strings are length-prefixed with u16. Map entries are written in
// sorted key order so encoding is deterministic.
func Serialize(p *Program) ([]byte, error) {
	buf := make([]byte, 0, 1024)

	buf = append(buf, ProgramMagic...)
	buf = binary.BigEndian.AppendUint16(buf, ProgramVersion)

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(p.Nodes)))
	for _, name := range sortedKeys(p.Nodes) {
		node := p.Nodes[name]
		buf = appendString(buf, node.Name)

		buf = binary.BigEndian.AppendUint32(buf, uint32(len(node.Instructions)))
		for _, in := range node.Instructions {
			if !in.Op.IsValid() {
				return nil, fmt.Errorf("%w: opcode 0x%02X in node %q", ErrUnsupportedInstruction, byte(in.Op), node.Name)
			}
			buf = append(buf, byte(in.Op), byte(len(in.Operands)))
			for _, v := range in.Operands {
				buf = appendValue(buf, v)
			}
		}

		buf = binary.BigEndian.AppendUint16(buf, uint16(len(node.Labels)))
		for _, label := range sortedKeys(node.Labels) {
			buf = appendString(buf, label)
			buf = binary.BigEndian.AppendUint32(buf, uint32(node.Labels[label]))
		}

		buf = binary.BigEndian.AppendUint16(buf, uint16(len(node.Tags)))
		for _, tag := range node.Tags {
			buf = appendString(buf, tag)
		}
	}

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(p.Strings)))
	for _, key := range sortedKeys(p.Strings) {
		entry := p.Strings[key]
		buf = appendString(buf, key)
		buf = appendString(buf, entry.Text)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(entry.Tags)))
		for _, tag := range entry.Tags {
			buf = appendString(buf, tag)
		}
	}

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(p.InitialValues)))
	for _, name := range sortedKeys(p.InitialValues) {
		buf = appendString(buf, name)
		buf = appendValue(buf, p.InitialValues[name])
	}

	return buf, nil
}

// Deserialize decodes a program from bytes, validating structural
// integrity: magic, version, opcode set, operand arity, and label
// targets.
func Deserialize(data []byte) (*Program, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("%w: need at least 6 bytes, got %d", ErrTruncated, len(data))
	}
	if string(data[0:4]) != string(ProgramMagic) {
		return nil, fmt.Errorf("%w: expected %q, got %q", ErrBadMagic, ProgramMagic, data[0:4])
	}

	version := binary.BigEndian.Uint16(data[4:6])
	if version > ProgramVersion {
		return nil, fmt.Errorf("%w: program version %d is newer than supported version %d",
			ErrUnsupportedVersion, version, ProgramVersion)
	}

	d := &decoder{data: data, pos: 6}
	p := NewProgram()

	nodeCount, err := d.uint16("node count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(nodeCount); i++ {
		node, err := d.node()
		if err != nil {
			return nil, err
		}
		p.Nodes[node.Name] = node
	}

	stringCount, err := d.uint16("string count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(stringCount); i++ {
		key, err := d.string("string key")
		if err != nil {
			return nil, err
		}
		text, err := d.string("string text")
		if err != nil {
			return nil, err
		}
		tags, err := d.tags("string tags")
		if err != nil {
			return nil, err
		}
		p.Strings[key] = StringEntry{Text: text, Tags: tags}
	}

	initialCount, err := d.uint16("initial value count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(initialCount); i++ {
		name, err := d.string("initial value name")
		if err != nil {
			return nil, err
		}
		value, err := d.value("initial value")
		if err != nil {
			return nil, err
		}
		p.InitialValues[name] = value
	}

	return p, nil
}

// decoder tracks a read position through the container.
type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) need(n int, what string) error {
	if d.pos+n > len(d.data) {
		return fmt.Errorf("%w reading %s at pos %d", ErrTruncated, what, d.pos)
	}
	return nil
}

func (d *decoder) byte(what string) (byte, error) {
	if err := d.need(1, what); err != nil {
		return 0, err
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) uint16(what string) (uint16, error) {
	if err := d.need(2, what); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(d.data[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *decoder) uint32(what string) (uint32, error) {
	if err := d.need(4, what); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *decoder) string(what string) (string, error) {
	n, err := d.uint16(what)
	if err != nil {
		return "", err
	}
	if err := d.need(int(n), what); err != nil {
		return "", err
	}
	s := string(d.data[d.pos : d.pos+int(n)])
	d.pos += int(n)
	return s, nil
}

func (d *decoder) value(what string) (Value, error) {
	kind, err := d.byte(what)
	if err != nil {
		return Value{}, err
	}
	switch ValueKind(kind) {
	case KindString:
		s, err := d.string(what)
		if err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case KindNumber:
		if err := d.need(8, what); err != nil {
			return Value{}, err
		}
		bits := binary.BigEndian.Uint64(d.data[d.pos:])
		d.pos += 8
		return NumberValue(math.Float64frombits(bits)), nil
	case KindBool:
		b, err := d.byte(what)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b != 0), nil
	default:
		return Value{}, fmt.Errorf("%w: unknown value kind %d reading %s", ErrMalformed, kind, what)
	}
}

func (d *decoder) tags(what string) ([]string, error) {
	count, err := d.uint16(what)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	tags := make([]string, count)
	for i := range tags {
		tags[i], err = d.string(what)
		if err != nil {
			return nil, err
		}
	}
	return tags, nil
}

func (d *decoder) node() (*Node, error) {
	name, err := d.string("node name")
	if err != nil {
		return nil, err
	}
	node := &Node{Name: name, Labels: make(map[string]int)}

	instrCount, err := d.uint32("instruction count")
	if err != nil {
		return nil, err
	}
	node.Instructions = make([]Instruction, instrCount)
	for i := range node.Instructions {
		op, err := d.byte("opcode")
		if err != nil {
			return nil, err
		}
		if !Opcode(op).IsValid() {
			return nil, fmt.Errorf("%w: opcode 0x%02X at instruction %d in node %q",
				ErrUnsupportedInstruction, op, i, name)
		}
		operandCount, err := d.byte("operand count")
		if err != nil {
			return nil, err
		}
		info := GetOpcodeInfo(Opcode(op))
		if int(operandCount) < info.MinOperands || int(operandCount) > info.MaxOperands {
			return nil, fmt.Errorf("%w: %s carries %d operands (want %d..%d) in node %q",
				ErrMalformed, Opcode(op), operandCount, info.MinOperands, info.MaxOperands, name)
		}
		in := Instruction{Op: Opcode(op)}
		if operandCount > 0 {
			in.Operands = make([]Value, operandCount)
			for j := range in.Operands {
				in.Operands[j], err = d.value("operand")
				if err != nil {
					return nil, err
				}
			}
		}
		node.Instructions[i] = in
	}

	labelCount, err := d.uint16("label count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(labelCount); i++ {
		label, err := d.string("label name")
		if err != nil {
			return nil, err
		}
		target, err := d.uint32("label target")
		if err != nil {
			return nil, err
		}
		if int(target) > len(node.Instructions) {
			return nil, fmt.Errorf("%w: label %q targets instruction %d past end of node %q",
				ErrMalformed, label, target, name)
		}
		node.Labels[label] = int(target)
	}

	node.Tags, err = d.tags("node tags")
	if err != nil {
		return nil, err
	}

	return node, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func appendValue(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.Kind))
	switch v.Kind {
	case KindString:
		buf = appendString(buf, v.Str)
	case KindNumber:
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(v.Num))
	case KindBool:
		if v.Flag {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	return buf
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
