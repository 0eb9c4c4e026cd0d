package interp

import (
	"fmt"
	"math"

	"github.com/daimatz/liveedit/pkg/classfile"
)

// executeInstruction executes a single bytecode instruction.
// Returns (returnValue, hasReturn, error).
func (m *machine) executeInstruction(frame *Frame, opcode byte) (Value, bool, error) {
	switch {
	case opcode >= OpIload0 && opcode <= OpAload3:
		frame.Push(frame.GetLocal(int(opcode-OpIload0) % 4))
		return Value{}, false, nil
	case opcode >= OpIstore0 && opcode <= OpAstore3:
		frame.SetLocal(int(opcode-OpIstore0)%4, frame.Pop())
		return Value{}, false, nil
	}

	switch opcode {
	case OpNop:
		// do nothing

	// --- Constant load instructions ---
	case OpAconstNull:
		frame.Push(NullValue())

	case OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5:
		frame.Push(IntValue(int32(opcode) - OpIconst0))

	case OpLconst0, OpLconst1:
		frame.Push(LongValue(int64(opcode - OpLconst0)))

	case OpFconst0, OpFconst1, OpFconst2:
		frame.Push(FloatValue(float32(opcode - OpFconst0)))

	case OpDconst0, OpDconst1:
		frame.Push(DoubleValue(float64(opcode - OpDconst0)))

	case OpBipush:
		frame.Push(IntValue(int32(frame.ReadI8())))

	case OpSipush:
		frame.Push(IntValue(int32(frame.ReadI16())))

	case OpLdc:
		return Value{}, false, m.executeLdc(frame, uint16(frame.ReadU8()))

	case OpLdcW:
		return Value{}, false, m.executeLdc(frame, frame.ReadU16())

	case OpLdc2W:
		index := frame.ReadU16()
		pool := m.def.Pool
		if int(index) >= len(pool) || pool[index] == nil {
			return Value{}, false, fmt.Errorf("ldc2_w: invalid constant pool index %d", index)
		}
		switch c := pool[index].(type) {
		case *classfile.ConstantLong:
			frame.Push(LongValue(c.Value))
		case *classfile.ConstantDouble:
			frame.Push(DoubleValue(c.Value))
		default:
			return Value{}, false, fmt.Errorf("ldc2_w: unsupported type at index %d (tag=%d)", index, c.Tag())
		}

	// --- Local variables ---
	case OpIload, OpLload, OpFload, OpDload, OpAload:
		frame.Push(frame.GetLocal(int(frame.ReadU8())))

	case OpIstore, OpLstore, OpFstore, OpDstore, OpAstore:
		frame.SetLocal(int(frame.ReadU8()), frame.Pop())

	case OpIinc:
		index := int(frame.ReadU8())
		delta := int32(frame.ReadI8())
		frame.SetLocal(index, IntValue(frame.GetLocal(index).Int+delta))

	case OpWide:
		return Value{}, false, m.executeWide(frame)

	// --- Arrays ---
	case OpIaload, OpLaload, OpFaload, OpDaload, OpAaload, OpBaload, OpCaload, OpSaload:
		index := frame.Pop().Int
		arr := frame.Pop()
		if arr.IsNull() {
			return Value{}, false, m.nullPointer("array load on null")
		}
		v, err := m.ev.GetArrayElement(arr, index, elementDesc(opcode, arr))
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(v)

	case OpIastore, OpLastore, OpFastore, OpDastore, OpAastore, OpBastore, OpCastore, OpSastore:
		value := frame.Pop()
		index := frame.Pop().Int
		arr := frame.Pop()
		if arr.IsNull() {
			return Value{}, false, m.nullPointer("array store on null")
		}
		elem := elementDesc(opcode-(OpIastore-OpIaload), arr)
		if value.Kind == KindInt {
			value = IntValue(narrowInt(value.Int, elem))
		}
		if err := m.ev.SetArrayElement(arr, index, elem, value); err != nil {
			return Value{}, false, err
		}

	case OpNewarray:
		elem, ok := arrayTypes[frame.ReadU8()]
		if !ok {
			return Value{}, false, fmt.Errorf("newarray: invalid atype")
		}
		v, err := m.ev.NewArray("["+elem, frame.Pop().Int)
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(v)

	case OpAnewarray:
		name, err := classfile.GetClassName(m.def.Pool, frame.ReadU16())
		if err != nil {
			return Value{}, false, fmt.Errorf("anewarray: %w", err)
		}
		v, err := m.ev.NewArray("["+classfile.TypeDescriptor(name), frame.Pop().Int)
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(v)

	case OpMultianewarray:
		desc, err := classfile.GetClassName(m.def.Pool, frame.ReadU16())
		if err != nil {
			return Value{}, false, fmt.Errorf("multianewarray: %w", err)
		}
		counts := frame.PopN(int(frame.ReadU8()))
		dims := make([]int32, len(counts))
		for i, c := range counts {
			dims[i] = c.Int
		}
		v, err := m.ev.NewMultiDimensionalArray(desc, dims)
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(v)

	case OpArraylength:
		arr := frame.Pop()
		if arr.IsNull() {
			return Value{}, false, m.nullPointer("arraylength on null")
		}
		n, err := m.ev.GetArrayLength(arr)
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(IntValue(n))

	// --- Stack manipulation ---
	case OpPop:
		frame.Pop()

	case OpPop2:
		if v := frame.Pop(); !v.Wide() {
			frame.Pop()
		}

	case OpDup:
		v := frame.Peek()
		frame.Push(v)

	case OpDupX1:
		v1 := frame.Pop()
		v2 := frame.Pop()
		frame.Push(v1)
		frame.Push(v2)
		frame.Push(v1)

	case OpDupX2:
		v1 := frame.Pop()
		v2 := frame.Pop()
		if v2.Wide() {
			pushAll(frame, v1, v2, v1)
			break
		}
		v3 := frame.Pop()
		pushAll(frame, v1, v3, v2, v1)

	case OpDup2:
		v1 := frame.Pop()
		if v1.Wide() {
			pushAll(frame, v1, v1)
			break
		}
		v2 := frame.Pop()
		pushAll(frame, v2, v1, v2, v1)

	case OpDup2X1:
		v1 := frame.Pop()
		v2 := frame.Pop()
		if v1.Wide() {
			pushAll(frame, v1, v2, v1)
			break
		}
		v3 := frame.Pop()
		pushAll(frame, v2, v1, v3, v2, v1)

	case OpDup2X2:
		v1 := frame.Pop()
		v2 := frame.Pop()
		switch {
		case v1.Wide() && v2.Wide():
			pushAll(frame, v1, v2, v1)
		case v1.Wide():
			v3 := frame.Pop()
			pushAll(frame, v1, v3, v2, v1)
		default:
			v3 := frame.Pop()
			if v3.Wide() {
				pushAll(frame, v2, v1, v3, v2, v1)
				break
			}
			v4 := frame.Pop()
			pushAll(frame, v2, v1, v4, v3, v2, v1)
		}

	case OpSwap:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(v2)
		frame.Push(v1)

	// --- Arithmetic ---
	case OpIadd, OpIsub, OpImul, OpIdiv, OpIrem, OpIshl, OpIshr, OpIushr, OpIand, OpIor, OpIxor:
		v2 := frame.Pop()
		v1 := frame.Pop()
		if (opcode == OpIdiv || opcode == OpIrem) && v2.Int == 0 {
			return Value{}, false, m.raise("java/lang/ArithmeticException", "/ by zero")
		}
		frame.Push(IntValue(intOp(opcode, v1.Int, v2.Int)))

	case OpLadd, OpLsub, OpLmul, OpLdiv, OpLrem, OpLand, OpLor, OpLxor:
		v2 := frame.Pop()
		v1 := frame.Pop()
		if (opcode == OpLdiv || opcode == OpLrem) && v2.Long == 0 {
			return Value{}, false, m.raise("java/lang/ArithmeticException", "/ by zero")
		}
		frame.Push(LongValue(longOp(opcode, v1.Long, v2.Long)))

	case OpLshl, OpLshr, OpLushr:
		v2 := frame.Pop()
		v1 := frame.Pop()
		shift := uint(v2.Int) & 0x3f
		switch opcode {
		case OpLshl:
			frame.Push(LongValue(v1.Long << shift))
		case OpLshr:
			frame.Push(LongValue(v1.Long >> shift))
		default:
			frame.Push(LongValue(int64(uint64(v1.Long) >> shift)))
		}

	case OpFadd, OpFsub, OpFmul, OpFdiv, OpFrem:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(FloatValue(float32(floatOp(opcode-OpFadd, float64(v1.Float), float64(v2.Float)))))

	case OpDadd, OpDsub, OpDmul, OpDdiv, OpDrem:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(DoubleValue(floatOp(opcode-OpDadd, v1.Double, v2.Double)))

	case OpIneg:
		frame.Push(IntValue(-frame.Pop().Int))
	case OpLneg:
		frame.Push(LongValue(-frame.Pop().Long))
	case OpFneg:
		frame.Push(FloatValue(-frame.Pop().Float))
	case OpDneg:
		frame.Push(DoubleValue(-frame.Pop().Double))

	// --- Type conversions ---
	case OpI2l:
		frame.Push(LongValue(int64(frame.Pop().Int)))
	case OpI2f:
		frame.Push(FloatValue(float32(frame.Pop().Int)))
	case OpI2d:
		frame.Push(DoubleValue(float64(frame.Pop().Int)))
	case OpL2i:
		frame.Push(IntValue(int32(frame.Pop().Long)))
	case OpL2f:
		frame.Push(FloatValue(float32(frame.Pop().Long)))
	case OpL2d:
		frame.Push(DoubleValue(float64(frame.Pop().Long)))
	case OpF2i:
		frame.Push(IntValue(f2i(float64(frame.Pop().Float))))
	case OpF2l:
		frame.Push(LongValue(f2l(float64(frame.Pop().Float))))
	case OpF2d:
		frame.Push(DoubleValue(float64(frame.Pop().Float)))
	case OpD2i:
		frame.Push(IntValue(f2i(frame.Pop().Double)))
	case OpD2l:
		frame.Push(LongValue(f2l(frame.Pop().Double)))
	case OpD2f:
		frame.Push(FloatValue(float32(frame.Pop().Double)))
	case OpI2b:
		frame.Push(IntValue(int32(int8(frame.Pop().Int))))
	case OpI2c:
		frame.Push(IntValue(int32(uint16(frame.Pop().Int))))
	case OpI2s:
		frame.Push(IntValue(int32(int16(frame.Pop().Int))))

	// --- Comparisons ---
	case OpLcmp:
		v2 := frame.Pop()
		v1 := frame.Pop()
		switch {
		case v1.Long > v2.Long:
			frame.Push(IntValue(1))
		case v1.Long < v2.Long:
			frame.Push(IntValue(-1))
		default:
			frame.Push(IntValue(0))
		}

	case OpFcmpl, OpFcmpg:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(IntValue(compareFloat(float64(v1.Float), float64(v2.Float), opcode == OpFcmpg)))

	case OpDcmpl, OpDcmpg:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(IntValue(compareFloat(v1.Double, v2.Double, opcode == OpDcmpg)))

	// --- Branches ---
	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle:
		offset := frame.ReadI16()
		if intCond(opcode-OpIfeq, frame.Pop().Int, 0) {
			frame.PC = m.pc + int(offset)
		}

	case OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple:
		offset := frame.ReadI16()
		v2 := frame.Pop()
		v1 := frame.Pop()
		if intCond(opcode-OpIfIcmpeq, v1.Int, v2.Int) {
			frame.PC = m.pc + int(offset)
		}

	case OpIfAcmpeq, OpIfAcmpne:
		offset := frame.ReadI16()
		v2 := frame.Pop()
		v1 := frame.Pop()
		if sameRef(v1, v2) == (opcode == OpIfAcmpeq) {
			frame.PC = m.pc + int(offset)
		}

	case OpIfnull, OpIfnonnull:
		offset := frame.ReadI16()
		if frame.Pop().IsNull() == (opcode == OpIfnull) {
			frame.PC = m.pc + int(offset)
		}

	case OpGoto:
		offset := frame.ReadI16()
		frame.PC = m.pc + int(offset)

	case OpGotoW:
		offset := frame.ReadI32()
		frame.PC = m.pc + int(offset)

	case OpTableswitch:
		frame.Align()
		defaultOffset := frame.ReadI32()
		low := frame.ReadI32()
		high := frame.ReadI32()
		offsets := make([]int32, int(high-low+1))
		for i := range offsets {
			offsets[i] = frame.ReadI32()
		}
		index := frame.Pop().Int
		if index >= low && index <= high {
			frame.PC = m.pc + int(offsets[index-low])
		} else {
			frame.PC = m.pc + int(defaultOffset)
		}

	case OpLookupswitch:
		frame.Align()
		defaultOffset := frame.ReadI32()
		npairs := frame.ReadI32()
		key := frame.Pop().Int
		target := m.pc + int(defaultOffset)
		for i := int32(0); i < npairs; i++ {
			match := frame.ReadI32()
			offset := frame.ReadI32()
			if key == match {
				target = m.pc + int(offset)
			}
		}
		frame.PC = target

	case OpJsr, OpJsrW, OpRet, OpInvokedynamic:
		return Value{}, false, fmt.Errorf("%w: 0x%02X", ErrUnsupportedOpcode, opcode)

	// --- Return ---
	case OpIreturn, OpLreturn, OpFreturn, OpDreturn, OpAreturn:
		v, err := Coerce(frame.Pop(), m.method.Type.Return)
		if err != nil {
			return Value{}, false, fmt.Errorf("return: %w", err)
		}
		return v, true, nil

	case OpReturn:
		return Void, true, nil

	// --- Fields ---
	case OpGetstatic, OpPutstatic, OpGetfield, OpPutfield:
		return Value{}, false, m.executeFieldAccess(frame, opcode)

	// --- Invocation ---
	case OpInvokevirtual, OpInvokespecial, OpInvokestatic, OpInvokeinterface:
		return Value{}, false, m.executeInvoke(frame, opcode)

	// --- Objects ---
	case OpNew:
		name, err := classfile.GetClassName(m.def.Pool, frame.ReadU16())
		if err != nil {
			return Value{}, false, fmt.Errorf("new: %w", err)
		}
		frame.Push(RefValue(&Uninitialized{Class: name}, classfile.TypeDescriptor(name)))

	case OpAthrow:
		exc := frame.Pop()
		if exc.IsNull() {
			return Value{}, false, m.nullPointer("throw of null")
		}
		return Value{}, false, &Thrown{Value: exc, Class: classfile.TypeName(exc.Desc)}

	case OpCheckcast:
		name, err := classfile.GetClassName(m.def.Pool, frame.ReadU16())
		if err != nil {
			return Value{}, false, fmt.Errorf("checkcast: %w", err)
		}
		v := frame.Pop()
		if !v.IsNull() {
			ok, err := m.ev.IsInstanceOf(v, name)
			if err != nil {
				return Value{}, false, err
			}
			if !ok {
				return Value{}, false, m.raise("java/lang/ClassCastException", "cannot cast to "+name)
			}
		}
		frame.Push(RefValue(v.Ref, classfile.TypeDescriptor(name)))

	case OpInstanceof:
		name, err := classfile.GetClassName(m.def.Pool, frame.ReadU16())
		if err != nil {
			return Value{}, false, fmt.Errorf("instanceof: %w", err)
		}
		v := frame.Pop()
		if v.IsNull() {
			frame.Push(IntValue(0))
			break
		}
		ok, err := m.ev.IsInstanceOf(v, name)
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(BoolValue(ok))

	case OpMonitorenter, OpMonitorexit:
		v := frame.Pop()
		if v.IsNull() {
			return Value{}, false, m.nullPointer("monitor on null")
		}
		if opcode == OpMonitorenter {
			return Value{}, false, m.ev.MonitorEnter(v)
		}
		return Value{}, false, m.ev.MonitorExit(v)

	default:
		return Value{}, false, fmt.Errorf("unknown opcode: 0x%02X at PC=%d", opcode, m.pc)
	}

	return Value{}, false, nil
}

// executeLdc handles ldc and ldc_w.
func (m *machine) executeLdc(frame *Frame, index uint16) error {
	pool := m.def.Pool
	if int(index) >= len(pool) || pool[index] == nil {
		return fmt.Errorf("ldc: invalid constant pool index %d", index)
	}

	switch c := pool[index].(type) {
	case *classfile.ConstantInteger:
		frame.Push(IntValue(c.Value))
	case *classfile.ConstantFloat:
		frame.Push(FloatValue(c.Value))
	case *classfile.ConstantString:
		str, err := classfile.GetUtf8(pool, c.StringIndex)
		if err != nil {
			return fmt.Errorf("ldc: resolving string: %w", err)
		}
		v, err := m.ev.LoadString(str)
		if err != nil {
			return err
		}
		frame.Push(v)
	case *classfile.ConstantClass:
		name, err := classfile.GetUtf8(pool, c.NameIndex)
		if err != nil {
			return fmt.Errorf("ldc: resolving class: %w", err)
		}
		v, err := m.ev.LoadClass(name)
		if err != nil {
			return err
		}
		frame.Push(v)
	default:
		return fmt.Errorf("ldc: unsupported constant pool entry type at index %d (tag=%d)", index, c.Tag())
	}
	return nil
}

// executeWide handles the wide prefix: a 16-bit local index, and for iinc a
// 16-bit increment.
func (m *machine) executeWide(frame *Frame) error {
	opcode := frame.ReadU8()
	index := int(frame.ReadU16())
	switch opcode {
	case OpIload, OpLload, OpFload, OpDload, OpAload:
		frame.Push(frame.GetLocal(index))
	case OpIstore, OpLstore, OpFstore, OpDstore, OpAstore:
		frame.SetLocal(index, frame.Pop())
	case OpIinc:
		delta := int32(frame.ReadI16())
		frame.SetLocal(index, IntValue(frame.GetLocal(index).Int+delta))
	case OpRet:
		return fmt.Errorf("%w: wide ret", ErrUnsupportedOpcode)
	default:
		return fmt.Errorf("wide: invalid opcode 0x%02X", opcode)
	}
	return nil
}

func (m *machine) executeFieldAccess(frame *Frame, opcode byte) error {
	ref, err := classfile.ResolveFieldref(m.def.Pool, frame.ReadU16())
	if err != nil {
		return fmt.Errorf("field access: %w", err)
	}

	switch opcode {
	case OpGetstatic:
		v, err := m.ev.GetStaticField(ref.ClassName, ref.Name, ref.Descriptor)
		if err != nil {
			return err
		}
		frame.Push(v)

	case OpPutstatic:
		v, err := Coerce(frame.Pop(), ref.Descriptor)
		if err != nil {
			return fmt.Errorf("putstatic %s: %w", ref, err)
		}
		return m.ev.SetStaticField(ref.ClassName, ref.Name, ref.Descriptor, v)

	case OpGetfield:
		obj := frame.Pop()
		if obj.IsNull() {
			return m.nullPointer("getfield " + ref.Name + " on null")
		}
		v, err := m.ev.GetField(obj, ref.ClassName, ref.Name, ref.Descriptor)
		if err != nil {
			return err
		}
		frame.Push(v)

	case OpPutfield:
		v, err := Coerce(frame.Pop(), ref.Descriptor)
		if err != nil {
			return fmt.Errorf("putfield %s: %w", ref, err)
		}
		obj := frame.Pop()
		if obj.IsNull() {
			return m.nullPointer("putfield " + ref.Name + " on null")
		}
		return m.ev.SetField(obj, ref.ClassName, ref.Name, ref.Descriptor, v)
	}
	return nil
}

func (m *machine) executeInvoke(frame *Frame, opcode byte) error {
	ref, err := classfile.ResolveMethodref(m.def.Pool, frame.ReadU16())
	if err != nil {
		return fmt.Errorf("invoke: %w", err)
	}
	if opcode == OpInvokeinterface {
		frame.ReadU8() // count
		frame.ReadU8() // always 0
	}
	mt, err := classfile.ParseMethodDescriptor(ref.Descriptor)
	if err != nil {
		return fmt.Errorf("invoke %s: %w", ref, err)
	}
	args := frame.PopN(len(mt.Params))

	var result Value
	if opcode == OpInvokestatic {
		result, err = m.ev.InvokeStatic(ref.ClassName, ref.Name, ref.Descriptor, args)
	} else {
		recv := frame.Pop()
		if recv.IsNull() {
			return m.nullPointer("invoke " + ref.Name + " on null")
		}
		if u, ok := recv.Ref.(*Uninitialized); ok && opcode == OpInvokespecial && ref.Name == "<init>" {
			obj, err := m.ev.NewInstance(ref.ClassName, ref.Descriptor, args)
			if err != nil {
				return err
			}
			if obj.Desc == "" {
				obj = RefValue(obj.Ref, classfile.TypeDescriptor(u.Class))
			}
			frame.Replace(u, obj)
			return nil
		}
		switch opcode {
		case OpInvokevirtual:
			result, err = m.ev.InvokeVirtual(recv, ref.ClassName, ref.Name, ref.Descriptor, args)
		case OpInvokespecial:
			result, err = m.ev.InvokeSpecial(recv, ref.ClassName, ref.Name, ref.Descriptor, args)
		default:
			result, err = m.ev.InvokeInterface(recv, ref.ClassName, ref.Name, ref.Descriptor, args)
		}
	}
	if err != nil {
		return err
	}

	if mt.Return != "V" {
		v, err := Coerce(result, mt.Return)
		if err != nil {
			return fmt.Errorf("result of %s: %w", ref, err)
		}
		frame.Push(v)
	}
	return nil
}

// elementDesc returns the element descriptor an array load implies.
func elementDesc(opcode byte, arr Value) string {
	switch opcode {
	case OpIaload:
		return "I"
	case OpLaload:
		return "J"
	case OpFaload:
		return "F"
	case OpDaload:
		return "D"
	case OpBaload:
		if arr.Desc == "[Z" {
			return "Z"
		}
		return "B"
	case OpCaload:
		return "C"
	case OpSaload:
		return "S"
	}
	if len(arr.Desc) > 1 && arr.Desc[0] == '[' {
		return arr.Desc[1:]
	}
	return "Ljava/lang/Object;"
}

func pushAll(frame *Frame, vs ...Value) {
	for _, v := range vs {
		frame.Push(v)
	}
}

func intOp(opcode byte, a, b int32) int32 {
	switch opcode {
	case OpIadd:
		return a + b
	case OpIsub:
		return a - b
	case OpImul:
		return a * b
	case OpIdiv:
		return a / b
	case OpIrem:
		return a % b
	case OpIshl:
		return a << (uint(b) & 0x1f)
	case OpIshr:
		return a >> (uint(b) & 0x1f)
	case OpIushr:
		return int32(uint32(a) >> (uint(b) & 0x1f))
	case OpIand:
		return a & b
	case OpIor:
		return a | b
	}
	return a ^ b
}

func longOp(opcode byte, a, b int64) int64 {
	switch opcode {
	case OpLadd:
		return a + b
	case OpLsub:
		return a - b
	case OpLmul:
		return a * b
	case OpLdiv:
		return a / b
	case OpLrem:
		return a % b
	case OpLand:
		return a & b
	case OpLor:
		return a | b
	}
	return a ^ b
}

// floatOp applies add, sub, mul, div or rem, selected by the offset of the
// opcode from its add variant. Opcodes of one type are four apart.
func floatOp(rel byte, a, b float64) float64 {
	switch rel / 4 {
	case 0:
		return a + b
	case 1:
		return a - b
	case 2:
		return a * b
	case 3:
		return a / b
	}
	return math.Mod(a, b)
}

// compareFloat implements fcmp/dcmp; NaN yields 1 for the g variants and -1
// for the l variants.
func compareFloat(a, b float64, nanIsGreater bool) int32 {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		if nanIsGreater {
			return 1
		}
		return -1
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}

// intCond evaluates the condition of ifeq..ifle and if_icmpeq..if_icmple,
// indexed by the opcode's offset from its eq variant.
func intCond(rel byte, a, b int32) bool {
	switch rel {
	case 0:
		return a == b
	case 1:
		return a != b
	case 2:
		return a < b
	case 3:
		return a >= b
	case 4:
		return a > b
	}
	return a <= b
}

func sameRef(a, b Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	return a.Ref == b.Ref
}
