package interp

import (
	"fmt"
)

// Frame represents a stack frame for method execution. Each operand stack
// entry holds one Value regardless of its category; locals follow the class
// file layout, where long and double take two slots.
type Frame struct {
	LocalVars    []Value
	OperandStack []Value
	SP           int
	Code         []byte
	PC           int
}

// NewFrame creates a new Frame with the given parameters.
func NewFrame(maxLocals, maxStack uint16, code []byte) *Frame {
	return &Frame{
		LocalVars:    make([]Value, maxLocals),
		OperandStack: make([]Value, maxStack),
		Code:         code,
	}
}

// Push pushes a value onto the operand stack.
func (f *Frame) Push(v Value) {
	if f.SP >= len(f.OperandStack) {
		panic(fmt.Sprintf("operand stack overflow: SP=%d, max=%d", f.SP, len(f.OperandStack)))
	}
	f.OperandStack[f.SP] = v
	f.SP++
}

// Pop pops a value from the operand stack.
func (f *Frame) Pop() Value {
	if f.SP <= 0 {
		panic("operand stack underflow: SP=0")
	}
	f.SP--
	v := f.OperandStack[f.SP]
	f.OperandStack[f.SP] = Value{}
	return v
}

// PopN pops n values and returns them in push order.
func (f *Frame) PopN(n int) []Value {
	if n > f.SP {
		panic(fmt.Sprintf("operand stack underflow: SP=%d, need %d", f.SP, n))
	}
	out := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = f.Pop()
	}
	return out
}

// Peek returns the top of the operand stack without removing it.
func (f *Frame) Peek() Value {
	if f.SP <= 0 {
		panic("operand stack underflow: SP=0")
	}
	return f.OperandStack[f.SP-1]
}

// Clear empties the operand stack.
func (f *Frame) Clear() {
	for i := 0; i < f.SP; i++ {
		f.OperandStack[i] = Value{}
	}
	f.SP = 0
}

// GetLocal returns the value at the given local variable index.
func (f *Frame) GetLocal(index int) Value {
	if index < 0 || index >= len(f.LocalVars) {
		panic(fmt.Sprintf("local variable index out of range: index=%d, max=%d", index, len(f.LocalVars)))
	}
	return f.LocalVars[index]
}

// SetLocal sets the value at the given local variable index. A long or
// double also invalidates the following slot.
func (f *Frame) SetLocal(index int, v Value) {
	if index < 0 || index >= len(f.LocalVars) {
		panic(fmt.Sprintf("local variable index out of range: index=%d, max=%d", index, len(f.LocalVars)))
	}
	f.LocalVars[index] = v
	if v.Wide() {
		if index+1 >= len(f.LocalVars) {
			panic(fmt.Sprintf("local variable index out of range: index=%d, max=%d", index+1, len(f.LocalVars)))
		}
		f.LocalVars[index+1] = Value{}
	}
}

// Replace swaps every occurrence of the reference old, on the stack and in
// locals, for v.
func (f *Frame) Replace(old any, v Value) {
	for i := 0; i < f.SP; i++ {
		if f.OperandStack[i].Ref == old {
			f.OperandStack[i] = v
		}
	}
	for i := range f.LocalVars {
		if f.LocalVars[i].Ref == old {
			f.LocalVars[i] = v
		}
	}
}

// ReadU8 reads a uint8 operand and advances PC.
func (f *Frame) ReadU8() uint8 {
	val := f.Code[f.PC]
	f.PC++
	return val
}

// ReadI8 reads an int8 operand and advances PC.
func (f *Frame) ReadI8() int8 {
	val := int8(f.Code[f.PC])
	f.PC++
	return val
}

// ReadU16 reads a uint16 operand (big-endian) and advances PC by 2.
func (f *Frame) ReadU16() uint16 {
	val := uint16(f.Code[f.PC])<<8 | uint16(f.Code[f.PC+1])
	f.PC += 2
	return val
}

// ReadI16 reads an int16 operand (big-endian) and advances PC by 2.
func (f *Frame) ReadI16() int16 {
	return int16(f.ReadU16())
}

// ReadI32 reads an int32 operand (big-endian) and advances PC by 4.
func (f *Frame) ReadI32() int32 {
	val := uint32(f.Code[f.PC])<<24 | uint32(f.Code[f.PC+1])<<16 | uint32(f.Code[f.PC+2])<<8 | uint32(f.Code[f.PC+3])
	f.PC += 4
	return int32(val)
}

// Align skips switch padding up to the next multiple of four.
func (f *Frame) Align() {
	for f.PC%4 != 0 {
		f.PC++
	}
}
