package classfile

import (
	"encoding/binary"
	"fmt"
)

// Opcodes that carry a constant pool operand.
const (
	OpLdc             = 0x12
	OpLdcW            = 0x13
	OpLdc2W           = 0x14
	OpGetStatic       = 0xb2
	OpPutStatic       = 0xb3
	OpGetField        = 0xb4
	OpPutField        = 0xb5
	OpInvokeVirtual   = 0xb6
	OpInvokeSpecial   = 0xb7
	OpInvokeStatic    = 0xb8
	OpInvokeInterface = 0xb9
	OpInvokeDynamic   = 0xba
	OpNew             = 0xbb
	OpANewArray       = 0xbd
	OpCheckCast       = 0xc0
	OpInstanceOf      = 0xc1
	OpMultiANewArray  = 0xc5

	opTableSwitch  = 0xaa
	opLookupSwitch = 0xab
	opWide         = 0xc4
	opIinc         = 0x84
)

// Instruction is a decoded instruction position. PoolIndex is set for instructions with a
// constant pool operand.
type Instruction struct {
	PC        int
	Op        byte
	Len       int
	PoolIndex uint16
	HasPool   bool
}

// Instructions decodes the instruction boundaries of a method body.
func Instructions(code []byte) ([]Instruction, error) {
	var out []Instruction

	for pc := 0; pc < len(code); {
		op := code[pc]

		n, err := insnLen(code, pc)
		if err != nil {
			return nil, err
		}

		if pc+n > len(code) {
			return nil, fmt.Errorf("%w: instruction 0x%02x at %d overruns the code", ErrTruncated, op, pc)
		}

		in := Instruction{PC: pc, Op: op, Len: n}

		switch op {
		case OpLdc:
			in.PoolIndex, in.HasPool = uint16(code[pc+1]), true
		case OpLdcW, OpLdc2W, OpGetStatic, OpPutStatic, OpGetField, OpPutField,
			OpInvokeVirtual, OpInvokeSpecial, OpInvokeStatic, OpInvokeInterface, OpInvokeDynamic,
			OpNew, OpANewArray, OpCheckCast, OpInstanceOf, OpMultiANewArray:
			in.PoolIndex, in.HasPool = binary.BigEndian.Uint16(code[pc+1:]), true
		}

		out = append(out, in)
		pc += n
	}

	return out, nil
}

func insnLen(code []byte, pc int) (int, error) {
	op := code[pc]

	switch {
	case op <= 0x0f:
		return 1, nil
	case op == 0x10, op == OpLdc:
		return 2, nil
	case op == 0x11, op == OpLdcW, op == OpLdc2W:
		return 3, nil
	case op >= 0x15 && op <= 0x19:
		return 2, nil
	case op >= 0x1a && op <= 0x35:
		return 1, nil
	case op >= 0x36 && op <= 0x3a:
		return 2, nil
	case op >= 0x3b && op <= 0x83:
		return 1, nil
	case op == opIinc:
		return 3, nil
	case op >= 0x85 && op <= 0x98:
		return 1, nil
	case op >= 0x99 && op <= 0xa8:
		return 3, nil
	case op == 0xa9:
		return 2, nil
	case op == opTableSwitch, op == opLookupSwitch:
		return switchLen(code, pc)
	case op >= 0xac && op <= 0xb1:
		return 1, nil
	case op >= OpGetStatic && op <= OpInvokeStatic:
		return 3, nil
	case op == OpInvokeInterface, op == OpInvokeDynamic:
		return 5, nil
	case op == OpNew:
		return 3, nil
	case op == 0xbc:
		return 2, nil
	case op == OpANewArray:
		return 3, nil
	case op == 0xbe, op == 0xbf:
		return 1, nil
	case op == OpCheckCast, op == OpInstanceOf:
		return 3, nil
	case op == 0xc2, op == 0xc3:
		return 1, nil
	case op == opWide:
		if pc+1 < len(code) && code[pc+1] == opIinc {
			return 6, nil
		}

		return 4, nil
	case op == OpMultiANewArray:
		return 4, nil
	case op == 0xc6, op == 0xc7:
		return 3, nil
	case op == 0xc8, op == 0xc9:
		return 5, nil
	case op == 0xca, op == 0xfe, op == 0xff:
		return 1, nil
	}

	return 0, fmt.Errorf("%w: unknown opcode 0x%02x at %d", ErrMalformed, op, pc)
}

func switchLen(code []byte, pc int) (int, error) {
	// operands start at the first 4-byte aligned offset after the opcode
	base := (pc + 4) &^ 3

	word := func(at int) (int32, error) {
		if at+4 > len(code) {
			return 0, fmt.Errorf("%w: switch at %d", ErrTruncated, pc)
		}

		return int32(binary.BigEndian.Uint32(code[at:])), nil
	}

	if code[pc] == opTableSwitch {
		low, err := word(base + 4)
		if err != nil {
			return 0, err
		}

		high, err := word(base + 8)
		if err != nil {
			return 0, err
		}

		if high < low {
			return 0, fmt.Errorf("%w: tableswitch at %d has high < low", ErrMalformed, pc)
		}

		return base + 12 + 4*int(high-low+1) - pc, nil
	}

	npairs, err := word(base + 4)
	if err != nil {
		return 0, err
	}

	if npairs < 0 {
		return 0, fmt.Errorf("%w: lookupswitch at %d has %d pairs", ErrMalformed, pc, npairs)
	}

	return base + 8 + 8*int(npairs) - pc, nil
}

// rewriteStackMap copies a StackMapTable, passing the pool index of every Object
// verification type through fn.
func rewriteStackMap(info []byte, fn func(uint16) (uint16, error)) ([]byte, error) {
	r := newReader(info)
	out := make([]byte, 0, len(info))

	u2 := func() uint16 {
		v := r.u2()
		out = appendU2(out, v)

		return v
	}

	vtypes := func(n int) error {
		for range n {
			tag := r.u1()
			out = append(out, tag)

			switch tag {
			case 7:
				idx, err := fn(r.u2())
				if err != nil {
					return err
				}

				out = appendU2(out, idx)
			case 8:
				u2()
			}

			if r.err != nil {
				return r.err
			}
		}

		return nil
	}

	n := int(u2())

	for range n {
		ft := r.u1()
		out = append(out, ft)

		var err error

		switch {
		case ft <= 63:
		case ft <= 127:
			err = vtypes(1)
		case ft == 247:
			u2()
			err = vtypes(1)
		case ft >= 248 && ft <= 251:
			u2()
		case ft >= 252 && ft <= 254:
			u2()
			err = vtypes(int(ft) - 251)
		case ft == 255:
			u2()
			if err = vtypes(int(u2())); err == nil {
				err = vtypes(int(u2()))
			}
		default:
			err = fmt.Errorf("%w: reserved stack map frame type %d", ErrMalformed, ft)
		}

		if err != nil {
			return nil, err
		}
	}

	if err := r.done(); err != nil {
		return nil, fmt.Errorf("stack map table: %w", err)
	}

	return out, nil
}
