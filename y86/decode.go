package y86

import (
	"encoding/binary"
	"fmt"
)

// Decode reads one instruction from the byte image starting at ip and
// returns the statement record along with its encoded size. It is the
// exact inverse of the encoding pass: for every instruction, decoding
// the encoder's output yields the original record, and re-encoding a
// decoded record yields the original bytes.
func Decode(image []byte, ip int64) (Statement, int64, error) {
	if ip < 0 || ip >= int64(len(image)) {
		return Statement{}, 0, fmt.Errorf("IP out of range: %d", ip)
	}

	byte0 := image[ip]
	opcode := byte0 >> 4
	fn := byte0 & 0x0F

	switch opcode {
	case opHalt, opNop, opRet:
		if fn != 0 {
			return Statement{}, 0, fmt.Errorf("invalid function code %#x for opcode %#x", fn, opcode)
		}
		kinds := map[byte]StmtKind{opHalt: StmtHalt, opNop: StmtNop, opRet: StmtRet}
		return Statement{Kind: kinds[opcode]}, 1, nil

	case opCmov:
		if fn > byte(Gt) {
			return Statement{}, 0, fmt.Errorf("invalid condition code: %#x", fn)
		}
		src, dst, err := decodeRegisterPair(image, ip+1)
		if err != nil {
			return Statement{}, 0, err
		}
		return Statement{Kind: StmtCmov, Cond: CondOp(fn), Src: src, Dst: dst}, 2, nil

	case opIrmov:
		if fn != 0 {
			return Statement{}, 0, fmt.Errorf("invalid function code %#x for opcode %#x", fn, opcode)
		}
		regByte, err := fetchByte(image, ip+1)
		if err != nil {
			return Statement{}, 0, err
		}
		if regByte>>4 != noRegister {
			return Statement{}, 0, fmt.Errorf("invalid register A: %d", regByte>>4)
		}
		dst, ok := registerFromCode(regByte & 0x0F)
		if !ok {
			return Statement{}, 0, fmt.Errorf("invalid register B: %d", regByte&0x0F)
		}
		imm, err := fetchQuad(image, ip+2)
		if err != nil {
			return Statement{}, 0, err
		}
		return Statement{Kind: StmtIrmov, Val: Immediate(imm), Dst: dst}, 10, nil

	case opRmmov, opMrmov:
		if fn != 0 {
			return Statement{}, 0, fmt.Errorf("invalid function code %#x for opcode %#x", fn, opcode)
		}
		ra, rb, err := decodeRegisterPair(image, ip+1)
		if err != nil {
			return Statement{}, 0, err
		}
		disp, err := fetchQuad(image, ip+2)
		if err != nil {
			return Statement{}, 0, err
		}
		if opcode == opRmmov {
			return Statement{Kind: StmtRmmov, Src: ra, Disp: disp, Base: rb}, 10, nil
		}
		return Statement{Kind: StmtMrmov, Disp: disp, Base: rb, Dst: ra}, 10, nil

	case opBinop:
		if fn > byte(Xor) {
			return Statement{}, 0, fmt.Errorf("invalid ALU function code: %#x", fn)
		}
		src, dst, err := decodeRegisterPair(image, ip+1)
		if err != nil {
			return Statement{}, 0, err
		}
		return Statement{Kind: StmtBinop, Op: BinaryOp(fn), Src: src, Dst: dst}, 2, nil

	case opJmp:
		if fn > byte(Gt) {
			return Statement{}, 0, fmt.Errorf("invalid condition code: %#x", fn)
		}
		target, err := fetchQuad(image, ip+1)
		if err != nil {
			return Statement{}, 0, err
		}
		return Statement{Kind: StmtJmp, Cond: CondOp(fn), Val: Immediate(target)}, 9, nil

	case opCall:
		if fn != 0 {
			return Statement{}, 0, fmt.Errorf("invalid function code %#x for opcode %#x", fn, opcode)
		}
		target, err := fetchQuad(image, ip+1)
		if err != nil {
			return Statement{}, 0, err
		}
		return Statement{Kind: StmtCall, Val: Immediate(target)}, 9, nil

	case opPush, opPop:
		if fn != 0 {
			return Statement{}, 0, fmt.Errorf("invalid function code %#x for opcode %#x", fn, opcode)
		}
		regByte, err := fetchByte(image, ip+1)
		if err != nil {
			return Statement{}, 0, err
		}
		if regByte&0x0F != noRegister {
			return Statement{}, 0, fmt.Errorf("invalid register B: %d", regByte&0x0F)
		}
		reg, ok := registerFromCode(regByte >> 4)
		if !ok {
			return Statement{}, 0, fmt.Errorf("invalid register A: %d", regByte>>4)
		}
		if opcode == opPush {
			return Statement{Kind: StmtPush, Src: reg}, 2, nil
		}
		return Statement{Kind: StmtPop, Src: reg}, 2, nil
	}

	return Statement{}, 0, fmt.Errorf("unknown opcode: %#x", opcode)
}

func fetchByte(image []byte, ptr int64) (byte, error) {
	if ptr < 0 || ptr >= int64(len(image)) {
		return 0, fmt.Errorf("truncated instruction at %d", ptr)
	}
	return image[ptr], nil
}

func fetchQuad(image []byte, ptr int64) (int64, error) {
	if ptr < 0 || ptr+8 > int64(len(image)) {
		return 0, fmt.Errorf("truncated instruction at %d", ptr)
	}
	return int64(binary.LittleEndian.Uint64(image[ptr:])), nil
}

func decodeRegisterPair(image []byte, ptr int64) (Register, Register, error) {
	regByte, err := fetchByte(image, ptr)
	if err != nil {
		return 0, 0, err
	}
	ra, ok := registerFromCode(regByte >> 4)
	if !ok {
		return 0, 0, fmt.Errorf("invalid register A: %d", regByte>>4)
	}
	rb, ok := registerFromCode(regByte & 0x0F)
	if !ok {
		return 0, 0, fmt.Errorf("invalid register B: %d", regByte&0x0F)
	}
	return ra, rb, nil
}
