package y86

import "fmt"

/*
	Y86-64 machine model:
			- little endian
			- 64-bit registers and immediates
			- 13 named registers with fixed encoding codes 0-12
			- register code 0xF is the "no register" slot in encodings
			- 4 ALU operations, 7 condition forms
			- stack grows downward through %rsp

	An assembly program is a flat sequence of statements. Labels and
	directives occupy statement slots but only directives emit bytes.
	Every instruction has a fixed encoded size:

			halt/nop/ret           1 byte   (opcode)
			cmov/binop/push/pop    2 bytes  (opcode, register byte)
			jXX/call               9 bytes  (opcode, 8-byte target)
			irmovq/rmmovq/mrmovq  10 bytes  (opcode, register byte, 8-byte immediate)

	The opcode byte packs the instruction class in the high nibble and
	the condition or ALU function in the low nibble. The register byte
	packs two register codes, with 0xF filling the unused slot.
*/

// Register codes are part of the binary contract: they appear verbatim
// in encoded register bytes.
type Register int8

const (
	Rax Register = 0
	Rbx Register = 1
	Rcx Register = 2
	Rdx Register = 3
	Rdi Register = 4
	Rsi Register = 5
	Rsp Register = 6
	Rbp Register = 7
	R8  Register = 8
	R9  Register = 9
	R10 Register = 10
	R11 Register = 11
	R12 Register = 12

	// NumRegisters is the size of the register file.
	NumRegisters = 13

	// noRegister fills the unused nibble of a register byte.
	noRegister byte = 0xF
)

type BinaryOp byte

const (
	Add BinaryOp = 0
	Sub BinaryOp = 1
	And BinaryOp = 2
	Xor BinaryOp = 3
)

type CondOp byte

const (
	Uncon CondOp = 0
	Le    CondOp = 1
	Lt    CondOp = 2
	Eq    CondOp = 3
	Ne    CondOp = 4
	Ge    CondOp = 5
	Gt    CondOp = 6
)

// StmtKind discriminates the statement record variants.
type StmtKind byte

const (
	StmtLabel StmtKind = iota
	StmtDirective
	StmtHalt
	StmtNop
	StmtIrmov
	StmtRmmov
	StmtMrmov
	StmtBinop
	StmtJmp
	StmtCmov
	StmtCall
	StmtRet
	StmtPush
	StmtPop
)

// Value is a label-or-immediate operand. Labels only survive until the
// assembler resolves them; decoded statements always carry immediates.
type Value struct {
	Label string
	Imm   int64
}

func Labelled(name string) Value { return Value{Label: name} }

func Immediate(v int64) Value { return Value{Imm: v} }

func (v Value) IsLabel() bool { return v.Label != "" }

// Statement is one parsed (or decoded) assembly line. The fields in
// use depend on Kind:
//
//	StmtLabel      Name
//	StmtDirective  Name (".align" or ".quad"), Disp
//	StmtIrmov      Val, Dst
//	StmtRmmov      Src, Disp, Base
//	StmtMrmov      Disp, Base, Dst
//	StmtBinop      Op, Src, Dst
//	StmtJmp        Cond, Val
//	StmtCmov       Cond, Src, Dst (rrmovq is Cmov with Uncon)
//	StmtCall       Val
//	StmtPush/Pop   Src
//
// Line is the 1-based source line, 0 for decoded statements.
type Statement struct {
	Kind StmtKind
	Name string
	Cond CondOp
	Op   BinaryOp
	Src  Register
	Dst  Register
	Base Register
	Disp int64
	Val  Value
	Line int
}

var (
	// Maps from register mnemonic (without the % sigil) -> code
	strToRegMap = map[string]Register{
		"rax": Rax,
		"rbx": Rbx,
		"rcx": Rcx,
		"rdx": Rdx,
		"rdi": Rdi,
		"rsi": Rsi,
		"rsp": Rsp,
		"rbp": Rbp,
		"r8":  R8,
		"r9":  R9,
		"r10": R10,
		"r11": R11,
		"r12": R12,
	}

	// Maps from code -> mnemonic (built from strToRegMap)
	regToStrMap map[Register]string

	binopToStrMap = map[BinaryOp]string{
		Add: "add",
		Sub: "sub",
		And: "and",
		Xor: "xor",
	}

	condToStrMap = map[CondOp]string{
		Uncon: "uncon",
		Le:    "le",
		Lt:    "l",
		Eq:    "e",
		Ne:    "ne",
		Ge:    "ge",
		Gt:    "g",
	}
)

// registerFromCode is the total decoder from an encoded nibble. Codes
// 13-15 are rejected; the 0xF sentinel is handled by the callers that
// expect it.
func registerFromCode(code byte) (Register, bool) {
	if code >= NumRegisters {
		return 0, false
	}
	return Register(code), true
}

func (r Register) String() string {
	str, ok := regToStrMap[r]
	if !ok {
		str = "?reg?"
	}
	return str
}

func (op BinaryOp) String() string {
	str, ok := binopToStrMap[op]
	if !ok {
		str = "?op?"
	}
	return str
}

func (c CondOp) String() string {
	str, ok := condToStrMap[c]
	if !ok {
		str = "?cond?"
	}
	return str
}

func (v Value) String() string {
	if v.IsLabel() {
		return v.Label
	}
	return fmt.Sprintf("%d", v.Imm)
}

// EncodedSize returns the fixed byte size of a statement's encoding.
// Labels are zero; .align is variable and resolved by the layout pass,
// so directives report zero here as well.
func (s Statement) EncodedSize() int64 {
	switch s.Kind {
	case StmtLabel, StmtDirective:
		return 0
	case StmtHalt, StmtNop, StmtRet:
		return 1
	case StmtCmov, StmtBinop, StmtPush, StmtPop:
		return 2
	case StmtJmp, StmtCall:
		return 9
	case StmtIrmov, StmtRmmov, StmtMrmov:
		return 10
	}
	return 0
}

// Allows a statement to be used with Print/Sprint. Non-label lines are
// indented so listings read like assembly source.
func (s Statement) String() string {
	switch s.Kind {
	case StmtLabel:
		return fmt.Sprintf("%s:", s.Name)
	case StmtDirective:
		return fmt.Sprintf("    %s %d", s.Name, s.Disp)
	case StmtHalt:
		return "    halt"
	case StmtNop:
		return "    nop"
	case StmtIrmov:
		return fmt.Sprintf("    irmov %s, %s", s.Val, s.Dst)
	case StmtRmmov:
		return fmt.Sprintf("    rmmov %s, %d(%s)", s.Src, s.Disp, s.Base)
	case StmtMrmov:
		return fmt.Sprintf("    mrmov %d(%s), %s", s.Disp, s.Base, s.Dst)
	case StmtBinop:
		return fmt.Sprintf("    %s %s, %s", s.Op, s.Src, s.Dst)
	case StmtJmp:
		if s.Cond == Uncon {
			return fmt.Sprintf("    jmp %s", s.Val)
		}
		return fmt.Sprintf("    j%s %s", s.Cond, s.Val)
	case StmtCmov:
		if s.Cond == Uncon {
			return fmt.Sprintf("    mov %s, %s", s.Src, s.Dst)
		}
		return fmt.Sprintf("    cmov_%s %s, %s", s.Cond, s.Src, s.Dst)
	case StmtCall:
		return fmt.Sprintf("    call %s", s.Val)
	case StmtRet:
		return "    ret"
	case StmtPush:
		return fmt.Sprintf("    push %s", s.Src)
	case StmtPop:
		return fmt.Sprintf("    pop %s", s.Src)
	}
	return "?stmt?"
}

// This is called when package is first loaded (before main)
func init() {
	// Build code -> mnemonic map using the existing mnemonic -> code map
	regToStrMap = make(map[Register]string, len(strToRegMap))
	for s, r := range strToRegMap {
		regToStrMap[r] = s
	}
}
