package y86

import (
	"encoding/binary"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Instruction class opcodes (high nibble of the first byte). The low
// nibble carries the CondOp or BinaryOp function code where one exists.
const (
	opHalt  byte = 0x0
	opNop   byte = 0x1
	opCmov  byte = 0x2
	opIrmov byte = 0x3
	opRmmov byte = 0x4
	opMrmov byte = 0x5
	opBinop byte = 0x6
	opJmp   byte = 0x7
	opCall  byte = 0x8
	opRet   byte = 0x9
	opPush  byte = 0xA
	opPop   byte = 0xB
)

// ResolveError is fatal at the encoding stage: a reference to a label
// the program never defines, or a label defined twice.
type ResolveError struct {
	Label     string
	Redefined bool
}

func (e *ResolveError) Error() string {
	if e.Redefined {
		return fmt.Sprintf("label '%s' defined more than once", e.Label)
	}
	return fmt.Sprintf("label '%s' not found", e.Label)
}

// AssembledCode is the byte image plus the [start, end) byte range of
// every statement and the resolved label table.
type AssembledCode struct {
	Bytes      []byte
	LineRanges [][2]int
	Labels     map[string]int64
}

// Assemble lays out and encodes a parsed statement sequence.
//
// The first pass assigns a byte address to every statement: labels are
// zero bytes, .quad is 8, .align pads to the next multiple of its
// argument, and instructions have their fixed encoded sizes. Because
// no instruction's size depends on its operand, one layout pass pins
// every label before any byte is emitted; the second pass encodes with
// label resolution done inline.
func Assemble(stmts []Statement) (*AssembledCode, error) {
	starts := make([]int64, len(stmts))
	lengths := make([]int64, len(stmts))

	p := int64(0)
	for i := range stmts {
		starts[i] = p
		lengths[i] = stmts[i].EncodedSize()
		if stmts[i].Kind == StmtDirective {
			if stmts[i].Name == ".align" {
				k := stmts[i].Disp
				if k <= 0 {
					return nil, fmt.Errorf("invalid alignment: %d", k)
				}
				lengths[i] = ((-p)%k + k) % k
			} else {
				lengths[i] = 8
			}
		}
		p += lengths[i]
	}

	ranges := make([][2]int, len(stmts))
	for i := range stmts {
		ranges[i] = [2]int{int(starts[i]), int(starts[i] + lengths[i])}
	}

	labels := make(map[string]int64)
	for i := range stmts {
		if stmts[i].Kind != StmtLabel {
			continue
		}
		if _, ok := labels[stmts[i].Name]; ok {
			return nil, &ResolveError{Label: stmts[i].Name, Redefined: true}
		}
		labels[stmts[i].Name] = starts[i]
	}

	debug := log.IsLevelEnabled(log.DebugLevel)

	out := make([]byte, p)
	for i := range stmts {
		stmt := &stmts[i]
		start := starts[i]
		if debug {
			log.Debugf("asm %04x: %v", start, stmt)
		}

		switch stmt.Kind {
		case StmtLabel:
			// Labels do not generate code
		case StmtDirective:
			if stmt.Name == ".quad" {
				binary.LittleEndian.PutUint64(out[start:], uint64(stmt.Disp))
			}
			// .align padding is already zero
		case StmtHalt:
			out[start] = opHalt << 4
		case StmtNop:
			out[start] = opNop << 4
		case StmtCmov:
			out[start] = opCmov<<4 | byte(stmt.Cond)
			out[start+1] = byte(stmt.Src)<<4 | byte(stmt.Dst)
		case StmtIrmov:
			out[start] = opIrmov << 4
			out[start+1] = noRegister<<4 | byte(stmt.Dst)
			if err := fillValue(out[start+2:], stmt.Val, labels); err != nil {
				return nil, err
			}
		case StmtRmmov:
			out[start] = opRmmov << 4
			out[start+1] = byte(stmt.Src)<<4 | byte(stmt.Base)
			binary.LittleEndian.PutUint64(out[start+2:], uint64(stmt.Disp))
		case StmtMrmov:
			out[start] = opMrmov << 4
			out[start+1] = byte(stmt.Dst)<<4 | byte(stmt.Base)
			binary.LittleEndian.PutUint64(out[start+2:], uint64(stmt.Disp))
		case StmtBinop:
			out[start] = opBinop<<4 | byte(stmt.Op)
			out[start+1] = byte(stmt.Src)<<4 | byte(stmt.Dst)
		case StmtJmp:
			out[start] = opJmp<<4 | byte(stmt.Cond)
			if err := fillValue(out[start+1:], stmt.Val, labels); err != nil {
				return nil, err
			}
		case StmtCall:
			out[start] = opCall << 4
			if err := fillValue(out[start+1:], stmt.Val, labels); err != nil {
				return nil, err
			}
		case StmtRet:
			out[start] = opRet << 4
		case StmtPush:
			out[start] = opPush << 4
			out[start+1] = byte(stmt.Src)<<4 | noRegister
		case StmtPop:
			out[start] = opPop << 4
			out[start+1] = byte(stmt.Src)<<4 | noRegister
		}
	}

	return &AssembledCode{Bytes: out, LineRanges: ranges, Labels: labels}, nil
}

// fillValue writes an 8-byte little-endian immediate, resolving a
// label through the table built by the layout pass.
func fillValue(out []byte, v Value, labels map[string]int64) error {
	imm := v.Imm
	if v.IsLabel() {
		loc, ok := labels[v.Label]
		if !ok {
			return &ResolveError{Label: v.Label}
		}
		imm = loc
	}
	binary.LittleEndian.PutUint64(out, uint64(imm))
	return nil
}

// ParseAndAssemble composes the parser and the assembler over raw
// source text.
func ParseAndAssemble(src string) ([]Statement, *AssembledCode, error) {
	stmts, err := Parse(src)
	if err != nil {
		return nil, nil, err
	}
	code, err := Assemble(stmts)
	if err != nil {
		return nil, nil, err
	}
	return stmts, code, nil
}
