package y86

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Run steps the simulator until it halts or faults.
func (s *Simulator) Run() {
	debug := log.IsLevelEnabled(log.DebugLevel)

	for s.Status.Kind == StatusRunning {
		s.Step()
		if debug && len(s.Disassembly) > 0 {
			d := s.Disassembly[len(s.Disassembly)-1]
			log.Debugf("sim %04x: %v", d.IP, d.Stmt)
		}
	}
}

// WriteTrace renders the executed disassembly and the change log as an
// aligned table, one row per atomic change. The disassembly column is
// padded to the widest rendered instruction.
func (s *Simulator) WriteTrace(w io.Writer) {
	width := 0
	rendered := make([]string, len(s.Disassembly))
	for i, d := range s.Disassembly {
		rendered[i] = d.Stmt.String()
		if len(rendered[i]) > width {
			width = len(rendered[i])
		}
	}
	width += 2 // Add padding

	j := 0
	for i, d := range s.Disassembly {
		first := true
		for j < len(s.Log) && s.Log[j].Index == i {
			if first {
				fmt.Fprintf(w, "%04x %-*s | %s\n", d.IP, width, rendered[i], s.Log[j].Change)
				first = false
			} else {
				fmt.Fprintf(w, "%4s %-*s | %s\n", "", width, "", s.Log[j].Change)
			}
			j++
		}
		if first {
			fmt.Fprintf(w, "%04x %-*s |\n", d.IP, width, rendered[i])
		}
	}
}

func (s *Simulator) printCurrentState() {
	if stmt, _, err := Decode(s.Image, s.IP); err == nil {
		fmt.Printf("  next instruction> %04x:%s\n", s.IP, stmt)
	}

	fmt.Println("  registers>", s.Registers)
	fmt.Printf("  flags> CC = %04b\n", s.CC)

	if len(s.Disassembly) > 0 {
		last := len(s.Disassembly) - 1
		for _, entry := range s.Log {
			if entry.Index == last {
				fmt.Println("  change>", entry.Change)
			}
		}
	}
}

func (s *Simulator) printProgram() {
	for _, d := range s.Disassembly {
		fmt.Printf("%04x %s\n", d.IP, d.Stmt)
	}
}

// RunDebugMode steps the simulator interactively: single stepping,
// free running and breakpoints by byte address.
func (s *Simulator) RunDebugMode() {
	fmt.Printf("Commands:\n\tn or next: execute next instruction\n\tr or run: run program\n\tb or break <addr>: break at byte address (or remove break at addr)\n\tprogram: print disassembly so far\n\n")

	s.printCurrentState()

	reader := bufio.NewReader(os.Stdin)
	waitForInput := true
	breakAtAddrs := make(map[int64]struct{})
	lastBreakAddr := int64(-1)
	for {
		line := ""
		if waitForInput {
			fmt.Print("\n->")
			line, _ = reader.ReadString('\n')
			line = strings.ToLower(strings.TrimSpace(line))
		} else {
			// Check if we've reached a breakpoint
			if _, ok := breakAtAddrs[s.IP]; lastBreakAddr != s.IP && ok {
				fmt.Println("breakpoint")
				s.printCurrentState()

				waitForInput = true
				lastBreakAddr = s.IP
				continue
			}
		}

		if !waitForInput || line == "n" || line == "next" {
			// Reset break flag
			lastBreakAddr = -1

			s.Step()
			if waitForInput {
				// Only print state after each instruction if we're also
				// waiting for input after each instruction
				s.printCurrentState()
			}

			if s.Status.Kind != StatusRunning {
				fmt.Println(s.Status)
				return
			}
		} else if line == "program" {
			s.printProgram()
		} else if line == "r" || line == "run" {
			waitForInput = false
		} else if strings.HasPrefix(line, "b") {
			arg := strings.Join(strings.Split(line, " ")[1:], " ")
			addr, err := strconv.ParseInt(arg, 0, 64)
			if err != nil {
				fmt.Println("Unknown break address:", err)
			} else {
				_, ok := breakAtAddrs[addr]
				// If the address has already been added, remove it
				if ok {
					delete(breakAtAddrs, addr)
				} else {
					// Otherwise add it now
					breakAtAddrs[addr] = struct{}{}
				}
			}
		}
	}
}
