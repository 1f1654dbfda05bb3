package main

import (
	"fmt"
	"os"

	"github.com/BrandonTang89/Y86-64-Seq/y86"
	log "github.com/sirupsen/logrus"
	"github.com/xyproto/env/v2"
)

func configureLogging() {
	switch env.Str("Y86_LOG") {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	}
}

func main() {
	configureLogging()
	fmt.Println("Y86-64 Assembler")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: yas input.ys [output]")
		os.Exit(1)
	}

	srcFile := os.Args[1]
	destFile := srcFile + ".o"
	if len(os.Args) > 2 {
		destFile = os.Args[2]
	} else {
		fmt.Println("No output file provided, using default:", destFile)
	}

	src, err := os.ReadFile(srcFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Could not read", srcFile)
		os.Exit(1)
	}

	stmts, code, err := y86.ParseAndAssemble(string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Assembly listing, visible with Y86_LOG=debug
	if log.IsLevelEnabled(log.DebugLevel) {
		for name, addr := range code.Labels {
			log.WithField("addr", addr).Debugf("label %s", name)
		}
		for i, r := range code.LineRanges {
			log.Debugf("bytes [%d, %d):%v", r[0], r[1], stmts[i])
		}
	}

	if err := os.WriteFile(destFile, code.Bytes, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "Could not write", destFile)
		os.Exit(1)
	}

	log.Infof("wrote %d bytes to %s", len(code.Bytes), destFile)
	fmt.Println("Assembly completed successfully.")
}
