package main

import (
	"flag"
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

	debugMode := flag.Bool("debug", false, "run the interactive debugger")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: yis [-debug] input.yo")
		os.Exit(1)
	}

	srcFile := flag.Arg(0)
	image, err := os.ReadFile(srcFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Could not read", srcFile)
		os.Exit(1)
	}

	fmt.Println("Y86-64 Instruction Level Simulator")

	words := env.Int("YIS_MEMORY_WORDS", y86.DefaultMemoryWords)
	sim := y86.NewSimulatorWithMemory(image, words)

	if *debugMode {
		sim.RunDebugMode()
	} else {
		sim.Run()
	}

	fmt.Println("=========================")
	fmt.Println("Simulation:")
	fmt.Println("=========================")
	sim.WriteTrace(os.Stdout)

	if sim.Status.Kind == y86.StatusError {
		fmt.Fprintln(os.Stderr, sim.Status)
		os.Exit(1)
	}
}
