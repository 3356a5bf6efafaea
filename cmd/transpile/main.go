package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/repetere/ts2c/pkg/ast/staticoracle"
	"github.com/repetere/ts2c/pkg/parser"
	"github.com/repetere/ts2c/pkg/transpiler"
)

var (
	outputFile = flag.String("o", "", "Output file (default: stdout)")
	evalExpr   = flag.String("e", "", "Transpile a source snippet given directly on the command line")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "ts2c - source-to-C89 translator\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [file]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s program.ts2c            # transpile a file to stdout\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -o out.c program.ts2c   # transpile a file to out.c\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -e 'let x = 1;'         # transpile an inline snippet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  cat program.ts2c | %s      # transpile stdin\n", os.Args[0])
	}
	flag.Parse()

	var input string
	switch {
	case *evalExpr != "":
		input = *evalExpr
	case flag.NArg() > 0:
		data, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading file: %v\n", err)
			os.Exit(1)
		}
		input = string(data)
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading stdin: %v\n", err)
			os.Exit(1)
		}
		input = string(data)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "parsing %d bytes of source\n", len(input))
	}

	prog, err := parser.Parse(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
		os.Exit(1)
	}

	oracle := staticoracle.New()
	oracle.Infer(prog)

	code, err := transpiler.Transpile(prog, oracle)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(code), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing output: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "C code written to %s\n", *outputFile)
		}
		return
	}
	fmt.Print(code)
}
