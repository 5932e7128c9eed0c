// SPDX-License-Identifier: Apache-2.0
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"bx/internal/compileerr"
	"bx/internal/diag"
	"bx/internal/ir"
	"bx/internal/pipeline"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: bxc <file.bx>\n")
		os.Exit(1)
	}

	path := os.Args[1]
	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("error: cannot read %s: %v", path, err)
		os.Exit(1)
	}

	res, err := pipeline.Compile(path, string(source))
	if err != nil {
		reportCompileError(path, string(source), err)
		os.Exit(1)
	}

	for _, proc := range res.Procedures {
		fmt.Print(ir.Print(proc.Proc))
	}
	color.Green("✅ Successfully compiled %s", path)
}

// reportCompileError prints whatever pipeline.Compile returned: a batch of
// positioned front-end diagnostics, or a single pipeline-internal invariant
// failure. Grounded on main.go's reportParseError, generalized from
// parse-only errors to both error vocabularies pipeline.Compile can return.
func reportCompileError(path, source string, err error) {
	if ce, ok := err.(*pipeline.CheckErrors); ok {
		reporter := diag.NewErrorReporter(path, source)
		for _, e := range ce.Errors {
			fmt.Fprint(os.Stderr, reporter.FormatError(e))
		}
		return
	}
	var ie *compileerr.Error
	if errors.As(err, &ie) {
		color.Red("error: %s", ie.Error())
		return
	}
	color.Red("error: %v", err)
}
