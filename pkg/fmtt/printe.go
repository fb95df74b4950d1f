// Package fmtt prints error chains for the CLI --debug flag.
package fmtt

import (
	"errors"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
)

// PrintErrChain writes each layer of an error chain with its type.
func PrintErrChain(w io.Writer, err error) {
	if err == nil {
		fmt.Fprintln(w, "<nil>")
		return
	}
	for i, e := 0, err; e != nil; i, e = i+1, errors.Unwrap(e) {
		fmt.Fprintf(w, "[%d] %T: %v\n", i, e, e)
	}
}

// PrintErrChainDebug is PrintErrChain plus a spew dump of every layer.
func PrintErrChainDebug(w io.Writer, err error) {
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}
	for i, e := 0, err; e != nil; i, e = i+1, errors.Unwrap(e) {
		fmt.Fprintf(w, "[%d] %T\n", i, e)
		fmt.Fprintf(w, "   Error(): %v\n", e)
		cfg.Fdump(w, e)
	}
}

// Dump writes a spew dump of v.
func Dump(w io.Writer, v any) {
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}
	cfg.Fdump(w, v)
}
