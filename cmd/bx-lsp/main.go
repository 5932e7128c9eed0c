// SPDX-License-Identifier: Apache-2.0
package main

import (
	"log"
	"os"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"bx/internal/lspsrv"
)

const lsName = "bx"

func main() {
	commonlog.Configure(1, nil)

	bxHandler := lspsrv.NewHandler()

	// Diagnostics-only: BX has no completion surface and no semantic-token
	// classes worth distinguishing, so those handler fields are left nil
	// (unlike the teacher's handler, which wires them).
	handler := protocol.Handler{
		Initialize:            bxHandler.Initialize,
		Initialized:           bxHandler.Initialized,
		Shutdown:              bxHandler.Shutdown,
		TextDocumentDidOpen:   bxHandler.TextDocumentDidOpen,
		TextDocumentDidClose:  bxHandler.TextDocumentDidClose,
		TextDocumentDidChange: bxHandler.TextDocumentDidChange,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Println("Starting bx-lsp server...")

	if err := s.RunStdio(); err != nil {
		log.Println("Error starting bx-lsp server:", err)
		os.Exit(1)
	}
}
