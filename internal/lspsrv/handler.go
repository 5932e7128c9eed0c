// Package lspsrv implements a diagnostics-only Language Server Protocol
// handler for BX: open/change/close tracking and publish-diagnostics on
// every edit. Grounded on the teacher's internal/lsp.KansoHandler, trimmed
// of completion and semantic-tokens support — BX has no struct/storage
// surface for semantic highlighting and no standard library to complete
// against, so that machinery has no SPEC_FULL.md component to serve.
package lspsrv

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"bx/internal/pipeline"
)

// Handler implements the glsp server callbacks BX needs.
type Handler struct {
	mu      sync.RWMutex
	sources map[string]string
}

// NewHandler creates an empty Handler ready to register with a glsp server.
func NewHandler() *Handler {
	return &Handler{sources: map[string]string{}}
}

func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Println("bx-lsp: initialize")
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Println("bx-lsp: initialized")
	return nil
}

func (h *Handler) Shutdown(ctx *glsp.Context) error {
	log.Println("bx-lsp: shutdown")
	return nil
}

func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	return h.recheck(ctx, params.TextDocument.URI, params.TextDocument.Text)
}

// TextDocumentDidChange re-reads the file from disk, the same way the
// teacher's handler re-runs its parser on every change notification rather
// than reconstructing the document from incremental deltas. The text carried
// in the client's change events is not used, so edits that have not been
// saved to disk are not reflected in the published diagnostics.
func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("bx-lsp: failed to read %s: %w", path, err)
	}
	return h.recheck(ctx, params.TextDocument.URI, string(content))
}

func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}
	h.mu.Lock()
	delete(h.sources, path)
	h.mu.Unlock()
	return nil
}

// recheck stores the document's latest text, recompiles it, and publishes
// whatever diagnostics result (an empty slice clears prior ones).
func (h *Handler) recheck(ctx *glsp.Context, uri protocol.DocumentUri, text string) error {
	path, err := uriToPath(uri)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.sources[path] = text
	h.mu.Unlock()

	_, compileErr := pipeline.Compile(path, text)
	diagnostics := diagnosticsFor(compileErr)

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
	return nil
}

func uriToPath(raw protocol.DocumentUri) (string, error) {
	u, err := url.Parse(string(raw))
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", raw, err)
	}
	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

func ptrBool(b bool) *bool { return &b }
func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind { return &k }
