// Package server exposes the workbook service as MCP tools over stdio.
package server

import (
	"context"
	"io"
	"log"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm"
	"github.com/sirupsen/logrus"
)

// Name is the server name announced during initialization.
const Name = "xlsm-mcp"

const instructions = `Tools for Excel workbooks (.xlsx, .xlsm). Paths are local file paths.
Records are JSON objects keyed by column header; the first record's key order
decides the column order. Every tool returns {success, data, message} or
{success: false, error, error_type}.`

// Server wires the workbook service into an MCP server.
type Server struct {
	mcp *mcpserver.MCPServer
	svc *xlsm.Service
	log *logrus.Logger
}

// New registers every workbook tool on a new MCP server.
func New(svc *xlsm.Service, logger *logrus.Logger, version string) *Server {
	s := &Server{
		mcp: mcpserver.NewMCPServer(Name, version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithRecovery(),
			mcpserver.WithInstructions(instructions),
		),
		svc: svc,
		log: logger,
	}
	s.registerDataTools()
	s.registerWorkbookTools()
	s.registerSheetTools()
	s.registerFormatTools()
	s.registerMacroTools()
	return s
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// Serve answers JSON-RPC lines from in on out until in is exhausted or ctx is
// cancelled. Tool calls run one at a time.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	errWriter := s.log.WriterLevel(logrus.ErrorLevel)
	defer errWriter.Close()

	stdio := mcpserver.NewStdioServer(s.mcp)
	for _, opt := range []mcpserver.StdioOption{
		mcpserver.WithErrorLogger(log.New(errWriter, "", 0)),
		mcpserver.WithWorkerPoolSize(1),
	} {
		opt(stdio)
	}

	s.log.Info("serving on stdio")
	return stdio.Listen(ctx, withRecordHeaders(in, s.log), out)
}
