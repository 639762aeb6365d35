package server

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm"
	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/models"
	"github.com/sirupsen/logrus"
)

// newResult builds the envelope for one tool call.
func newResult(data any, message string, err error) models.Result {
	if err != nil {
		return models.Result{
			Success:   false,
			Error:     err.Error(),
			ErrorType: string(xlsm.CategoryOf(err)),
		}
	}
	return models.Result{Success: true, Data: data, Message: message}
}

// respond logs a failure and wraps the envelope as structured tool output
// with a JSON text fallback. Failures set IsError.
func (s *Server) respond(tool string, data any, message string, err error) (*mcp.CallToolResult, error) {
	res := newResult(data, message, err)
	if err != nil {
		s.log.WithFields(logrus.Fields{"tool": tool, "error_type": res.ErrorType}).Error(err)
	}
	text, merr := json.Marshal(res)
	if merr != nil {
		text = []byte(fmt.Sprintf(`{"success":%t,"message":%q}`, res.Success, message))
	}
	out := mcp.NewToolResultStructured(res, string(text))
	out.IsError = !res.Success
	return out, nil
}

// invalid reports a malformed argument as a validation failure.
func (s *Server) invalid(tool string, err error) (*mcp.CallToolResult, error) {
	return s.respond(tool, nil, "", xlsm.NewError(xlsm.CategoryValidation, tool, err))
}
