package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/models"
	"github.com/sirupsen/logrus"
)

// withRecordHeaders returns a reader over the JSON-RPC lines of in where
// every tools/call request carrying a "data" array of objects, and no
// "headers", gains a "headers" argument listing the first object's keys in
// their original order. Argument maps lose that order once decoded.
func withRecordHeaders(in io.Reader, logger *logrus.Logger) io.Reader {
	pr, pw := io.Pipe()
	go func() {
		br := bufio.NewReader(in)
		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 {
				if out, ok := injectHeaders(line); ok {
					logger.Debug("record headers added to tool call")
					line = out
				}
				if _, werr := pw.Write(line); werr != nil {
					return
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = nil
				}
				pw.CloseWithError(err)
				return
			}
		}
	}()
	return pr
}

// injectHeaders rewrites one JSON-RPC line. It reports false and leaves the
// line alone when nothing needs adding.
func injectHeaders(line []byte) ([]byte, bool) {
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return line, false
	}
	var method string
	if err := json.Unmarshal(msg["method"], &method); err != nil || method != "tools/call" {
		return line, false
	}
	var params map[string]json.RawMessage
	if err := json.Unmarshal(msg["params"], &params); err != nil {
		return line, false
	}
	var args map[string]json.RawMessage
	if err := json.Unmarshal(params["arguments"], &args); err != nil || args == nil {
		return line, false
	}
	if _, ok := args["headers"]; ok {
		return line, false
	}
	headers := firstRecordKeys(args["data"])
	if len(headers) == 0 {
		return line, false
	}

	var err error
	if args["headers"], err = json.Marshal(headers); err != nil {
		return line, false
	}
	if params["arguments"], err = json.Marshal(args); err != nil {
		return line, false
	}
	if msg["params"], err = json.Marshal(params); err != nil {
		return line, false
	}
	out, err := json.Marshal(msg)
	if err != nil {
		return line, false
	}
	if bytes.HasSuffix(line, []byte("\n")) {
		out = append(out, '\n')
	}
	return out, true
}

// firstRecordKeys returns the keys of the first object in a JSON array of objects.
func firstRecordKeys(data json.RawMessage) []string {
	if len(data) == 0 {
		return nil
	}
	records, err := models.DecodeRecords(data)
	if err != nil || len(records) == 0 {
		return nil
	}
	return models.RecordKeys(records[0])
}
