package transcriber

import (
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// JSONOutput writes timeline segments as JSON lines, one object per line.
// Used for the machine-readable debug artifact alongside the transcript.
type JSONOutput struct {
	writer io.Writer
	logger *zap.Logger
}

// NewJSONOutput creates a new JSONOutput instance
func NewJSONOutput(writer io.Writer, logger *zap.Logger) *JSONOutput {
	return &JSONOutput{
		writer: writer,
		logger: logger,
	}
}

// OutputSegment writes one timeline segment as a JSON line
func (jo *JSONOutput) OutputSegment(segment TimelineSegment) error {
	jsonBytes, err := json.Marshal(segment)
	if err != nil {
		jo.logger.Error("failed to marshal segment to JSON", zap.Error(err))
		return fmt.Errorf("failed to marshal segment to JSON: %w", err)
	}

	if _, err := fmt.Fprintf(jo.writer, "%s\n", jsonBytes); err != nil {
		jo.logger.Error("failed to write JSON output", zap.Error(err))
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	return nil
}

// OutputResult writes every segment of a run's result as JSON lines
func (jo *JSONOutput) OutputResult(result *Result) error {
	for _, segment := range result.Segments {
		if err := jo.OutputSegment(segment); err != nil {
			return err
		}
	}
	return nil
}
