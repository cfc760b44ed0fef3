package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/claippy/claippy/internal/logging"
)

// streamChunk is the subset of an SSE data payload we care about. The
// Messages API emits several chunk types (message_start, content_block_start,
// content_block_delta, message_delta, message_stop); only content_block_delta
// carries text.
type streamChunk struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

// SSEProcessor reads a Messages API event stream and accumulates the
// generated text.
type SSEProcessor struct {
	reader         *bufio.Reader
	contentBuilder strings.Builder
}

// NewSSEProcessor creates a new SSE stream processor
func NewSSEProcessor(r io.Reader) *SSEProcessor {
	return &SSEProcessor{reader: bufio.NewReader(r)}
}

// Process reads the stream to completion, calling onChunk (when non-nil)
// for each text fragment. Chunks that fail to parse or carry no text are
// discarded rather than failing the whole response.
func (p *SSEProcessor) Process(ctx context.Context, onChunk func(content string)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			logging.Debug("discarding unparseable stream chunk", logging.Fields{"data": data})
			continue
		}
		if chunk.Type != "content_block_delta" || chunk.Delta.Text == "" {
			continue
		}

		p.contentBuilder.WriteString(chunk.Delta.Text)
		if onChunk != nil {
			onChunk(chunk.Delta.Text)
		}
	}

	return nil
}

// Content returns the accumulated response text.
func (p *SSEProcessor) Content() string {
	return p.contentBuilder.String()
}
