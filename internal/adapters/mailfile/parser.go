// Package mailfile reads RFC 5322 messages from files or pipes.
package mailfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/mikey/inbox-classifier/internal/core"
	"github.com/mikey/inbox-classifier/internal/utils"
)

// SnippetRunes matches the length of the snippets mailbox providers return
const SnippetRunes = 200

var headerDecoder = &mime.WordDecoder{}

// Parser turns raw messages into message metadata
type Parser struct {
	textProcessor *utils.TextProcessor
}

// NewParser creates a new message parser
func NewParser(textProcessor *utils.TextProcessor) *Parser {
	return &Parser{textProcessor: textProcessor}
}

// Parse reads one message. Local files carry no read state, so the result is
// always marked unread.
func (p *Parser) Parse(r io.Reader) (*core.MessageMetadata, error) {
	msg, err := mail.ReadMessage(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	body, err := extractText(msg.Header.Get("Content-Type"), msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}

	meta := &core.MessageMetadata{
		ID:      msg.Header.Get("Message-Id"),
		Subject: decodeHeader(msg.Header.Get("Subject")),
		Sender:  decodeHeader(msg.Header.Get("From")),
		Snippet: p.textProcessor.Snippet(body, SnippetRunes),
		Unread:  true,
	}
	if meta.Subject == "" {
		meta.Subject = "No Subject"
	}
	if meta.Sender == "" {
		meta.Sender = "Unknown Sender"
	}
	return meta, nil
}

func decodeHeader(value string) string {
	decoded, err := headerDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// extractText returns the text/plain content of a body. Multipart bodies are
// walked recursively; other parts are skipped.
func extractText(contentType string, body io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	var text bytes.Buffer
	mr := multipart.NewReader(body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// keep what was read before the broken part
			if text.Len() > 0 {
				break
			}
			return "", err
		}

		partType := strings.ToLower(part.Header.Get("Content-Type"))
		switch {
		case strings.HasPrefix(partType, "multipart/"):
			nested, err := extractText(part.Header.Get("Content-Type"), part)
			if err == nil {
				text.WriteString(nested)
			}
		case partType == "" || strings.HasPrefix(partType, "text/plain"):
			raw, err := io.ReadAll(part)
			if err != nil {
				continue
			}
			text.Write(raw)
			text.WriteString("\n")
		}
	}

	return text.String(), nil
}
