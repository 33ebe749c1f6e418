package mailfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/utils"
)

func newTestParser() *Parser {
	return NewParser(utils.NewTextProcessor(zap.NewNop()))
}

func TestParse_PlainMessage(t *testing.T) {
	raw := "From: Shipping <shipment-tracking@amazon.com>\r\n" +
		"Subject: Your Amazon order has shipped\r\n" +
		"Message-Id: <abc@amazon.com>\r\n" +
		"\r\n" +
		"Your order #123-456\r\n\r\nhas been shipped.\r\n"

	meta, err := newTestParser().Parse(strings.NewReader(raw))

	require.NoError(t, err)
	assert.Equal(t, "<abc@amazon.com>", meta.ID)
	assert.Equal(t, "Your Amazon order has shipped", meta.Subject)
	assert.Equal(t, "Shipping <shipment-tracking@amazon.com>", meta.Sender)
	assert.Equal(t, "Your order #123-456 has been shipped.", meta.Snippet)
	assert.True(t, meta.Unread)
}

func TestParse_Defaults(t *testing.T) {
	meta, err := newTestParser().Parse(strings.NewReader("X-Test: 1\r\n\r\nbody\r\n"))

	require.NoError(t, err)
	assert.Equal(t, "No Subject", meta.Subject)
	assert.Equal(t, "Unknown Sender", meta.Sender)
	assert.Equal(t, "body", meta.Snippet)
}

func TestParse_EncodedSubject(t *testing.T) {
	raw := "Subject: =?UTF-8?B?w5xiZXJ3ZWlzdW5n?=\r\nFrom: bank@example.com\r\n\r\nhi\r\n"

	meta, err := newTestParser().Parse(strings.NewReader(raw))

	require.NoError(t, err)
	assert.Equal(t, "Überweisung", meta.Subject)
}

func TestParse_MultipartPrefersPlainText(t *testing.T) {
	raw := "From: deals@store.com\r\n" +
		"Subject: Sale\r\n" +
		"Content-Type: multipart/mixed; boundary=outer\r\n" +
		"\r\n" +
		"--outer\r\n" +
		"Content-Type: multipart/alternative; boundary=inner\r\n" +
		"\r\n" +
		"--inner\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"50% off all items\r\n" +
		"--inner\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>50% off all items</p>\r\n" +
		"--inner--\r\n" +
		"--outer\r\n" +
		"Content-Type: application/pdf\r\n" +
		"\r\n" +
		"%PDF-1.4\r\n" +
		"--outer--\r\n"

	meta, err := newTestParser().Parse(strings.NewReader(raw))

	require.NoError(t, err)
	assert.Equal(t, "50% off all items", meta.Snippet)
}

func TestParse_LongBodyTruncated(t *testing.T) {
	raw := "Subject: long\r\n\r\n" + strings.Repeat("é", 500) + "\r\n"

	meta, err := newTestParser().Parse(strings.NewReader(raw))

	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", SnippetRunes), meta.Snippet)
}

func TestParse_Malformed(t *testing.T) {
	_, err := newTestParser().Parse(strings.NewReader("not a header line"))
	assert.Error(t, err)
}
