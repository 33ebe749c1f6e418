package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/core"
	"github.com/mikey/inbox-classifier/internal/utils"
)

const snippetBytes = 1024

// Config describes an IMAP mailbox. When OAuthToken is set it is used with
// OAUTHBEARER instead of the password.
type Config struct {
	Address    string
	Username   string
	Password   string
	OAuthToken string
}

// Dialer opens an unauthenticated IMAP connection
type Dialer func(address string) (*client.Client, error)

// DialTLS connects over implicit TLS
func DialTLS(address string) (*client.Client, error) {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("invalid IMAP address %q: %w", address, err)
	}
	return client.DialTLS(address, &tls.Config{ServerName: host})
}

// Source is an implementation of the MessageSource interface over IMAP.
// Message ids are UIDs in the last listed folder. A Source holds one
// connection and is safe for sequential use by one batch at a time.
type Source struct {
	cfg           Config
	dial          Dialer
	logger        *zap.Logger
	textProcessor *utils.TextProcessor

	mu       sync.Mutex
	conn     *client.Client
	selected string // mailbox selected on conn
	listed   string // folder of the last successful List
}

// NewSource creates a new IMAP message source
func NewSource(cfg Config, dial Dialer, logger *zap.Logger, textProcessor *utils.TextProcessor) *Source {
	if dial == nil {
		dial = DialTLS
	}
	return &Source{
		cfg:           cfg,
		dial:          dial,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

func (s *Source) connect() (*client.Client, error) {
	if s.conn != nil {
		select {
		case <-s.conn.LoggedOut():
			s.conn = nil
			s.selected = ""
		default:
			return s.conn, nil
		}
	}

	c, err := s.dial(s.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("imap dial failed: %w", err)
	}

	if s.cfg.OAuthToken != "" {
		err = c.Authenticate(sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
			Username: s.cfg.Username,
			Token:    s.cfg.OAuthToken,
		}))
	} else {
		err = c.Login(s.cfg.Username, s.cfg.Password)
	}
	if err != nil {
		_ = c.Logout()
		return nil, core.NewFatalError(fmt.Errorf("imap login failed: %w", err))
	}

	s.logger.Debug("Connected to IMAP server", zap.String("address", s.cfg.Address))
	s.conn = c
	return c, nil
}

func (s *Source) selectFolder(c *client.Client, folder string) error {
	if s.selected == folder {
		return nil
	}
	if _, err := c.Select(folder, true); err != nil {
		return core.NewFatalError(fmt.Errorf("imap select %s failed: %w", folder, err))
	}
	s.selected = folder
	return nil
}

// List returns the UIDs of up to maxResults messages in folder, newest first
func (s *Source) List(ctx context.Context, maxResults int, folder string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.connect()
	if err != nil {
		return nil, err
	}
	s.selected = ""
	if err := s.selectFolder(c, folder); err != nil {
		return nil, err
	}
	s.listed = folder

	uids, err := c.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return nil, fmt.Errorf("imap search failed: %w", err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	if maxResults > 0 && len(uids) > maxResults {
		uids = uids[:maxResults]
	}

	ids := make([]string, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, strconv.FormatUint(uint64(uid), 10))
	}
	return ids, nil
}

// Get fetches the envelope, flags and the start of the text body of one message
func (s *Source) Get(ctx context.Context, messageID string) (*core.MessageMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uid, err := strconv.ParseUint(messageID, 10, 32)
	if err != nil {
		return nil, core.NewFatalError(fmt.Errorf("invalid message id %q", messageID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	folder := s.listed
	if folder == "" {
		return nil, core.NewFatalError(errors.New("no folder selected, call List first"))
	}
	c, err := s.connect()
	if err != nil {
		return nil, err
	}
	// a reconnect drops the selection
	if err := s.selectFolder(c, folder); err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uint32(uid))

	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{Specifier: imap.TextSpecifier},
		Peek:         true,
		Partial:      []int{0, snippetBytes},
	}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, imap.FetchFlags, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var meta *core.MessageMetadata
	for msg := range messages {
		meta = s.toMetadata(messageID, msg, section)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch failed: %w", err)
	}
	if meta == nil {
		return nil, core.NewFatalError(fmt.Errorf("message %s not found", messageID))
	}
	return meta, nil
}

func (s *Source) toMetadata(id string, msg *imap.Message, section *imap.BodySectionName) *core.MessageMetadata {
	meta := &core.MessageMetadata{
		ID:      id,
		Subject: "No Subject",
		Sender:  "Unknown Sender",
		Unread:  true,
	}

	if env := msg.Envelope; env != nil {
		if subject := strings.TrimSpace(env.Subject); subject != "" {
			meta.Subject = subject
		}
		if len(env.From) > 0 && env.From[0] != nil {
			meta.Sender = formatAddress(env.From[0])
		}
	}

	for _, flag := range msg.Flags {
		if flag == imap.SeenFlag {
			meta.Unread = false
			break
		}
	}

	if literal := msg.GetBody(section); literal != nil {
		raw, err := io.ReadAll(literal)
		if err != nil {
			s.logger.Warn("Failed to read message body", zap.String("message_id", id), zap.Error(err))
		} else {
			meta.Snippet = s.textProcessor.Snippet(string(raw), 200)
		}
	}

	return meta
}

func formatAddress(addr *imap.Address) string {
	email := addr.Address()
	if addr.PersonalName == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", addr.PersonalName, email)
}

// Close logs out of the server
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Logout()
	s.conn = nil
	s.selected = ""
	s.listed = ""
	return err
}
