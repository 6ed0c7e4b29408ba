package mailsource

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/mailarc/mailarc/config"
	"github.com/mailarc/mailarc/consts"
)

// IMAPSource reads messages from an IMAP store. Folders map to mailboxes;
// deletion marks the message \Deleted and expunges it.
type IMAPSource struct {
	cfg      config.SourceConfig
	client   *imapclient.Client
	selected string
}

// NewIMAPSource returns a source for the configured IMAP server.
func NewIMAPSource(cfg config.SourceConfig) *IMAPSource {
	return &IMAPSource{cfg: cfg}
}

// Attach dials and logs in to the IMAP server.
func (s *IMAPSource) Attach(ctx context.Context) error {
	options := &imapclient.Options{}

	var (
		client *imapclient.Client
		err    error
	)
	if s.cfg.TLS {
		options.TLSConfig = &tls.Config{ServerName: hostOf(s.cfg.Addr)}
		client, err = imapclient.DialTLS(s.cfg.Addr, options)
	} else {
		client, err = imapclient.DialInsecure(s.cfg.Addr, options)
	}
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", consts.ErrStoreNotFound, s.cfg.Addr, err)
	}

	if err := client.Login(s.cfg.Username, s.cfg.Password).Wait(); err != nil {
		_ = client.Close()
		return fmt.Errorf("imap login failed for %s: %w", s.cfg.Username, err)
	}

	s.client = client
	return nil
}

// Detach logs out and closes the connection.
func (s *IMAPSource) Detach() error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Logout().Wait(); err != nil {
		_ = s.client.Close()
		s.client = nil
		return fmt.Errorf("imap logout failed: %w", err)
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// Count reports the number of messages in the mailbox.
func (s *IMAPSource) Count(ctx context.Context, folder string) (int, error) {
	data, err := s.client.Status(folder, &imap.StatusOptions{NumMessages: true}).Wait()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", consts.ErrFolderNotFound, folder, err)
	}
	if data.NumMessages == nil {
		return 0, nil
	}
	return int(*data.NumMessages), nil
}

// Walk fetches every message in the mailbox with envelope and full body.
func (s *IMAPSource) Walk(ctx context.Context, folder string, fn func(*MessageRecord) error) error {
	if err := s.selectFolder(folder); err != nil {
		return err
	}

	count, err := s.Count(ctx, folder)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	var seqSet imap.SeqSet
	seqSet.AddRange(1, uint32(count))

	fetchCmd := s.client.Fetch(seqSet, &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{{}},
	})
	defer fetchCmd.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return fmt.Errorf("imap fetch in %s failed: %w", folder, err)
		}

		rec := s.toRecord(folder, buf)
		if err := fn(rec); err != nil {
			return err
		}
	}
	return fetchCmd.Close()
}

// Delete flags the message \Deleted and expunges the mailbox.
func (s *IMAPSource) Delete(ctx context.Context, msg *MessageRecord) error {
	if err := s.selectFolder(msg.Folder); err != nil {
		return err
	}

	uid, err := strconv.ParseUint(msg.ID, 10, 32)
	if err != nil {
		return fmt.Errorf("not an imap uid: %q", msg.ID)
	}
	uidSet := imap.UIDSetNum(imap.UID(uid))

	storeCmd := s.client.Store(uidSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Flags:  []imap.Flag{imap.FlagDeleted},
		Silent: true,
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("failed to flag uid %d deleted: %w", uid, err)
	}

	if _, err := s.client.Expunge().Collect(); err != nil {
		return fmt.Errorf("failed to expunge %s: %w", msg.Folder, err)
	}
	return nil
}

func (s *IMAPSource) selectFolder(folder string) error {
	if s.selected == folder {
		return nil
	}
	if _, err := s.client.Select(folder, nil).Wait(); err != nil {
		return fmt.Errorf("%w: %s: %v", consts.ErrFolderNotFound, folder, err)
	}
	s.selected = folder
	return nil
}

func (s *IMAPSource) toRecord(folder string, buf *imapclient.FetchMessageBuffer) *MessageRecord {
	rec := &MessageRecord{
		ID:     strconv.FormatUint(uint64(buf.UID), 10),
		Folder: folder,
	}

	var raw []byte
	for _, section := range buf.BodySection {
		raw = section.Bytes
		break
	}
	if len(raw) > 0 {
		parseRaw(raw, rec)
	}

	// The envelope is authoritative for addressing; it survives messages
	// whose MIME bodies fail to parse.
	if env := buf.Envelope; env != nil {
		if env.Subject != "" {
			rec.Subject = env.Subject
		}
		if !env.Date.IsZero() {
			t := env.Date
			rec.ReceivedTime = &t
		}
		if len(env.From) > 0 {
			rec.Sender = imapDisplayName(env.From[0])
		}
		if len(env.To)+len(env.Cc) > 0 {
			rec.Recipients = rec.Recipients[:0]
			for _, a := range env.To {
				rec.Recipients = append(rec.Recipients, ResolvedRecipient(imapDisplayName(a)))
			}
			for _, a := range env.Cc {
				rec.Recipients = append(rec.Recipients, ResolvedRecipient(imapDisplayName(a)))
			}
		}
	}

	rec.Fingerprint = Fingerprint(rec)
	return rec
}

func imapDisplayName(a imap.Address) string {
	if a.Name != "" {
		return a.Name
	}
	return a.Addr()
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
