package mailsource

import (
	"bytes"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/k3a/html2text"

	"github.com/mailarc/mailarc/helpers"
)

// defaultMessageClass is assumed for RFC 5322 messages that do not carry an
// explicit class header. Stores exported from Exchange-family systems label
// items with X-Message-Class.
const defaultMessageClass = "IPM.Note"

const previewLimit = 256

// parseRaw fills the mail-derived fields of a MessageRecord from raw RFC
// 5322 bytes. Parse problems degrade to empty fields rather than failing the
// item; an unreadable header still produces an archivable record.
func parseRaw(raw []byte, rec *MessageRecord) {
	rec.Body = raw
	rec.MessageClass = defaultMessageClass

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return
	}

	h := mr.Header
	if class := h.Get("X-Message-Class"); class != "" {
		rec.MessageClass = class
	}
	if subject, err := h.Subject(); err == nil {
		rec.Subject = subject
	}
	if date, err := h.Date(); err == nil && !date.IsZero() {
		t := date
		rec.ReceivedTime = &t
	}
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		rec.Sender = displayName(from[0])
	}
	for _, field := range []string{"To", "Cc"} {
		addrs, err := h.AddressList(field)
		if err != nil {
			continue
		}
		for _, a := range addrs {
			rec.Recipients = append(rec.Recipients, ResolvedRecipient(displayName(a)))
		}
	}

	rec.BodyPreview = extractPreview(mr)
}

func displayName(a *mail.Address) string {
	if a.Name != "" {
		return a.Name
	}
	return a.Address
}

// extractPreview walks the MIME parts and returns a short plain-text
// preview. A text/plain part wins; failing that, the first text/html part is
// converted to text.
func extractPreview(mr *mail.Reader) string {
	var htmlBody string
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		mediaType, _, err := inline.ContentType()
		if err != nil {
			continue
		}
		switch mediaType {
		case "text/plain":
			content, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			return clipPreview(string(content))
		case "text/html":
			if htmlBody == "" {
				if content, err := io.ReadAll(part.Body); err == nil {
					htmlBody = string(content)
				}
			}
		}
	}
	if htmlBody != "" {
		return clipPreview(html2text.HTML2Text(htmlBody))
	}
	return ""
}

func clipPreview(s string) string {
	s = helpers.SanitizeUTF8(s)
	s = strings.TrimSpace(strings.Join(strings.Fields(s), " "))
	return helpers.TruncateRunes(s, previewLimit)
}
