package mailbox

import (
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"followup-tracker/internal/model"
)

var (
	wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}
	stripPolicy = bluemonday.StrictPolicy()
)

// ParseMessage reads one RFC 5322 message and maps it onto a raw record.
func ParseMessage(r io.Reader) (model.RawMessage, error) {
	raw, _, err := parseMessage(r)
	return raw, err
}

func parseMessage(r io.Reader) (model.RawMessage, mail.Header, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return model.RawMessage{}, nil, fmt.Errorf("failed to read message: %w", err)
	}
	header := msg.Header

	raw := model.RawMessage{
		ID:         strings.Trim(strings.TrimSpace(header.Get("Message-Id")), "<>"),
		Subject:    decodeHeader(header.Get("Subject")),
		From:       parseAddress(header.Get("From")),
		Sender:     parseAddress(header.Get("Sender")),
		Importance: importanceFromHeader(header),
	}
	if date, err := mail.ParseDate(header.Get("Date")); err == nil {
		raw.ReceivedTime = date.UTC().Format(time.RFC3339)
	}

	content := &bodyContent{}
	content.walk(header, msg.Body)
	raw.Body = content.text()
	raw.HasAttachments = model.Bool(content.attachments > 0)

	return raw, header, nil
}

func decodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

func parseAddress(value string) *model.Address {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parser := mail.AddressParser{WordDecoder: wordDecoder}
	addr, err := parser.Parse(value)
	if err != nil {
		return &model.Address{Name: decodeHeader(value)}
	}
	return &model.Address{Name: addr.Name, Address: addr.Address}
}

// importanceFromHeader reads Importance, then X-Priority (1 and 2 mean high).
func importanceFromHeader(header mail.Header) string {
	if v := strings.TrimSpace(header.Get("Importance")); v != "" {
		return string(model.ParseImportance(v))
	}
	if v := strings.TrimSpace(header.Get("X-Priority")); v != "" {
		if strings.HasPrefix(v, "1") || strings.HasPrefix(v, "2") {
			return string(model.ImportanceHigh)
		}
	}
	return string(model.ImportanceNormal)
}

type bodyContent struct {
	plain       string
	html        string
	attachments int
}

func (c *bodyContent) walk(header interface{ Get(string) string }, body io.Reader) {
	ctype, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil {
		ctype = "text/plain"
	}

	if strings.HasPrefix(ctype, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err != nil {
				return
			}
			c.walk(part.Header, part)
		}
	}

	if disp, _, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil && disp == "attachment" {
		c.attachments++
		return
	}

	if ctype != "text/plain" && ctype != "text/html" {
		return
	}
	if (ctype == "text/plain" && c.plain != "") || (ctype == "text/html" && c.html != "") {
		return
	}

	reader := body
	switch strings.ToLower(strings.TrimSpace(header.Get("Content-Transfer-Encoding"))) {
	case "base64":
		reader = base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		reader = quotedprintable.NewReader(body)
	}
	if decoded, err := charsetReader(params["charset"], reader); err == nil {
		reader = decoded
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return
	}
	if ctype == "text/plain" {
		c.plain = string(data)
	} else {
		c.html = string(data)
	}
}

// text prefers the plain part and flattens HTML otherwise.
func (c *bodyContent) text() string {
	if strings.TrimSpace(c.plain) != "" {
		return strings.TrimSpace(c.plain)
	}
	return HTMLToText(c.html)
}

// HTMLToText strips markup and collapses whitespace.
func HTMLToText(s string) string {
	if s == "" {
		return ""
	}
	stripped := html.UnescapeString(stripPolicy.Sanitize(s))
	return strings.Join(strings.Fields(stripped), " ")
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	if charset == "" {
		return input, nil
	}
	enc, err := ianaindex.IANA.Encoding(strings.ToLower(charset))
	if err != nil || enc == nil {
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
