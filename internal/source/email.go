package source

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

var ErrNoTextBody = errors.New("email has no readable text body")

// Email is a received message reduced to what receipt parsers read
type Email struct {
	From    string
	Subject string
	Date    time.Time
	Text    string

	forwarded map[string]string
}

var wordDecoder = new(mime.WordDecoder)

// ParseEmail reads a raw RFC 5322 message. When the headers parse but the body
// does not, the returned Email is non-nil alongside the error.
func ParseEmail(raw []byte) (*Email, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to read email headers: %w", err)
	}

	email := &Email{
		From:    normalizeAddress(msg.Header.Get("From")),
		Subject: decodeHeader(msg.Header.Get("Subject")),
	}
	if date, err := msg.Header.Date(); err == nil {
		email.Date = date
	}

	text, err := readBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return email, err
	}
	email.Text = text
	email.forwarded = forwardedHeaders(text)
	return email, nil
}

// MessageID reads the Message-ID header of a raw message, without angle
// brackets. It returns "" when the headers are unreadable or the header is absent.
func MessageID(raw []byte) string {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	return strings.Trim(strings.TrimSpace(msg.Header.Get("Message-Id")), "<>")
}

func decodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}

var bareAddress = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// normalizeAddress reduces a From value to its lower-cased bare address
func normalizeAddress(value string) string {
	value = decodeHeader(value)
	if addr, err := mail.ParseAddress(value); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(bareAddress.FindString(value))
}

// readBody returns the text of a part, preferring text/plain over text/html in multiparts
func readBody(contentType, encoding string, body io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return readMultipart(multipart.NewReader(body, params["boundary"]))
	}

	data, err := io.ReadAll(decodeTransfer(encoding, body))
	if err != nil {
		return "", fmt.Errorf("failed to decode %s body: %w", mediaType, err)
	}

	switch mediaType {
	case "text/html":
		return htmlToText(data)
	case "text/plain":
		return string(data), nil
	}
	return "", ErrNoTextBody
}

func readMultipart(reader *multipart.Reader) (string, error) {
	var plain, markup string
	for {
		part, err := reader.NextRawPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read multipart body: %w", err)
		}

		text, err := readBody(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
		if err != nil {
			if errors.Is(err, ErrNoTextBody) {
				continue
			}
			return "", err
		}

		mediaType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if mediaType == "text/html" {
			if markup == "" {
				markup = text
			}
			continue
		}
		if plain == "" {
			plain = text
		}
	}

	if strings.TrimSpace(plain) != "" {
		return plain, nil
	}
	if markup != "" {
		return markup, nil
	}
	return "", ErrNoTextBody
}

func decodeTransfer(encoding string, body io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(body)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, newlineStripper{body})
	}
	return body
}

// newlineStripper drops line breaks so wrapped base64 decodes
type newlineStripper struct {
	r io.Reader
}

func (n newlineStripper) Read(p []byte) (int, error) {
	count, err := n.r.Read(p)
	kept := 0
	for _, b := range p[:count] {
		if b != '\r' && b != '\n' {
			p[kept] = b
			kept++
		}
	}
	return kept, err
}

var blockElements = map[string]bool{
	"br": true, "p": true, "div": true, "tr": true, "li": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"td": true, "blockquote": true,
}

// htmlToText flattens markup into one line per block element
func htmlToText(data []byte) (string, error) {
	tokenizer := html.NewTokenizer(bytes.NewReader(data))
	var b strings.Builder
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != io.EOF {
				return "", fmt.Errorf("failed to read html body: %w", err)
			}
			return tidyLines(b.String()), nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skipDepth++
			}
			if blockElements[tag] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skipDepth > 0 {
				skipDepth--
			}
			if blockElements[tag] {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func tidyLines(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = cleanName(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

var forwardedHeader = regexp.MustCompile(`^[>\s*]*(From|Date|Subject|Sent|To):\**\s*(.*)$`)

// forwardedHeaders collects the first header block quoted inside a forwarded body
func forwardedHeaders(text string) map[string]string {
	headers := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		m := forwardedHeader.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		key := strings.ToLower(m[1])
		if key == "sent" {
			key = "date"
		}
		if _, seen := headers[key]; !seen {
			headers[key] = strings.TrimSpace(m[2])
		}
	}
	return headers
}

// Sender returns the normalized address of the message itself
func (e *Email) Sender() string {
	return e.From
}

// ForwardedSender returns the normalized address of the original sender when the
// message was forwarded, or "" when the body quotes no From header
func (e *Email) ForwardedSender() string {
	return normalizeAddress(e.forwarded["from"])
}

var forwardPrefix = regexp.MustCompile(`(?i)^\s*((fwd?|fw)\s*:\s*)+`)

// OriginalSubject is the forwarded subject when one is quoted, else the header
// subject with forwarding prefixes removed
func (e *Email) OriginalSubject() string {
	if subject := e.forwarded["subject"]; subject != "" {
		return subject
	}
	return forwardPrefix.ReplaceAllString(e.Subject, "")
}

var forwardedDateLayouts = []string{
	"Mon, Jan 2, 2006 at 3:04 PM",
	"Mon, Jan 2, 2006 at 3:04\u202fPM",
	"Monday, January 2, 2006 3:04 PM",
	"Monday, January 2, 2006 at 3:04 PM",
	"Jan 2, 2006, at 3:04 PM",
	"January 2, 2006",
	"01/02/2006",
}

// OriginalDate is when the receipt was first sent, falling back to the header date
func (e *Email) OriginalDate(loc *time.Location) time.Time {
	if value := e.forwarded["date"]; value != "" {
		if t, err := mail.ParseDate(value); err == nil {
			return t
		}
		if t, err := parseTime(value, loc, forwardedDateLayouts...); err == nil {
			return t
		}
	}
	return e.Date
}

// Lines returns the non-blank body lines, trimmed, without quoted forward headers
func (e *Email) Lines() []string {
	var lines []string
	for _, line := range strings.Split(e.Text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), ">"))
		if line == "" || forwardedHeader.MatchString(line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
