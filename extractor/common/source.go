package common

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/htmlindex"
)

var (
	// ErrUnsupportedSource is returned for file types ReadMessage cannot open.
	ErrUnsupportedSource = errors.New("unsupported source")
	// ErrEmptyBody is returned when a source yields no text at all.
	ErrEmptyBody = errors.New("empty body")
)

// SupportedExtensions lists the file extensions ReadMessage understands.
var SupportedExtensions = []string{".eml", ".html", ".htm", ".txt", ".pdf"}

// IsSupported reports whether filename has one of SupportedExtensions.
func IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ReadMessage reads an alert email from r, choosing the decoder by the extension of
// filename. Files without a known extension are treated as raw body text.
func ReadMessage(r io.Reader, filename string) (Message, error) {
	if r == nil {
		return Message{}, fmt.Errorf("%w: nil reader", ErrUnsupportedSource)
	}

	var msg Message
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".eml":
		m, err := readEML(r)
		if err != nil {
			return Message{}, fmt.Errorf("failed to read email: %w", err)
		}
		msg = m
	case ".pdf":
		rows, err := ExtractRowsFromPDFReader(r)
		if err != nil {
			return Message{}, fmt.Errorf("failed to read pdf: %w", err)
		}
		msg.Body = strings.Join(*rows, "\n")
	default:
		b, err := io.ReadAll(r)
		if err != nil {
			return Message{}, err
		}
		msg.Body = string(b)
	}

	if strings.TrimSpace(msg.Body) == "" {
		return msg, ErrEmptyBody
	}
	return msg, nil
}

func readEML(r io.Reader) (Message, error) {
	m, err := mail.ReadMessage(r)
	if err != nil {
		return Message{}, err
	}

	dec := &mime.WordDecoder{CharsetReader: charsetReader}
	msg := Message{
		From:    m.Header.Get("From"),
		Subject: m.Header.Get("Subject"),
	}
	if s, err := dec.DecodeHeader(msg.Subject); err == nil {
		msg.Subject = s
	}
	if addr, err := mail.ParseAddress(msg.From); err == nil {
		msg.From = addr.Address
	}
	if d, err := m.Header.Date(); err == nil {
		msg.Date = d
	}

	body, err := readPart(m.Header.Get("Content-Type"), m.Header.Get("Content-Transfer-Encoding"), m.Body)
	if err != nil {
		return Message{}, err
	}
	msg.Body = body
	return msg, nil
}

// readPart returns the best text of a MIME entity: text/html wins over text/plain
// inside multiparts.
func readPart(contentType, encoding string, r io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(r, params["boundary"])
		var html, plain string
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", err
			}
			text, err := readPart(p.Header.Get("Content-Type"), p.Header.Get("Content-Transfer-Encoding"), p)
			if err != nil {
				return "", err
			}
			pt, _, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
			switch {
			case pt == "text/html" && html == "":
				html = text
			case strings.HasPrefix(pt, "multipart/") && html == "":
				html = text
			case (pt == "text/plain" || pt == "") && plain == "":
				plain = text
			}
		}
		if html != "" {
			return html, nil
		}
		return plain, nil
	}

	if !strings.HasPrefix(mediaType, "text/") {
		return "", nil
	}

	var decoded io.Reader = r
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		decoded = quotedprintable.NewReader(r)
	case "base64":
		raw, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(string(raw)), ""))
		if err != nil {
			return "", err
		}
		decoded = bytes.NewReader(b)
	}

	if cr, err := charsetReader(params["charset"], decoded); err == nil {
		decoded = cr
	} else {
		log.Warn().Err(err).Msg("keeping body in its original charset")
	}

	b, err := io.ReadAll(decoded)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// charsetReader converts r from the named charset to UTF-8. Labels are resolved the
// way browsers do, so iso-8859-1 reads as windows-1252.
func charsetReader(charset string, r io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8", "us-ascii":
		return r, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(r), nil
}
