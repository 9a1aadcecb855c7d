package mail

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/yuin/goldmark"
)

// Message is a mail whose body is written in Markdown and sent as
// multipart/alternative with a plain text and an HTML part.
type Message struct {
	From     string
	To       []string
	Subject  string
	Markdown string
	Date     time.Time
}

func renderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Bytes renders the message in RFC 5322 form.
func (m *Message) Bytes() ([]byte, error) {
	html, err := renderHTML(m.Markdown)
	if err != nil {
		return nil, fmt.Errorf("render mail body: %w", err)
	}
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", m.Markdown},
		{"text/html; charset=UTF-8", html},
	}
	for _, p := range parts {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", p.contentType)
		header.Set("Content-Transfer-Encoding", "8bit")
		w, err := writer.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteString("From: " + m.From + "\r\n")
	out.WriteString("To: " + strings.Join(m.To, ", ") + "\r\n")
	out.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", m.Subject) + "\r\n")
	out.WriteString("Date: " + date.UTC().Format(time.RFC1123Z) + "\r\n")
	out.WriteString("MIME-Version: 1.0\r\n")
	out.WriteString("Content-Type: multipart/alternative; boundary=" + writer.Boundary() + "\r\n")
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}
