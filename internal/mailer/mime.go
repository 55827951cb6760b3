package mailer

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"strings"
	"time"
)

// buildMIMEMessage renders Email as a multipart/alternative RFC 5322 message.
func buildMIMEMessage(e Email, idDomain string) (string, error) {
	if e.From == "" {
		return "", fmt.Errorf("mailer: from address is required")
	}
	if len(e.To) == 0 {
		return "", fmt.Errorf("mailer: at least one recipient is required")
	}

	var b strings.Builder

	from := e.From
	if e.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", e.FromName), e.From)
	}

	writeHeader(&b, "From", from)
	writeHeader(&b, "To", strings.Join(e.To, ", "))
	if len(e.Cc) > 0 {
		writeHeader(&b, "Cc", strings.Join(e.Cc, ", "))
	}
	writeHeader(&b, "Subject", mime.QEncoding.Encode("utf-8", e.Subject))
	writeHeader(&b, "Date", time.Now().Format(time.RFC1123Z))
	writeHeader(&b, "Message-ID", fmt.Sprintf("<%s@%s>", randomToken(), idDomain))
	writeHeader(&b, "MIME-Version", "1.0")
	for k, v := range e.Headers {
		writeHeader(&b, k, v)
	}

	switch {
	case e.HTMLBody != "" && e.TextBody != "":
		boundary := "b_" + randomToken()
		writeHeader(&b, "Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", boundary))
		b.WriteString("\r\n")

		writePart(&b, boundary, "text/plain; charset=utf-8", e.TextBody)
		writePart(&b, boundary, "text/html; charset=utf-8", e.HTMLBody)
		b.WriteString("--" + boundary + "--\r\n")

	case e.HTMLBody != "":
		writeHeader(&b, "Content-Type", "text/html; charset=utf-8")
		b.WriteString("\r\n")
		b.WriteString(normalizeCRLF(e.HTMLBody))
		b.WriteString("\r\n")

	default:
		writeHeader(&b, "Content-Type", "text/plain; charset=utf-8")
		b.WriteString("\r\n")
		b.WriteString(normalizeCRLF(e.TextBody))
		b.WriteString("\r\n")
	}

	return b.String(), nil
}

func writeHeader(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}

func writePart(b *strings.Builder, boundary, contentType, body string) {
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: " + contentType + "\r\n\r\n")
	b.WriteString(normalizeCRLF(body))
	b.WriteString("\r\n")
}

func normalizeCRLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func randomToken() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("t%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
