// Package mjpeg writes the multipart/x-mixed-replace framing used to push a
// sequence of JPEG images over one HTTP response.
package mjpeg

import (
	"fmt"
	"io"
	"net"
	"strconv"

	"deskstream/internal/constants"
)

const crlf = "\r\n"

// Framer is stateless; one value can serve any number of sessions.
type Framer struct {
	boundary string
}

func NewFramer(boundary string) *Framer {
	if boundary == "" {
		boundary = constants.Boundary
	}
	return &Framer{boundary: boundary}
}

func (f *Framer) Boundary() string { return f.boundary }

func (f *Framer) ContentType() string {
	return "multipart/x-mixed-replace; boundary=" + f.boundary
}

// WriteStreamHeader writes the response head that precedes the first part.
func (f *Framer) WriteStreamHeader(w io.Writer) error {
	head := "HTTP/1.1 200 OK" + crlf +
		"Content-Type: " + f.ContentType() + crlf +
		"Cache-Control: no-cache, no-store, must-revalidate" + crlf +
		"Pragma: no-cache" + crlf +
		"Connection: close" + crlf +
		crlf
	_, err := io.WriteString(w, head)
	return err
}

// WritePart writes one JPEG as a multipart part and returns the number of
// bytes put on the wire. The frame must already be JPEG encoded.
func (f *Framer) WritePart(w io.Writer, frame []byte) (int64, error) {
	head := make([]byte, 0, 96+len(f.boundary))
	head = append(head, "--"...)
	head = append(head, f.boundary...)
	head = append(head, crlf+"Content-Type: image/jpeg"+crlf+"Content-Length: "...)
	head = strconv.AppendInt(head, int64(len(frame)), 10)
	head = append(head, crlf+crlf...)

	bufs := net.Buffers{head, frame, []byte(crlf)}
	return bufs.WriteTo(w)
}

// WriteUnauthorized writes the complete rejection for a bad credential.
func (f *Framer) WriteUnauthorized(w io.Writer) error {
	return writePlain(w, "401 Unauthorized", constants.MsgUnauthorized)
}

// WriteTooManyRequests rejects a client that is locked out after repeated
// failures.
func (f *Framer) WriteTooManyRequests(w io.Writer) error {
	return writePlain(w, "429 Too Many Requests", constants.MsgTooManyAttempts)
}

// WriteUnavailable rejects a client when the viewer cap is reached.
func (f *Framer) WriteUnavailable(w io.Writer) error {
	return writePlain(w, "503 Service Unavailable", constants.MsgServerFull)
}

func writePlain(w io.Writer, status, body string) error {
	_, err := fmt.Fprintf(w, "HTTP/1.1 %s%sContent-Type: text/plain%s%s%s%s", status, crlf, crlf, crlf, body, crlf)
	return err
}
