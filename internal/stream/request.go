package stream

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"deskstream/internal/constants"
)

var errRequestLineTooLong = errors.New("request line too long")

// ParseAuthKey extracts the credential from a request line: the text after
// the first "auth=" up to the next space, or to the end of the line. ok is
// false when the line carries no "auth=" at all.
func ParseAuthKey(line string) (key string, ok bool) {
	idx := strings.Index(line, constants.AuthQueryKey)
	if idx == -1 {
		return "", false
	}

	key = line[idx+len(constants.AuthQueryKey):]
	if end := strings.IndexByte(key, ' '); end != -1 {
		key = key[:end]
	}
	return key, true
}

// readRequestLine returns the first line of the request without its line
// terminator. A final line cut short by EOF is still returned.
func readRequestLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadSlice('\n')
	switch {
	case errors.Is(err, bufio.ErrBufferFull):
		return "", errRequestLineTooLong
	case errors.Is(err, io.EOF) && len(line) > 0:
	case err != nil:
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}
