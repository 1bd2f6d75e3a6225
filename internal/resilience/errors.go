package resilience

import (
	"errors"
	"net"
	"net/textproto"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// IsTransient reports whether err looks safe to retry: network timeouts,
// dropped connections and FTP 4xx replies, which the protocol defines as
// transient negative completions.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if transient(err) {
		return true
	}
	if cause := eris.Cause(err); cause != nil && cause != err {
		return transient(cause)
	}
	return false
}

func transient(err error) bool {

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	var reply *textproto.Error
	if errors.As(err, &reply) {
		return reply.Code >= 400 && reply.Code < 500
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{"connection reset by peer", "broken pipe", "i/o timeout"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
