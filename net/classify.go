package net

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
)

// IdentityHeader carries the backend identifier on responses served by
// the balancer's backends.
const IdentityHeader = "X-Server-Id"

// ErrorKind classifies the failure of a single request attempt.
type ErrorKind int

const (
	KindNone ErrorKind = iota

	// KindConnection: refused, reset or unreachable.
	KindConnection

	// KindTimeout: deadline exceeded while connecting or waiting
	// for the response.
	KindTimeout

	// KindProtocol: a response arrived, but with a non-2xx status.
	KindProtocol

	// KindConfiguration: invalid input, fatal at startup.
	KindConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// ClassifyError maps a transport error to an ErrorKind. Timeouts take
// precedence over connection failures, because a slow refused dial
// surfaces both.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return KindConnection
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}

	return KindConnection
}

// ClassifyStatus maps a response status code to an ErrorKind: any
// non-2xx status is a protocol level failure.
func ClassifyStatus(code int) ErrorKind {
	if code >= 200 && code < 300 {
		return KindNone
	}

	return KindProtocol
}

type identityBody struct {
	Backend string `json:"backend"`
}

// BackendID attributes a response to a backend instance. It prefers
// the identity header and falls back to the backend field of a JSON
// body. It returns the empty string when the response carries no
// attribution. The response body is consumed.
func BackendID(rsp *http.Response) string {
	if id := rsp.Header.Get(IdentityHeader); id != "" {
		io.Copy(io.Discard, rsp.Body)
		return id
	}

	var b identityBody
	if err := json.NewDecoder(rsp.Body).Decode(&b); err != nil {
		io.Copy(io.Discard, rsp.Body)
		return ""
	}

	io.Copy(io.Discard, rsp.Body)
	return b.Backend
}
