package auth

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Inbound and outbound header names. Lookups go through
// http.Header.Get, so case does not matter on the wire; gRPC metadata
// keys are lower-cased before use.
const (
	// HeaderUser carries the identity asserted by the edge. It is trusted
	// and must never reach an upstream service.
	HeaderUser = "X-ECOS-User"

	// HeaderTimezone carries "<offset minutes>;<zone name>..." from the
	// browser. Only the first segment is read.
	HeaderTimezone = "X-ECOS-Timezone"

	HeaderAcceptLanguage = "Accept-Language"
	HeaderRealIP         = "X-Real-IP"

	// HeaderTraceID is set on every response and on outgoing calls.
	HeaderTraceID = "X-ECOS-Trace-Id"

	HeaderAuthorization = "Authorization"

	// HeaderCallerService names the service making an outgoing call.
	HeaderCallerService = "X-Caller-Service"
)

// DefaultLocale is used when the client sends no usable Accept-Language.
const DefaultLocale = "en"

const bearerPrefix = "Bearer "

// ExtractBearerToken returns the token of an Authorization value, matching
// the "Bearer " prefix case-insensitively, or "" when there is none.
func ExtractBearerToken(authHeader string) string {
	if len(authHeader) <= len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return authHeader[len(bearerPrefix):]
}

// BearerValue formats token as an Authorization header value.
func BearerValue(token string) string {
	return bearerPrefix + token
}

// FromRequest reads the caller metadata of r. Authorities, TraceID and
// Token are left for later pipeline stages.
func FromRequest(r *http.Request) RequestContext {
	return RequestContext{
		Username:       strings.TrimSpace(r.Header.Get(HeaderUser)),
		TimezoneOffset: ParseTimezone(r.Header.Get(HeaderTimezone)),
		Locale:         ParseLocale(r.Header.Get(HeaderAcceptLanguage)),
		RealIP:         ClientAddress(r),
	}
}

// ParseTimezone returns the offset in minutes from a timezone header
// value. Missing or malformed values yield 0.
func ParseTimezone(value string) int {
	if value == "" {
		return 0
	}
	first, _, _ := strings.Cut(value, ";")
	minutes, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0
	}
	return minutes
}

// ParseLocale returns the preferred language tag of an Accept-Language
// value, or [DefaultLocale].
func ParseLocale(value string) string {
	if value == "" {
		return DefaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(value)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	return tags[0].String()
}

// ClientAddress returns X-Real-IP when present, otherwise
// [PeerAddress]. It may be empty. The header is client-supplied unless the
// edge proxy overwrites it, so use it for logging and propagation only.
func ClientAddress(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get(HeaderRealIP)); ip != "" {
		return ip
	}
	return PeerAddress(r)
}

// PeerAddress returns the host part of r.RemoteAddr, the address of the
// connection's other end. Anonymous rate-limit buckets are keyed on it.
func PeerAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// outgoingHeaders lists the headers an outgoing call made on behalf of rc
// carries.
func outgoingHeaders(rc RequestContext, serviceName string) map[string]string {
	headers := make(map[string]string, 3)
	if rc.Token != "" {
		headers[HeaderAuthorization] = BearerValue(rc.Token)
	}
	if rc.TraceID != "" {
		headers[HeaderTraceID] = rc.TraceID
	}
	if serviceName != "" {
		headers[HeaderCallerService] = serviceName
	}
	return headers
}
