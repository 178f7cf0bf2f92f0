// Package safety hardens the outbound HTTP requests made on behalf of the
// model. Tool arguments flow into query strings and request bodies, so the
// client refuses private and link-local targets, caps redirects, and bounds
// how much of a response is read.
package safety

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBodyLimit bounds how many response bytes a tool may consume.
	DefaultBodyLimit int64 = 1 << 20
	maxRedirectHops        = 3
)

var blockedCIDRs = mustParseCIDRs(
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

// RestrictedClient derives a client from base that dials only public
// addresses, ignores proxy settings, and stops long redirect chains. The
// base client is not modified.
func RestrictedClient(base *http.Client) *http.Client {
	if base == nil {
		base = &http.Client{}
	}

	out := *base
	if out.Transport == nil {
		out.Transport = http.DefaultTransport
	}

	if tr, ok := out.Transport.(*http.Transport); ok {
		clone := tr.Clone()
		clone.Proxy = nil
		clone.ProxyConnectHeader = nil
		clone.GetProxyConnectHeader = nil
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
		clone.DialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(address)
			if err != nil {
				return nil, err
			}
			if _, err := strconv.Atoi(port); err != nil {
				return nil, fmt.Errorf("invalid port")
			}
			ip, err := resolvePublicIP(ctx, host)
			if err != nil {
				return nil, err
			}
			return dialer.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
		}
		out.Transport = clone
	}

	out.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > maxRedirectHops {
			return fmt.Errorf("redirect limit exceeded (max %d)", maxRedirectHops)
		}
		return nil
	}

	return &out
}

// resolvePublicIP resolves host and rejects it if any record points at a
// blocked range, so a split-horizon DNS answer can not smuggle in a private
// address.
func resolvePublicIP(ctx context.Context, host string) (net.IP, error) {
	host = strings.TrimSpace(host)
	if host == "" || strings.Contains(host, "%") {
		return nil, fmt.Errorf("invalid host")
	}
	if ip := net.ParseIP(host); ip != nil {
		if err := validateIP(ip); err != nil {
			return nil, err
		}
		return ip, nil
	}
	records, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dns resolution returned no records")
	}
	for _, rec := range records {
		if err := validateIP(rec.IP); err != nil {
			return nil, err
		}
	}
	return records[0].IP, nil
}

func validateIP(ip net.IP) error {
	if ip == nil || ip.IsUnspecified() {
		return fmt.Errorf("invalid address")
	}
	for _, cidr := range blockedCIDRs {
		if cidr.Contains(ip) {
			return fmt.Errorf("address %s is not allowed", ip)
		}
	}
	return nil
}

// ReadBodyLimited reads at most limit bytes of the response body and errors
// when the body is larger.
func ReadBodyLimited(resp *http.Response, limit int64) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, fmt.Errorf("response body is empty")
	}
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	lr := &io.LimitedReader{R: resp.Body, N: limit + 1}
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("response exceeds maximum size %d bytes", limit)
	}
	return b, nil
}

// DecodeJSONLimited reads a bounded response body and decodes exactly one
// JSON document from it.
func DecodeJSONLimited(resp *http.Response, limit int64, out any) error {
	b, err := ReadBodyLimited(resp, limit)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(out); err != nil {
		return err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		return fmt.Errorf("invalid json payload")
	}
	return nil
}

func mustParseCIDRs(values ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(values))
	for _, v := range values {
		_, n, err := net.ParseCIDR(v)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}
