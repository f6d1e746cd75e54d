package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
)

// 文档注释：来源 IP 白名单（单 IP + CIDR，IPv4/IPv6）
// 约束：未配置任何规则时不拦截；来源 IP 默认取 RemoteAddr，指定 realIPHeader 时取该头的首个有效 IP。
type Allowlist struct {
	l            *slog.Logger
	allowIPs     map[string]struct{}
	allowCIDRs   []*net.IPNet
	realIPHeader string
}

// NewAllowlist：无法解析的条目被忽略
func NewAllowlist(l *slog.Logger, ips, cidrs []string, allowLocal bool, realIPHeader string) *Allowlist {
	a := &Allowlist{l: l, allowIPs: map[string]struct{}{}, realIPHeader: strings.TrimSpace(realIPHeader)}
	for _, p := range ips {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			a.allowIPs[ip.String()] = struct{}{}
		}
	}
	for _, c := range cidrs {
		if _, n, err := net.ParseCIDR(strings.TrimSpace(c)); err == nil {
			a.allowCIDRs = append(a.allowCIDRs, n)
		}
	}
	if allowLocal {
		a.allowIPs["127.0.0.1"] = struct{}{}
		a.allowIPs["::1"] = struct{}{}
	}
	return a
}

// AllowlistFromEnv：ALLOW_IPS / ALLOW_CIDRS（逗号分隔）、ALLOW_LOCAL、REAL_IP_HEADER
func AllowlistFromEnv(l *slog.Logger) *Allowlist {
	return NewAllowlist(l,
		splitList(os.Getenv("ALLOW_IPS")),
		splitList(os.Getenv("ALLOW_CIDRS")),
		os.Getenv("ALLOW_LOCAL") == "true",
		os.Getenv("REAL_IP_HEADER"),
	)
}

func (a *Allowlist) Enabled() bool { return len(a.allowIPs) > 0 || len(a.allowCIDRs) > 0 }

func (a *Allowlist) Wrap(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := a.extractIP(r)
		if ip != nil && a.allowed(ip) {
			next.ServeHTTP(w, r)
			return
		}
		a.l.Debug("allowlist_block", "remote", r.RemoteAddr)
		w.Header().Set("content-type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "forbidden"})
	})
}

func (a *Allowlist) allowed(ip net.IP) bool {
	if _, ok := a.allowIPs[ip.String()]; ok {
		return true
	}
	for _, n := range a.allowCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (a *Allowlist) extractIP(r *http.Request) net.IP {
	if a.realIPHeader != "" {
		if raw := r.Header.Get(a.realIPHeader); raw != "" {
			first := strings.TrimSpace(strings.Split(raw, ",")[0])
			if ip := net.ParseIP(first); ip != nil {
				return ip
			}
		}
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
