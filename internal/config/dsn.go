package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// resolveDSN prefers DATABASE_URL; otherwise builds one from POSTGRES_*/PG* keys.
// Returns "" when nothing database-related is configured.
func resolveDSN(s source) string {
	if v := s.get("DATABASE_URL"); v != "" {
		return v
	}
	if s.get("POSTGRES_PASSWORD", "PGHOST", "POSTGRES_DB") == "" {
		return ""
	}
	user := orDefault(s.get("POSTGRES_USER"), "vision")
	pass := s.get("POSTGRES_PASSWORD")
	host := orDefault(s.get("PGHOST"), "localhost")
	port := orDefault(s.get("PGPORT"), "5432")
	db := orDefault(s.get("POSTGRES_DB"), "vision")

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SafeDSNSummary describes a DSN for logs without the password.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
