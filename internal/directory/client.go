// Package directory reads people and their contract dates from an LDAP directory.
package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Default attributes holding contract dates.
const (
	DefaultStartDateField = "fdContractStartDate"
	DefaultEndDateField   = "fdContractEndDate"
)

// Config describes how to reach and search the directory.
type Config struct {
	URL                string
	BindDN             string
	Password           string
	SearchBase         string
	SearchFilter       string
	StartTLS           bool
	InsecureSkipVerify bool
	StartDateField     string
	EndDateField       string
	Timeout            time.Duration
}

type searcher interface {
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
}

// Client searches one directory. Each People call opens its own connection.
type Client struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a directory client. Empty date fields fall back to the defaults.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StartDateField == "" {
		cfg.StartDateField = DefaultStartDateField
	}
	if cfg.EndDateField == "" {
		cfg.EndDateField = DefaultEndDateField
	}
	if cfg.SearchFilter == "" {
		cfg.SearchFilter = "(objectClass=inetOrgPerson)"
	}
	return &Client{cfg: cfg, logger: logger}
}

// People returns every person matched by the configured search.
func (c *Client) People(ctx context.Context) ([]Person, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return c.search(ctx, conn)
}

func (c *Client) connect(ctx context.Context) (*ldap.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tlsConfig := &tls.Config{InsecureSkipVerify: c.cfg.InsecureSkipVerify}
	dialer := &net.Dialer{Timeout: c.cfg.Timeout}

	conn, err := ldap.DialURL(c.cfg.URL, ldap.DialWithDialer(dialer), ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	if c.cfg.Timeout > 0 {
		conn.SetTimeout(c.cfg.Timeout)
	}

	if c.cfg.StartTLS {
		if err := conn.StartTLS(tlsConfig); err != nil {
			conn.Close()
			return nil, fmt.Errorf("start tls: %w", err)
		}
	}
	if c.cfg.BindDN != "" {
		if err := conn.Bind(c.cfg.BindDN, c.cfg.Password); err != nil {
			conn.Close()
			return nil, fmt.Errorf("bind as %s: %w", c.cfg.BindDN, err)
		}
	}
	c.logger.Debug("connected to directory", "url", c.cfg.URL, "start_tls", c.cfg.StartTLS)
	return conn, nil
}

func (c *Client) attributes() []string {
	return []string{
		"uid", "cn", "uidNumber", "o", "title", "mail", "fdPrivateMail",
		"employeeType", "manager", c.cfg.StartDateField, c.cfg.EndDateField,
	}
}

func (c *Client) search(ctx context.Context, s searcher) ([]Person, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := ldap.NewSearchRequest(
		c.cfg.SearchBase,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		c.cfg.SearchFilter,
		c.attributes(),
		nil,
	)
	res, err := s.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", c.cfg.SearchBase, err)
	}

	people := make([]Person, 0, len(res.Entries))
	for _, entry := range res.Entries {
		p := c.personFromEntry(entry)
		if p.UID == "" {
			c.logger.Warn("skipping directory entry without uid", "dn", entry.DN)
			continue
		}
		people = append(people, p)
	}
	c.logger.Debug("directory search complete", "base", c.cfg.SearchBase, "people", len(people))
	return people, nil
}

func (c *Client) personFromEntry(e *ldap.Entry) Person {
	p := Person{
		DN:           e.DN,
		UID:          e.GetAttributeValue("uid"),
		CommonName:   e.GetAttributeValue("cn"),
		UIDNumber:    e.GetAttributeValue("uidNumber"),
		Title:        e.GetAttributeValue("title"),
		Organization: e.GetAttributeValue("o"),
		Mail:         e.GetAttributeValue("mail"),
		PrivateMail:  e.GetAttributeValue("fdPrivateMail"),
		EmployeeType: e.GetAttributeValue("employeeType"),
		ManagerDN:    e.GetAttributeValue("manager"),
	}
	p.ContractStart = c.dateAttribute(e, c.cfg.StartDateField)
	p.ContractEnd = c.dateAttribute(e, c.cfg.EndDateField)
	return p
}

func (c *Client) dateAttribute(e *ldap.Entry, field string) time.Time {
	raw := e.GetAttributeValue(field)
	if raw == "" {
		return time.Time{}
	}
	t, err := ParseTime(raw)
	if err != nil {
		c.logger.Warn("ignoring contract date", "dn", e.DN, "attribute", field, "error", err)
		return time.Time{}
	}
	return t
}
