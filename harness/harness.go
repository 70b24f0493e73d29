// Package harness installs generated schema SQL into a running server
// and manages throwaway scratch databases for integration tests.
package harness

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Options identifies the server and database to connect to.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN renders the options as a libpq connection string.
func (o Options) DSN() string {
	sslmode := o.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	parts := []string{
		fmt.Sprintf("host=%s", o.Host),
		fmt.Sprintf("port=%d", o.Port),
		fmt.Sprintf("sslmode=%s", sslmode),
	}
	if o.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", o.User))
	}
	if o.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", o.Password))
	}
	if o.Database != "" {
		parts = append(parts, fmt.Sprintf("dbname=%s", o.Database))
	}
	return strings.Join(parts, " ")
}

// Open dials the server described by the options.
func Open(opts Options) (*sql.DB, error) {
	db, err := sql.Open("postgres", opts.DSN())
	if err != nil {
		return nil, fmt.Errorf("pgmantle: open database: %w", err)
	}
	return db, nil
}

// Installer applies a generated schema script to one database.
type Installer struct {
	db *sql.DB
}

// NewInstaller wraps an open connection pool.
func NewInstaller(db *sql.DB) *Installer {
	return &Installer{db: db}
}

// Install splits the script into statements and applies them inside a
// single transaction, so a failing statement leaves the database as it
// was.
func (in *Installer) Install(ctx context.Context, script string) error {
	stmts := SplitStatements(script)
	if len(stmts) == 0 {
		return nil
	}
	tx, err := in.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgmantle: begin install: %w", err)
	}
	for i, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("[WARN] install: rollback after failed statement: %v", rbErr)
			}
			return fmt.Errorf("pgmantle: statement %d of %d failed: %w", i+1, len(stmts), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgmantle: commit install: %w", err)
	}
	log.Printf("[INFO] install: applied %d statements", len(stmts))
	return nil
}

// SplitStatements breaks a script on top-level semicolons. Semicolons
// inside single-quoted strings, dollar-quoted bodies, line comments
// and block comments do not terminate a statement.
func SplitStatements(script string) []string {
	var (
		stmts   []string
		buf     strings.Builder
		inQuote bool
	)
	flush := func() {
		s := strings.TrimSpace(buf.String())
		buf.Reset()
		if s != "" {
			stmts = append(stmts, s)
		}
	}
	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case inQuote:
			buf.WriteByte(c)
			if c == '\'' {
				if i+1 < len(script) && script[i+1] == '\'' {
					buf.WriteByte('\'')
					i++
					continue
				}
				inQuote = false
			}
		case c == '\'':
			inQuote = true
			buf.WriteByte(c)
		case c == '$':
			t, ok := dollarTag(script[i:])
			if !ok {
				buf.WriteByte(c)
				continue
			}
			end := strings.Index(script[i+len(t):], t)
			if end < 0 {
				// Unterminated body; keep the rest verbatim.
				buf.WriteString(script[i:])
				i = len(script)
				continue
			}
			stop := i + len(t) + end + len(t)
			buf.WriteString(script[i:stop])
			i = stop - 1
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			for i < len(script) && script[i] != '\n' {
				i++
			}
			buf.WriteByte('\n')
		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				// Unterminated comment swallows the rest.
				i = len(script)
				continue
			}
			i += 2 + end + 1
			buf.WriteByte(' ')
		case c == ';':
			flush()
		default:
			buf.WriteByte(c)
		}
	}
	flush()
	return stmts
}

// dollarTag reads a $tag$ opener at the head of s.
func dollarTag(s string) (string, bool) {
	if len(s) < 2 || s[0] != '$' {
		return "", false
	}
	for i := 1; i < len(s); i++ {
		switch {
		case s[i] == '$':
			return s[:i+1], true
		case !isTagChar(s[i]):
			return "", false
		}
	}
	return "", false
}

func isTagChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// ScratchName returns a fresh database identifier that is safe to use
// unquoted.
func ScratchName() string {
	return "pgmantle_" + strings.ReplaceAll(uuid.NewString(), "-", "_")
}

// Scratch is a throwaway database created for one test run.
type Scratch struct {
	Name  string
	admin *sql.DB
}

// CreateScratch creates a scratch database through an admin
// connection. CREATE DATABASE cannot run inside a transaction, so the
// statement executes directly.
func CreateScratch(ctx context.Context, admin *sql.DB) (*Scratch, error) {
	name := ScratchName()
	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+name); err != nil {
		return nil, fmt.Errorf("pgmantle: create scratch database: %w", err)
	}
	log.Printf("[INFO] scratch: created %s", name)
	return &Scratch{Name: name, admin: admin}, nil
}

// Drop removes the scratch database.
func (s *Scratch) Drop(ctx context.Context) error {
	if _, err := s.admin.ExecContext(ctx, "DROP DATABASE IF EXISTS "+s.Name); err != nil {
		return fmt.Errorf("pgmantle: drop scratch database %s: %w", s.Name, err)
	}
	log.Printf("[INFO] scratch: dropped %s", s.Name)
	return nil
}
