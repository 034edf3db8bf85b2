// Package roothints supplies the iterative resolver's starting point: the
// 13-server IANA root hint list, seeded into the cache on startup. A
// sqlite-backed Store lets an operator override or refresh that list
// without a redeploy, grounded on jroosing-HydraDNS's internal/database
// package (golang-migrate over a pure-Go modernc.org/sqlite driver,
// embedded migrations, WAL mode).
package roothints

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/blazskufca/iresolve/internal/cache"
	"github.com/blazskufca/iresolve/internal/dnsclass"
	"github.com/blazskufca/iresolve/internal/dnsmsg"
	"github.com/blazskufca/iresolve/internal/dnstype"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Hint is one root server's name and glue address.
type Hint struct {
	Name string
	IP   string
}

// Standard is the current IANA root hint list (the well-known 13
// letter-named root servers). It is the default seed used whenever no
// sqlite-backed Store is configured.
var Standard = []Hint{
	{Name: "a.root-servers.net", IP: "198.41.0.4"},
	{Name: "b.root-servers.net", IP: "170.247.170.2"},
	{Name: "c.root-servers.net", IP: "192.33.4.12"},
	{Name: "d.root-servers.net", IP: "199.7.91.13"},
	{Name: "e.root-servers.net", IP: "192.203.230.10"},
	{Name: "f.root-servers.net", IP: "192.5.5.241"},
	{Name: "g.root-servers.net", IP: "192.112.36.4"},
	{Name: "h.root-servers.net", IP: "198.97.190.53"},
	{Name: "i.root-servers.net", IP: "192.36.148.17"},
	{Name: "j.root-servers.net", IP: "192.58.128.30"},
	{Name: "k.root-servers.net", IP: "193.0.14.129"},
	{Name: "l.root-servers.net", IP: "199.7.83.42"},
	{Name: "m.root-servers.net", IP: "202.12.27.33"},
}

// ErrUnknownHost is returned when a caller-supplied initial server string
// cannot be resolved to a usable address by this package.
var ErrUnknownHost = errors.New("roothints: unknown host")

// glueTTL is the TTL given to root server glue A records. It is large
// rather than zero: root hints change on the order of years, and a zero
// TTL would have MemCache treat them as already expired the instant they
// are inserted. Seed gives the root NS records (cache.RootQuestion) the
// same TTL, but that question never expires regardless of TTL, so this
// value only decides when the glue expires.
const glueTTL = 365 * 24 * 60 * 60

// Seed inserts hints (or Standard, if hints is empty) into c as the root
// zone's NS and glue A records, the way the resolver expects to find them
// under cache.RootQuestion before its first iterative lookup.
func Seed(c cache.Cache, hints []Hint) {
	if len(hints) == 0 {
		hints = Standard
	}
	for _, h := range hints {
		c.Insert(dnsmsg.ResourceRecord{
			Question: cache.RootQuestion,
			TTL:      glueTTL,
			Value:    h.Name,
		})
		c.Insert(dnsmsg.ResourceRecord{
			Question: dnsmsg.NewQuestion(h.Name, dnstype.A, dnsclass.IN),
			TTL:      glueTTL,
			Value:    h.IP,
		})
	}
}

// Store persists an operator-editable root hint list in sqlite.
type Store struct {
	conn *sql.DB
}

// Open opens or creates a sqlite database at path and applies migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("roothints: open %s: %w", path, err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := s.seedIfEmpty(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("roothints: migration source: %w", err)
	}
	dbDriver, err := sqlite.WithInstance(s.conn, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("roothints: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("roothints: migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roothints: migrate up: %w", err)
	}
	return nil
}

func (s *Store) seedIfEmpty() error {
	var count int
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM root_hints").Scan(&count); err != nil {
		return fmt.Errorf("roothints: count: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, h := range Standard {
		if _, err := s.conn.Exec("INSERT INTO root_hints (name, ip) VALUES (?, ?)", h.Name, h.IP); err != nil {
			return fmt.Errorf("roothints: seed insert: %w", err)
		}
	}
	return nil
}

// Load returns every hint currently in the store.
func (s *Store) Load() ([]Hint, error) {
	rows, err := s.conn.Query("SELECT name, ip FROM root_hints ORDER BY name, ip")
	if err != nil {
		return nil, fmt.Errorf("roothints: query: %w", err)
	}
	defer rows.Close()

	var hints []Hint
	for rows.Next() {
		var h Hint
		if err := rows.Scan(&h.Name, &h.IP); err != nil {
			return nil, fmt.Errorf("roothints: scan: %w", err)
		}
		hints = append(hints, h)
	}
	return hints, rows.Err()
}

// Replace atomically swaps the stored hint list for hints.
func (s *Store) Replace(hints []Hint) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("roothints: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM root_hints"); err != nil {
		return fmt.Errorf("roothints: clear: %w", err)
	}
	for _, h := range hints {
		if _, err := tx.Exec("INSERT INTO root_hints (name, ip) VALUES (?, ?)", h.Name, h.IP); err != nil {
			return fmt.Errorf("roothints: insert: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
