package certstore

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/kokukuma/vical-verifier/pkg/pki"
)

const memoryDSN = "file::memory:?_pragma=temp_store(2)&_pragma=journal_mode(off)&_pragma=synchronous(off)"

// CertificateFile is one row of the certificates catalog.
type CertificateFile struct {
	Name      string    `db:"name" json:"name"`
	Subject   string    `db:"subject" json:"subject"`
	Issuer    string    `db:"issuer" json:"issuer"`
	NotAfter  time.Time `db:"not_after" json:"not_after"`
	PEM       []byte    `db:"pem" json:"pem"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SQLiteStore catalogs certificate files in a SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite opens (or creates) the catalog at path. An empty path opens a
// private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := memoryDSN
	if path != "" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// each :memory: connection is a separate database
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	slog.Debug("certificate catalog opened", "path", path)
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS certificates (
			name       text PRIMARY KEY,
			subject    text NOT NULL,
			issuer     text NOT NULL,
			not_after  timestamp,
			pem        blob NOT NULL,
			created_at timestamp NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating certificates table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Exists(name string) (bool, error) {
	var n int
	if err := s.db.Get(&n, "SELECT COUNT(*) FROM certificates WHERE name = ?", name); err != nil {
		return false, fmt.Errorf("checking certificate %s: %w", name, err)
	}
	return n > 0, nil
}

// Write inserts data under name. The certificate's subject, issuer and
// expiry are catalogued when data is a parseable PEM certificate.
func (s *SQLiteStore) Write(name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	exists, err := s.Exists(name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}

	row := CertificateFile{
		Name:      name,
		PEM:       data,
		CreatedAt: time.Now().UTC(),
	}
	if cert, err := pki.ParseCertificatePEM(data); err == nil {
		row.Subject = cert.Subject.String()
		row.Issuer = cert.Issuer.String()
		row.NotAfter = cert.NotAfter.UTC()
	}

	_, err = s.db.NamedExec(`
		INSERT INTO certificates (name, subject, issuer, not_after, pem, created_at)
		VALUES (:name, :subject, :issuer, :not_after, :pem, :created_at)
	`, row)
	if err != nil {
		return fmt.Errorf("inserting certificate %s: %w", name, err)
	}
	return nil
}

// List returns the catalog ordered by name.
func (s *SQLiteStore) List() ([]CertificateFile, error) {
	var files []CertificateFile
	if err := s.db.Select(&files, "SELECT * FROM certificates ORDER BY name"); err != nil {
		return nil, fmt.Errorf("listing certificates: %w", err)
	}
	return files, nil
}

func (s *SQLiteStore) Get(name string) (*CertificateFile, error) {
	var file CertificateFile
	err := s.db.Get(&file, "SELECT * FROM certificates WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("getting certificate %s: %w", name, err)
	}
	return &file, nil
}
