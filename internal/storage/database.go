package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/namnn9x/remi/internal/book"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// schemaVersion is stamped into PRAGMA user_version. Opening a database
// written by a newer binary fails instead of guessing at the shape.
const schemaVersion = 1

// DB wraps the database connection with connection pooling tuned for the
// server's request fan-out.
type DB struct {
	*sql.DB
}

// InitDB opens the sqlite database, applies migrations and returns the
// wrapped handle.
func InitDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, schemaVersion)
	}
	if version == schemaVersion {
		return nil
	}

	if version < 1 {
		if err := createTables(db); err != nil {
			return err
		}
	}

	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", schemaVersion))
	return err
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		share_id TEXT NOT NULL UNIQUE,
		contribute_id TEXT NOT NULL UNIQUE,
		pages TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (owner_id) REFERENCES users(id)
	);
	CREATE INDEX IF NOT EXISTS idx_books_owner ON books(owner_id);
	CREATE INDEX IF NOT EXISTS idx_books_share ON books(share_id);
	CREATE INDEX IF NOT EXISTS idx_books_contribute ON books(contribute_id);

	CREATE TABLE IF NOT EXISTS photos (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		url TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		prompt TEXT NOT NULL DEFAULT '',
		uploaded_at DATETIME NOT NULL,
		FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_photos_book ON photos(book_id);

	CREATE TABLE IF NOT EXISTS contributions (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		photo_id TEXT NOT NULL,
		contributor_id TEXT,
		note TEXT NOT NULL DEFAULT '',
		prompt TEXT NOT NULL DEFAULT '',
		contributed_at DATETIME NOT NULL,
		FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_contributions_book ON contributions(book_id);
	CREATE INDEX IF NOT EXISTS idx_contributions_user ON contributions(contributor_id);
	`

	_, err := db.Exec(schema)
	return err
}

// User is an account that owns memory books.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// SaveUser inserts a new user. Duplicate emails fail on the unique index.
func (db *DB) SaveUser(u *User) error {
	query := `INSERT INTO users (id, email, name, password_hash, created_at)
	          VALUES (?, ?, ?, ?, ?)`
	_, err := db.Exec(query, u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt)
	return err
}

// GetUser retrieves a user by id.
func (db *DB) GetUser(id string) (*User, error) {
	return db.scanUser(`SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(email string) (*User, error) {
	return db.scanUser(`SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`, email)
}

func (db *DB) scanUser(query string, arg any) (*User, error) {
	u := &User{}
	err := db.QueryRow(query, arg).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// SaveBook writes the whole book record. Pages are stored as one JSON
// document per book, so page updates are whole-resource writes and the last
// write wins. The photo pool lives in its own table and is untouched here.
func (db *DB) SaveBook(b *book.Book) error {
	pagesJSON, err := json.Marshal(b.Pages)
	if err != nil {
		return fmt.Errorf("failed to encode pages: %w", err)
	}
	query := `INSERT OR REPLACE INTO books (id, owner_id, name, type, share_id, contribute_id, pages, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.Exec(query, b.ID, b.OwnerID, b.Name, b.Type, b.ShareID, b.ContributeID, string(pagesJSON), b.CreatedAt, b.UpdatedAt)
	return err
}

const bookColumns = `id, owner_id, name, type, share_id, contribute_id, pages, created_at, updated_at`

// GetBook retrieves a book with its pages and photo pool.
func (db *DB) GetBook(id string) (*book.Book, error) {
	return db.scanBook(`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
}

// GetBookByShareID retrieves a book through its public read-only id.
func (db *DB) GetBookByShareID(shareID string) (*book.Book, error) {
	return db.scanBook(`SELECT `+bookColumns+` FROM books WHERE share_id = ?`, shareID)
}

// GetBookByContributeID retrieves a book through its write-only contribute id.
func (db *DB) GetBookByContributeID(contributeID string) (*book.Book, error) {
	return db.scanBook(`SELECT `+bookColumns+` FROM books WHERE contribute_id = ?`, contributeID)
}

func (db *DB) scanBook(query string, arg any) (*book.Book, error) {
	b := &book.Book{}
	var pagesJSON string
	err := db.QueryRow(query, arg).Scan(&b.ID, &b.OwnerID, &b.Name, &b.Type, &b.ShareID, &b.ContributeID, &pagesJSON, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := decodePages(b, pagesJSON); err != nil {
		return nil, err
	}
	photos, err := db.ListPhotos(b.ID)
	if err != nil {
		return nil, err
	}
	b.Photos = photos
	return b, nil
}

func decodePages(b *book.Book, pagesJSON string) error {
	if err := json.Unmarshal([]byte(pagesJSON), &b.Pages); err != nil {
		return fmt.Errorf("failed to decode pages for book %s: %w", b.ID, err)
	}
	if b.Pages == nil {
		b.Pages = []book.Page{}
	}
	return nil
}

// DeleteBook removes a book; photos and contributions cascade.
func (db *DB) DeleteBook(id string) error {
	_, err := db.Exec("DELETE FROM books WHERE id = ?", id)
	return err
}

// ListBooksByOwner returns a page of the owner's books, newest first, plus
// the total count.
func (db *DB) ListBooksByOwner(ownerID string, limit, offset int) ([]*book.Book, int, error) {
	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM books WHERE owner_id = ?`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := db.Query(`SELECT `+bookColumns+` FROM books WHERE owner_id = ?
	                        ORDER BY created_at DESC LIMIT ? OFFSET ?`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	books, err := db.collectBooks(rows)
	return books, total, err
}

// ListContributedBooks returns books the user has contributed photos to.
func (db *DB) ListContributedBooks(userID string, limit, offset int) ([]*book.Book, int, error) {
	var total int
	if err := db.QueryRow(`SELECT COUNT(DISTINCT book_id) FROM contributions WHERE contributor_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := db.Query(`SELECT `+bookColumns+` FROM books WHERE id IN
	                        (SELECT DISTINCT book_id FROM contributions WHERE contributor_id = ?)
	                        ORDER BY created_at DESC LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	books, err := db.collectBooks(rows)
	return books, total, err
}

func (db *DB) collectBooks(rows *sql.Rows) ([]*book.Book, error) {
	defer rows.Close()
	var books []*book.Book
	for rows.Next() {
		b := &book.Book{}
		var pagesJSON string
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Type, &b.ShareID, &b.ContributeID, &pagesJSON, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		if err := decodePages(b, pagesJSON); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Photo pools are loaded after the book rows are drained; sqlite does
	// not like interleaved queries on one connection inside an open cursor.
	for _, b := range books {
		photos, err := db.ListPhotos(b.ID)
		if err != nil {
			return nil, err
		}
		b.Photos = photos
	}
	return books, nil
}

// SavePhoto adds a photo to a book's pool, or replaces the entry on
// re-registration.
func (db *DB) SavePhoto(bookID string, p *book.Photo) error {
	query := `INSERT OR REPLACE INTO photos (id, book_id, filename, url, note, prompt, uploaded_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.Exec(query, p.ID, bookID, p.Filename, p.URL, p.Note, p.Prompt, p.UploadedAt)
	return err
}

// GetPhoto retrieves a pool photo and the id of the book owning it.
func (db *DB) GetPhoto(photoID string) (*book.Photo, string, error) {
	p := &book.Photo{}
	var bookID string
	err := db.QueryRow(`SELECT id, book_id, filename, url, note, prompt, uploaded_at FROM photos WHERE id = ?`, photoID).
		Scan(&p.ID, &bookID, &p.Filename, &p.URL, &p.Note, &p.Prompt, &p.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return p, bookID, nil
}

// GetPhotoByFilename retrieves a pool photo by stored filename.
func (db *DB) GetPhotoByFilename(filename string) (*book.Photo, string, error) {
	p := &book.Photo{}
	var bookID string
	err := db.QueryRow(`SELECT id, book_id, filename, url, note, prompt, uploaded_at FROM photos WHERE filename = ?`, filename).
		Scan(&p.ID, &bookID, &p.Filename, &p.URL, &p.Note, &p.Prompt, &p.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return p, bookID, nil
}

// DeletePhoto removes a photo from the pool.
func (db *DB) DeletePhoto(photoID string) error {
	_, err := db.Exec("DELETE FROM photos WHERE id = ?", photoID)
	return err
}

// ListPhotos returns a book's photo pool in upload order.
func (db *DB) ListPhotos(bookID string) ([]book.Photo, error) {
	rows, err := db.Query(`SELECT id, filename, url, note, prompt, uploaded_at FROM photos
	                        WHERE book_id = ? ORDER BY uploaded_at ASC, id ASC`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []book.Photo
	for rows.Next() {
		var p book.Photo
		if err := rows.Scan(&p.ID, &p.Filename, &p.URL, &p.Note, &p.Prompt, &p.UploadedAt); err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// SaveContribution records a contribution. contributorID is empty for
// anonymous submissions.
func (db *DB) SaveContribution(c *book.Contribution, contributorID string) error {
	var contributor sql.NullString
	if contributorID != "" {
		contributor = sql.NullString{String: contributorID, Valid: true}
	}
	query := `INSERT INTO contributions (id, book_id, photo_id, contributor_id, note, prompt, contributed_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.Exec(query, c.ID, c.BookID, c.PhotoID, contributor, c.Note, c.Prompt, c.ContributedAt)
	return err
}

// ListContributions returns a page of a book's contributions, newest first,
// plus the total count. Each record carries the submitted photo's URL.
func (db *DB) ListContributions(bookID string, limit, offset int) ([]book.Contribution, int, error) {
	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM contributions WHERE book_id = ?`, bookID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := db.Query(`SELECT c.id, c.book_id, c.photo_id, c.note, c.prompt, c.contributed_at, COALESCE(p.url, '')
	                        FROM contributions c LEFT JOIN photos p ON p.id = c.photo_id
	                        WHERE c.book_id = ? ORDER BY c.contributed_at DESC LIMIT ? OFFSET ?`, bookID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var contributions []book.Contribution
	for rows.Next() {
		var c book.Contribution
		if err := rows.Scan(&c.ID, &c.BookID, &c.PhotoID, &c.Note, &c.Prompt, &c.ContributedAt, &c.URL); err != nil {
			return nil, 0, err
		}
		contributions = append(contributions, c)
	}
	return contributions, total, rows.Err()
}
