// Package sync reconciles in-memory book edits with the remote service.
// Page writes are whole-resource and debounced; uploads go out immediately.
// There is no conflict resolution between simultaneous editors of one book:
// the last write to land wins, a known limitation accepted over CRDT-style
// merging.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Client talks to the remi REST API, attaching the session token and
// coercing every failure into *APIError. A 401 from any authenticated call
// expires the session, which broadcasts exactly one event.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	log     zerolog.Logger
}

func NewClient(baseURL string, session *Session, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		session: session,
		log:     log,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &APIError{Code: CodeHTTP, Message: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &APIError{Code: CodeHTTP, Message: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Code: CodeNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.session.expire("token rejected")
		return &APIError{Code: CodeUnauthorized, Message: "session expired", Status: resp.StatusCode}
	}
	if resp.StatusCode >= 400 {
		return c.decodeError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &APIError{Code: CodeHTTP, Message: fmt.Sprintf("decode response: %v", err), Status: resp.StatusCode}
		}
	}
	return nil
}

// decodeError maps a structured {"error":{code,message}} body onto APIError
// and falls back to a generic HTTP error for anything unparseable.
func (c *Client) decodeError(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Code == "" {
		return &APIError{Code: CodeHTTP, Message: resp.Status, Status: resp.StatusCode}
	}
	return &APIError{Code: envelope.Error.Code, Message: envelope.Error.Message, Status: resp.StatusCode}
}

// Register creates an account and stores the returned token.
func (c *Client) Register(ctx context.Context, email, password, name string) (*User, error) {
	return c.authenticate(ctx, "/api/auth/register", map[string]string{
		"email": email, "password": password, "name": name,
	})
}

// Login authenticates and stores the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	return c.authenticate(ctx, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, body map[string]string) (*User, error) {
	var resp struct {
		Data struct {
			User  User   `json:"user"`
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	c.session.SetToken(resp.Data.Token)
	return &resp.Data.User, nil
}

// Logout drops the stored credential without signalling expiry.
func (c *Client) Logout() {
	c.session.Clear()
}

func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var resp struct {
		Data User `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) CreateBook(ctx context.Context, name, bookType string) (*Book, error) {
	var b Book
	err := c.do(ctx, http.MethodPost, "/api/memory-books", map[string]string{"name": name, "type": bookType}, &b)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) GetBook(ctx context.Context, id string) (*Book, error) {
	return c.getBook(ctx, "/api/memory-books/"+url.PathEscape(id))
}

func (c *Client) GetBookByShareID(ctx context.Context, shareID string) (*Book, error) {
	return c.getBook(ctx, "/api/memory-books/share/"+url.PathEscape(shareID))
}

func (c *Client) getBook(ctx context.Context, path string) (*Book, error) {
	var b Book
	if err := c.do(ctx, http.MethodGet, path, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// BookSummary is the metadata-only view a contribute link exposes.
type BookSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	ContributeID string `json:"contributeId"`
}

func (c *Client) GetBookByContributeID(ctx context.Context, contributeID string) (*BookSummary, error) {
	var summary BookSummary
	err := c.do(ctx, http.MethodGet, "/api/memory-books/contribute/"+url.PathEscape(contributeID), nil, &summary)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) UpdateBook(ctx context.Context, id string, update BookUpdate) (*Book, error) {
	var b Book
	err := c.do(ctx, http.MethodPut, "/api/memory-books/"+url.PathEscape(id), update, &b)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// SavePages writes the whole page list of a book, the adapter's only write
// granularity.
func (c *Client) SavePages(ctx context.Context, bookID string, pages []Page) error {
	if pages == nil {
		pages = []Page{}
	}
	_, err := c.UpdateBook(ctx, bookID, BookUpdate{Pages: pages})
	return err
}

func (c *Client) DeleteBook(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/memory-books/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListBooks(ctx context.Context, limit, offset int) (*BookList, error) {
	var list BookList
	err := c.do(ctx, http.MethodGet, "/api/memory-books?"+pageQuery(limit, offset), nil, &list)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) MyBooks(ctx context.Context, limit, offset int) (*MyBooks, error) {
	var my MyBooks
	err := c.do(ctx, http.MethodGet, "/api/memory-books/my?"+pageQuery(limit, offset), nil, &my)
	if err != nil {
		return nil, err
	}
	return &my, nil
}

// Upload sends a file immediately, outside the debounced save path. The
// returned photo id must exist before any page can reference it.
func (c *Client) Upload(ctx context.Context, bookID, filename string, data io.Reader) (*Upload, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if bookID != "" {
		if err := mw.WriteField("memoryBookId", bookID); err != nil {
			return nil, &APIError{Code: CodeHTTP, Message: err.Error()}
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, &APIError{Code: CodeHTTP, Message: err.Error()}
	}
	if _, err := io.Copy(fw, data); err != nil {
		return nil, &APIError{Code: CodeHTTP, Message: err.Error()}
	}
	if err := mw.Close(); err != nil {
		return nil, &APIError{Code: CodeHTTP, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return nil, &APIError{Code: CodeHTTP, Message: err.Error()}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var uploaded Upload
	if err := c.send(req, &uploaded); err != nil {
		return nil, err
	}
	return &uploaded, nil
}

func (c *Client) DeleteImage(ctx context.Context, filename string) error {
	return c.do(ctx, http.MethodDelete, "/api/images/"+url.PathEscape(filename), nil, nil)
}

// ImageURL derives the display URL for a stored filename.
func (c *Client) ImageURL(filename string) string {
	return c.baseURL + "/api/images/" + url.PathEscape(filename)
}

// SubmitContributions sends a batch of files with parallel notes and
// prompts against a book's contribute slug. No credential is required.
func (c *Client) SubmitContributions(ctx context.Context, contributeID string, files []ContributionFile) ([]Contribution, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		fw, err := mw.CreateFormFile("files", f.Filename)
		if err != nil {
			return nil, &APIError{Code: CodeHTTP, Message: err.Error()}
		}
		if _, err := fw.Write(f.Data); err != nil {
			return nil, &APIError{Code: CodeHTTP, Message: err.Error()}
		}
		if err := mw.WriteField("notes", f.Note); err != nil {
			return nil, &APIError{Code: CodeHTTP, Message: err.Error()}
		}
		if err := mw.WriteField("prompts", f.Prompt); err != nil {
			return nil, &APIError{Code: CodeHTTP, Message: err.Error()}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, &APIError{Code: CodeHTTP, Message: err.Error()}
	}

	path := "/api/memory-books/" + url.PathEscape(contributeID) + "/contributions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return nil, &APIError{Code: CodeHTTP, Message: err.Error()}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		Data []Contribution `json:"data"`
	}
	if err := c.send(req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) ListContributions(ctx context.Context, bookID string, limit, offset int) (*ContributionList, error) {
	var list ContributionList
	path := "/api/memory-books/" + url.PathEscape(bookID) + "/contributions?" + pageQuery(limit, offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func pageQuery(limit, offset int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return q.Encode()
}
