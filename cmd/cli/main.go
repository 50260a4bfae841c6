package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"shelfhub/pkg/models"
)

type CLI struct {
	API       string `help:"API base URL" default:"http://localhost:8080" env:"SHELFHUB_API"`
	TokenFile string `help:"Where the session token is kept" default:"${token_path}" type:"path"`

	Auth   AuthCmd   `cmd:"" help:"Register, log in and out"`
	Search SearchCmd `cmd:"" help:"Search Google Books, Apple Books and Jikan"`
	Books  BooksCmd  `cmd:"" help:"Manage your library"`
}

type AuthCmd struct {
	Register RegisterCmd `cmd:"" help:"Create an account and keep its token"`
	Login    LoginCmd    `cmd:"" help:"Log in and keep the token"`
	Logout   LogoutCmd   `cmd:"" help:"Revoke and forget the token"`
	Me       MeCmd       `cmd:"" help:"Show the logged in account"`
}

type BooksCmd struct {
	List     ListCmd     `cmd:"" help:"List library entries"`
	Add      AddCmd      `cmd:"" help:"Add an entry by hand"`
	Import   ImportCmd   `cmd:"" help:"Add the first search hit for a query"`
	Show     ShowCmd     `cmd:"" help:"Show one entry"`
	Progress ProgressCmd `cmd:"" help:"Update reading progress"`
	Remove   RemoveCmd   `cmd:"" help:"Delete an entry"`
	Stats    StatsCmd    `cmd:"" help:"Show library statistics"`
	History  HistoryCmd  `cmd:"" help:"Show progress history of an entry"`
}

// app carries what every command needs.
type app struct {
	ctx       context.Context
	client    *http.Client
	baseURL   string
	tokenPath string
	out       io.Writer
}

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user"`
}

type RegisterCmd struct {
	Email    string `required:"" help:"Email address"`
	Password string `required:"" help:"Password"`
	Name     string `help:"Display name"`
}

func (c *RegisterCmd) Run(a *app) error {
	var resp authResponse
	payload := map[string]string{"email": c.Email, "password": c.Password, "name": c.Name}
	if err := a.do(http.MethodPost, "/api/auth/register", "", payload, &resp); err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	if err := saveToken(a.tokenPath, resp.Token); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "registered and logged in")
	return nil
}

type LoginCmd struct {
	Email    string `required:"" help:"Email address"`
	Password string `required:"" help:"Password"`
}

func (c *LoginCmd) Run(a *app) error {
	var resp authResponse
	payload := map[string]string{"email": c.Email, "password": c.Password}
	if err := a.do(http.MethodPost, "/api/auth/login", "", payload, &resp); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := saveToken(a.tokenPath, resp.Token); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged in")
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(a *app) error {
	// The local token goes away even if the server call fails.
	if token, err := readToken(a.tokenPath); err == nil && token != "" {
		_ = a.do(http.MethodPost, "/api/auth/logout", token, nil, nil)
	}
	if err := clearToken(a.tokenPath); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

type MeCmd struct{}

func (c *MeCmd) Run(a *app) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	var resp map[string]any
	if err := a.do(http.MethodGet, "/api/auth/me", token, nil, &resp); err != nil {
		return err
	}
	return a.printJSON(resp)
}

type searchResponse struct {
	Books   []models.SearchResult `json:"books"`
	Version int                   `json:"version"`
}

type SearchCmd struct {
	Query string `arg:"" help:"Search text"`
	Type  string `help:"ALL, BOOK or MANGA" default:"ALL" enum:"ALL,BOOK,MANGA"`
}

func (a *app) search(query, typ string) ([]models.SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", typ)
	var resp searchResponse
	if err := a.do(http.MethodGet, "/api/search?"+q.Encode(), "", nil, &resp); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return resp.Books, nil
}

func (c *SearchCmd) Run(a *app) error {
	books, err := a.search(c.Query, c.Type)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		fmt.Fprintln(a.out, "no results")
		return nil
	}
	for i, b := range books {
		fmt.Fprintf(a.out, "%2d. [%s/%s] %s by %s\n", i+1, b.Type, b.Source, b.Title, b.Authors)
	}
	return nil
}

type ListCmd struct {
	Status string `help:"READING, FINISHED or WISHLIST"`
	Type   string `help:"BOOK or MANGA"`
	Query  string `short:"q" help:"Filter by title or author"`
}

func (c *ListCmd) Run(a *app) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	q := url.Values{}
	if c.Status != "" {
		q.Set("status", strings.ToUpper(c.Status))
	}
	if c.Type != "" {
		q.Set("type", strings.ToUpper(c.Type))
	}
	if c.Query != "" {
		q.Set("q", c.Query)
	}
	path := "/api/books"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var entries []models.LibraryEntry
	if err := a.do(http.MethodGet, path, token, nil, &entries); err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	for _, e := range entries {
		fmt.Fprintf(a.out, "%s  %-8s %-5s %s by %s%s\n", e.ID, e.Status, e.Type, e.Title, e.Author, progressSuffix(e))
	}
	return nil
}

func progressSuffix(e models.LibraryEntry) string {
	switch {
	case e.CurrentPage != nil && e.TotalPages != nil:
		return fmt.Sprintf(" (p. %d/%d)", *e.CurrentPage, *e.TotalPages)
	case e.CurrentVolume != nil && e.TotalVolumes != nil:
		return fmt.Sprintf(" (vol. %d/%d)", *e.CurrentVolume, *e.TotalVolumes)
	}
	return ""
}

type AddCmd struct {
	Title      string `required:"" help:"Title"`
	Author     string `required:"" help:"Author"`
	Status     string `help:"READING, FINISHED or WISHLIST" default:"READING"`
	Type       string `help:"BOOK or MANGA" default:"BOOK"`
	TotalPages int    `help:"Page count"`
}

func (c *AddCmd) Run(a *app) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	payload := map[string]any{
		"title":  c.Title,
		"author": c.Author,
		"status": strings.ToUpper(c.Status),
		"type":   strings.ToUpper(c.Type),
	}
	if c.TotalPages > 0 {
		payload["totalPages"] = c.TotalPages
	}
	var e models.LibraryEntry
	if err := a.do(http.MethodPost, "/api/books", token, payload, &e); err != nil {
		return fmt.Errorf("add failed: %w", err)
	}
	fmt.Fprintf(a.out, "added %s\n", e.ID)
	return nil
}

type ImportCmd struct {
	Query  string `arg:"" help:"Search text"`
	Type   string `help:"ALL, BOOK or MANGA" default:"ALL" enum:"ALL,BOOK,MANGA"`
	Status string `help:"READING, FINISHED or WISHLIST" default:"WISHLIST"`
}

func (c *ImportCmd) Run(a *app) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	books, err := a.search(c.Query, c.Type)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		return fmt.Errorf("nothing found for %q", c.Query)
	}

	payload := struct {
		models.SearchResult
		Status string `json:"status"`
	}{books[0], strings.ToUpper(c.Status)}
	var e models.LibraryEntry
	if err := a.do(http.MethodPost, "/api/books/import", token, payload, &e); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Fprintf(a.out, "imported %q as %s\n", e.Title, e.ID)
	return nil
}

type ShowCmd struct {
	ID string `arg:"" help:"Entry id"`
}

func (c *ShowCmd) Run(a *app) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	var e models.LibraryEntry
	if err := a.do(http.MethodGet, "/api/books/"+url.PathEscape(c.ID), token, nil, &e); err != nil {
		return err
	}
	return a.printJSON(e)
}

type ProgressCmd struct {
	ID     string `arg:"" help:"Entry id"`
	Page   int    `help:"Current page" default:"-1"`
	Volume int    `help:"Current volume" default:"-1"`
	Status string `help:"New status"`
	Rating int    `help:"Rating 0-5" default:"-1"`
}

func (c *ProgressCmd) Run(a *app) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	payload := map[string]any{}
	if c.Page >= 0 {
		payload["currentPage"] = c.Page
	}
	if c.Volume >= 0 {
		payload["currentVolume"] = c.Volume
	}
	if c.Status != "" {
		payload["status"] = strings.ToUpper(c.Status)
	}
	if c.Rating >= 0 {
		payload["rating"] = c.Rating
	}
	if len(payload) == 0 {
		return errors.New("nothing to update")
	}
	var e models.LibraryEntry
	if err := a.do(http.MethodPut, "/api/books/"+url.PathEscape(c.ID), token, payload, &e); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	fmt.Fprintf(a.out, "updated %s%s\n", e.Title, progressSuffix(e))
	return nil
}

type RemoveCmd struct {
	ID string `arg:"" help:"Entry id"`
}

func (c *RemoveCmd) Run(a *app) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	if err := a.do(http.MethodDelete, "/api/books/"+url.PathEscape(c.ID), token, nil, nil); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	fmt.Fprintln(a.out, "removed")
	return nil
}

type StatsCmd struct{}

func (c *StatsCmd) Run(a *app) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	var st models.LibraryStats
	if err := a.do(http.MethodGet, "/api/books/stats", token, nil, &st); err != nil {
		return err
	}
	return a.printJSON(st)
}

type HistoryCmd struct {
	ID    string `arg:"" help:"Entry id"`
	Limit int    `help:"Page size" default:"20"`
}

func (c *HistoryCmd) Run(a *app) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	path := "/api/books/" + url.PathEscape(c.ID) + "/progress?limit=" + strconv.Itoa(c.Limit)
	var resp map[string]any
	if err := a.do(http.MethodGet, path, token, nil, &resp); err != nil {
		return err
	}
	return a.printJSON(resp)
}

func (a *app) token() (string, error) {
	token, err := readToken(a.tokenPath)
	if err != nil || token == "" {
		return "", errors.New("not logged in, run `shelfhub auth login` first")
	}
	return token, nil
}

func (a *app) do(method, path, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(a.ctx, method, strings.TrimRight(a.baseURL, "/")+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (%d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.shelfhub-token.json"
	}
	return filepath.Join(home, ".shelfhub", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return td.Token, nil
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	opts := append([]kong.Option{
		kong.Name("shelfhub"),
		kong.Description("Command line client for the shelfhub API."),
		kong.UsageOnError(),
		kong.Vars{"token_path": defaultTokenPath()},
	}, options...)
	return kong.New(cli, opts...)
}

func run(ctx context.Context, args []string, out io.Writer, options ...kong.Option) error {
	var cli CLI
	parser, err := newParser(&cli, options...)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run(&app{
		ctx:       ctx,
		client:    &http.Client{Timeout: 15 * time.Second},
		baseURL:   cli.API,
		tokenPath: cli.TokenFile,
		out:       out,
	})
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
