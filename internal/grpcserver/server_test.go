package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"shelfhub/internal/auth"
	"shelfhub/internal/catalog"
	"shelfhub/internal/library"
	"shelfhub/pkg/database/dbtest"
	"shelfhub/pkg/models"
)

type stubProvider struct {
	typ     models.ContentType
	results []models.SearchResult
}

func (p stubProvider) Name() string             { return "stub-" + string(p.typ) }
func (p stubProvider) Type() models.ContentType { return p.typ }
func (p stubProvider) Search(context.Context, string, int) ([]models.SearchResult, error) {
	return p.results, nil
}

type fixture struct {
	client *Client
	svc    *library.Service
	tokenA string
	tokenB string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	db := dbtest.New(t)
	users := auth.NewRepo(db)
	tokens := auth.NewTokenService("test-secret", "shelfhub", time.Hour)
	sign := func(id, email string) string {
		u := auth.User{ID: id, Email: email, PasswordHash: "x"}
		require.NoError(t, users.CreateUser(context.Background(), u))
		tok, _, err := tokens.Sign(&u)
		require.NoError(t, err)
		return tok
	}

	agg := catalog.NewAggregator(10, time.Second,
		stubProvider{typ: models.TypeBook, results: []models.SearchResult{
			{ID: "g1", Title: "Dune", Authors: "Frank Herbert", Categories: []string{}, Type: models.TypeBook, Source: models.SourceGoogle},
		}},
		stubProvider{typ: models.TypeManga, results: []models.SearchResult{
			{ID: "11", Title: "Naruto", Authors: "Kishimoto, Masashi", Categories: []string{}, Type: models.TypeManga, Source: models.SourceMyAnimeList},
		}},
	)
	svc := library.NewService(library.NewRepo(db), nil)

	lis := bufconn.Listen(1 << 20)
	gs := NewGRPCServer(NewServer(agg, svc), tokens, users)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return fixture{
		client: NewClient(conn),
		svc:    svc,
		tokenA: sign("user-a", "a@example.com"),
		tokenB: sign("user-b", "b@example.com"),
	}
}

func withToken(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	resp, err := f.client.Search(context.Background(), &SearchRequest{Query: "x", Type: "MANGA"})
	require.NoError(t, err)
	assert.Equal(t, models.SearchResultVersion, resp.Version)
	require.Len(t, resp.Books, 1)
	assert.Equal(t, "Naruto", resp.Books[0].Title)

	resp, err = f.client.Search(context.Background(), &SearchRequest{Query: "x"})
	require.NoError(t, err)
	assert.Len(t, resp.Books, 2)

	_, err = f.client.Search(context.Background(), &SearchRequest{Query: "  "})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.client.Search(context.Background(), &SearchRequest{Query: "x", Type: "comic"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestLibraryRequiresToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.ListEntries(context.Background(), &ListEntriesRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = f.client.ListEntries(withToken("bogus"), &ListEntriesRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestLibraryOwnership(t *testing.T) {
	f := newFixture(t)
	title, author := "Dune", "Frank Herbert"
	e, err := f.svc.Create(context.Background(), "user-a", library.EntryInput{Title: &title, Author: &author})
	require.NoError(t, err)

	list, err := f.client.ListEntries(withToken(f.tokenA), &ListEntriesRequest{})
	require.NoError(t, err)
	require.Len(t, list.Entries, 1)

	_, err = f.client.DeleteEntry(withToken(f.tokenB), &DeleteEntryRequest{ID: e.ID})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = f.client.GetEntry(withToken(f.tokenB), &GetEntryRequest{ID: e.ID})
	assert.Equal(t, codes.NotFound, status.Code(err))

	got, err := f.client.GetEntry(withToken(f.tokenA), &GetEntryRequest{ID: e.ID})
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Entry.Title)

	del, err := f.client.DeleteEntry(withToken(f.tokenA), &DeleteEntryRequest{ID: e.ID})
	require.NoError(t, err)
	assert.True(t, del.Deleted)

	_, err = f.client.GetEntry(withToken(f.tokenA), &GetEntryRequest{ID: e.ID})
	assert.Equal(t, codes.NotFound, status.Code(err))
}
