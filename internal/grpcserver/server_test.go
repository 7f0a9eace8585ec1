package grpcserver

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/octacordshop/PrimeStream/internal/auth"
	"github.com/octacordshop/PrimeStream/internal/catalogsync"
	"github.com/octacordshop/PrimeStream/internal/importer"
	"github.com/octacordshop/PrimeStream/internal/tmdb"
	"github.com/octacordshop/PrimeStream/pkg/database"
	"github.com/octacordshop/PrimeStream/pkg/grpc/syncpb"
	"github.com/octacordshop/PrimeStream/pkg/models"
)

type fakeEngine struct {
	popularErr error
	refreshErr error
	lastKind   models.Kind
	lastPage   int
}

func (f *fakeEngine) SyncPopular(_ context.Context, kind models.Kind, page int) (catalogsync.Result, error) {
	f.lastKind, f.lastPage = kind, page
	if f.popularErr != nil {
		return catalogsync.Result{Kind: kind, Page: page}, f.popularErr
	}
	return catalogsync.Result{Kind: kind, Page: page, Added: 2, Updated: 1, Total: 3,
		Episodes: catalogsync.EpisodeCounts{Added: 10}}, nil
}

func (f *fakeEngine) SyncByYear(_ context.Context, kind models.Kind, year, page int) (catalogsync.Result, error) {
	f.lastKind, f.lastPage = kind, page
	return catalogsync.Result{Kind: kind, Year: year, Page: page, Added: 1, Total: 1}, nil
}

func (f *fakeEngine) Refresh(_ context.Context, pages int) (catalogsync.RefreshResult, error) {
	return catalogsync.RefreshResult{
		Pages:   pages,
		Movies:  catalogsync.Result{Kind: models.KindMovie, Updated: 4, Total: 4},
		TVShows: catalogsync.Result{Kind: models.KindSeries, Errors: 1},
	}, f.refreshErr
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newImporter(eng importer.YearSyncer, p importer.Pinger) *importer.Orchestrator {
	o := importer.NewOrchestrator(eng, p, importer.Config{PreflightAttempts: 1})
	o.Logger = log.New(io.Discard, "", 0)
	return o
}

func dial(t *testing.T, srv *Server, opts ...grpc.ServerOption) syncpb.SyncServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(opts...)
	syncpb.RegisterSyncServiceServer(gs, srv)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return syncpb.NewSyncServiceClient(conn)
}

func newTestServer(eng *fakeEngine, p importer.Pinger) *Server {
	s := NewServer(eng, newImporter(eng, p))
	s.Logger = log.New(io.Discard, "", 0)
	return s
}

func TestSyncPopular(t *testing.T) {
	eng := &fakeEngine{}
	client := dial(t, newTestServer(eng, nil))

	resp, err := client.SyncPopular(context.Background(), &syncpb.SyncPopularRequest{Kind: "series"})
	require.NoError(t, err)
	assert.Equal(t, models.KindSeries, eng.lastKind)
	assert.Equal(t, 1, eng.lastPage, "page defaults to 1")
	assert.Equal(t, int32(2), resp.GetResult().Added)
	require.NotNil(t, resp.GetResult().Episodes)
	assert.Equal(t, int32(10), resp.GetResult().Episodes.Added)
}

func TestSyncErrorsMapToCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"invalid page", catalogsync.ErrInvalidPage, codes.InvalidArgument},
		{"provider down", &tmdb.UnavailableError{Op: "popular", StatusCode: 503}, codes.Unavailable},
		{"other", errors.New("disk full"), codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := dial(t, newTestServer(&fakeEngine{popularErr: tc.err}, nil))
			_, err := client.SyncPopular(context.Background(), &syncpb.SyncPopularRequest{Kind: "movie", Page: 3})
			assert.Equal(t, tc.code, status.Code(err))
		})
	}

	client := dial(t, newTestServer(&fakeEngine{}, nil))
	_, err := client.SyncPopular(context.Background(), &syncpb.SyncPopularRequest{Kind: "anime"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.SyncByYear(context.Background(), &syncpb.SyncByYearRequest{Kind: "movie"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestSyncByYear(t *testing.T) {
	client := dial(t, newTestServer(&fakeEngine{}, nil))
	resp, err := client.SyncByYear(context.Background(), &syncpb.SyncByYearRequest{Kind: "movie", Year: 2001, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int32(2001), resp.GetResult().Year)
	assert.Equal(t, int32(2), resp.GetResult().Page)
	assert.Nil(t, resp.GetResult().Episodes)
}

func TestSyncByYearRejectsFutureYear(t *testing.T) {
	srv := newTestServer(&fakeEngine{}, nil)
	srv.Now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	client := dial(t, srv)

	_, err := client.SyncByYear(context.Background(), &syncpb.SyncByYearRequest{Kind: "movie", Year: 2026})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.SyncByYear(context.Background(), &syncpb.SyncByYearRequest{Kind: "movie", Year: 2025})
	assert.NoError(t, err)
}

func TestRefreshRejectsMissingPages(t *testing.T) {
	eng := catalogsync.NewEngine(nil, nil, nil)
	eng.Logger = log.New(io.Discard, "", 0)
	srv := NewServer(eng, nil)
	srv.Logger = log.New(io.Discard, "", 0)
	client := dial(t, srv)

	_, err := client.Refresh(context.Background(), &syncpb.RefreshRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Refresh(context.Background(), &syncpb.RefreshRequest{Pages: -2})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRefreshKeepsPartialCounts(t *testing.T) {
	eng := &fakeEngine{refreshErr: errors.New("discover tv page 1: provider unavailable")}
	client := dial(t, newTestServer(eng, nil))

	resp, err := client.Refresh(context.Background(), &syncpb.RefreshRequest{Pages: 2})
	require.NoError(t, err)
	assert.Equal(t, int32(2), resp.Pages)
	assert.Equal(t, int32(4), resp.Movies.Updated)
	assert.Equal(t, int32(1), resp.TvShows.Errors)
	assert.Contains(t, resp.Error, "provider unavailable")
}

func TestBulkImportStreamsProgress(t *testing.T) {
	var (
		mu       sync.Mutex
		observed []importer.Progress
	)
	srv := newTestServer(&fakeEngine{}, nil)
	srv.Observer = func(p importer.Progress) {
		mu.Lock()
		observed = append(observed, p)
		mu.Unlock()
	}
	client := dial(t, srv)

	stream, err := client.BulkImport(context.Background(), &syncpb.BulkImportRequest{Kind: "movie", StartYear: 2001, EndYear: 2003})
	require.NoError(t, err)

	var got []*syncpb.ImportProgress
	for {
		p, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, p)
	}

	// start, one per year, final
	require.Len(t, got, 5)
	assert.True(t, got[0].IsRunning)
	last := got[len(got)-1]
	assert.False(t, last.IsRunning)
	assert.Equal(t, int32(3), last.YearsDone)
	assert.Equal(t, int32(3), last.ProcessedCount)
	assert.NotZero(t, last.FinishedAtUnix)
	assert.NotEmpty(t, last.RunId)
	mu.Lock()
	assert.Len(t, observed, 5)
	mu.Unlock()
}

func TestBulkImportRejectsBeforeStreaming(t *testing.T) {
	client := dial(t, newTestServer(&fakeEngine{}, nil))
	ctx := context.Background()

	cases := []struct {
		req  *syncpb.BulkImportRequest
		code codes.Code
	}{
		{&syncpb.BulkImportRequest{Kind: "movie", StartYear: 1990, EndYear: 2000}, codes.FailedPrecondition},
		{&syncpb.BulkImportRequest{Kind: "movie", StartYear: 2005, EndYear: 2000}, codes.InvalidArgument},
		{&syncpb.BulkImportRequest{Kind: "podcast", StartYear: 2000, EndYear: 2000}, codes.InvalidArgument},
	}
	for _, tc := range cases {
		stream, err := client.BulkImport(ctx, tc.req)
		require.NoError(t, err)
		_, err = stream.Recv()
		assert.Equal(t, tc.code, status.Code(err), "%+v", tc.req)
	}
}

func TestBulkImportPreflightFailure(t *testing.T) {
	down := &tmdb.UnavailableError{Op: "ping", Err: errors.New("connection refused")}
	client := dial(t, newTestServer(&fakeEngine{}, pinger{err: down}))

	stream, err := client.BulkImport(context.Background(), &syncpb.BulkImportRequest{Kind: "tv", StartYear: 2010, EndYear: 2010})
	require.NoError(t, err)

	var last *syncpb.ImportProgress
	for {
		p, err := stream.Recv()
		if err != nil {
			assert.Equal(t, codes.Unavailable, status.Code(err))
			break
		}
		last = p
	}
	require.NotNil(t, last)
	assert.False(t, last.IsRunning)
	assert.Contains(t, last.LastError, "preflight")
	assert.Zero(t, last.YearsDone)
}

func TestAuthenticator(t *testing.T) {
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "grpc.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	repo := auth.NewRepo(db)
	_, err = auth.Bootstrap(context.Background(), repo, "admin", "admin@example.com", "correct-horse")
	require.NoError(t, err)
	op, err := repo.GetByUsername(context.Background(), "admin")
	require.NoError(t, err)

	tokens := auth.NewTokenService("grpc-secret", "primestream", time.Hour)
	token, _, err := tokens.Sign(op)
	require.NoError(t, err)

	a := Authenticator{Tokens: tokens, Repo: repo}
	client := dial(t, newTestServer(&fakeEngine{}, nil),
		grpc.UnaryInterceptor(a.Unary()), grpc.StreamInterceptor(a.Stream()))
	ctx := context.Background()

	_, err = client.SyncPopular(ctx, &syncpb.SyncPopularRequest{Kind: "movie"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = client.SyncPopular(ctx, &syncpb.SyncPopularRequest{Kind: "movie"}, BearerToken("garbage"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = client.SyncPopular(ctx, &syncpb.SyncPopularRequest{Kind: "movie"}, BearerToken(token))
	require.NoError(t, err)

	require.NoError(t, repo.BumpTokenVersion(ctx, op.ID))
	_, err = client.SyncPopular(ctx, &syncpb.SyncPopularRequest{Kind: "movie"}, BearerToken(token))
	assert.Equal(t, codes.Unauthenticated, status.Code(err), "logged-out token")
	assert.Equal(t, auth.ErrTokenRevoked.Error(), status.Convert(err).Message())

	stream, err := client.BulkImport(ctx, &syncpb.BulkImportRequest{Kind: "movie", StartYear: 2000, EndYear: 2000})
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
