package grpcserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"shelfhub/internal/auth"
	"shelfhub/internal/catalog"
	"shelfhub/internal/library"
	"shelfhub/pkg/models"
)

type Server struct {
	Catalog *catalog.Aggregator
	Library *library.Service
}

func NewServer(agg *catalog.Aggregator, lib *library.Service) *Server {
	return &Server{Catalog: agg, Library: lib}
}

type claimsKey struct{}

func userFrom(ctx context.Context) (string, error) {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	if claims == nil {
		return "", status.Error(codes.Unauthenticated, "missing bearer token")
	}
	return claims.UserID, nil
}

func toStatus(err error, what string) error {
	switch {
	case errors.Is(err, library.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "unauthenticated")
	case errors.Is(err, library.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, library.ErrInvalidInput), errors.Is(err, catalog.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		log.Error().Err(err).Msg(what + " failed")
		return status.Error(codes.Internal, what+" failed")
	}
}

func (s *Server) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return nil, status.Error(codes.InvalidArgument, "query required")
	}
	typ, err := catalog.ParseType(req.Type)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	books, err := s.Catalog.Search(ctx, req.Query, typ)
	if err != nil {
		return nil, toStatus(err, "search")
	}
	return &SearchResponse{Books: books, Version: models.SearchResultVersion}, nil
}

func (s *Server) ListEntries(ctx context.Context, req *ListEntriesRequest) (*ListEntriesResponse, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	f := library.Filter{
		Status: models.EntryStatus(req.Status),
		Type:   models.ContentType(req.Type),
		Query:  req.Query,
	}
	entries, err := s.Library.List(ctx, userID, f)
	if err != nil {
		return nil, toStatus(err, "list entries")
	}
	return &ListEntriesResponse{Entries: entries}, nil
}

func (s *Server) GetEntry(ctx context.Context, req *GetEntryRequest) (*GetEntryResponse, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ID) == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}
	e, err := s.Library.Get(ctx, userID, strings.TrimSpace(req.ID))
	if err != nil {
		return nil, toStatus(err, "get entry")
	}
	return &GetEntryResponse{Entry: e}, nil
}

func (s *Server) DeleteEntry(ctx context.Context, req *DeleteEntryRequest) (*DeleteEntryResponse, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ID) == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}
	if err := s.Library.Delete(ctx, userID, strings.TrimSpace(req.ID)); err != nil {
		return nil, toStatus(err, "delete entry")
	}
	return &DeleteEntryResponse{Deleted: true}, nil
}

// AuthInterceptor resolves the "authorization" metadata for every Library
// call. Catalog calls pass through untouched.
func AuthInterceptor(tokens auth.TokenService, users *auth.Repo) grpc.UnaryServerInterceptor {
	prefix := "/" + LibraryServiceName + "/"
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, prefix) {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		claims, err := auth.Authenticate(ctx, tokens, users, values[0])
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(context.WithValue(ctx, claimsKey{}, claims), req)
	}
}

func LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		ev := log.Info()
		if code := status.Code(err); code == codes.Internal || code == codes.Unknown {
			ev = log.Error().Err(err)
		}
		ev.Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("latency_ms", time.Since(start)).
			Msg("grpc request")
		return resp, err
	}
}

// NewGRPCServer builds a grpc.Server with both services registered.
func NewGRPCServer(srv *Server, tokens auth.TokenService, users *auth.Repo, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(LoggingInterceptor(), AuthInterceptor(tokens, users)))
	gs := grpc.NewServer(opts...)
	Register(gs, srv)
	return gs
}
