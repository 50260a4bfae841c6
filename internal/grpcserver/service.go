package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"shelfhub/pkg/models"
)

const (
	CatalogServiceName = "shelfhub.v1.Catalog"
	LibraryServiceName = "shelfhub.v1.Library"
)

type SearchRequest struct {
	Query string `json:"query"`
	Type  string `json:"type,omitempty"`
}

type SearchResponse struct {
	Books   []models.SearchResult `json:"books"`
	Version int                   `json:"version"`
}

type ListEntriesRequest struct {
	Status string `json:"status,omitempty"`
	Type   string `json:"type,omitempty"`
	Query  string `json:"query,omitempty"`
}

type ListEntriesResponse struct {
	Entries []models.LibraryEntry `json:"entries"`
}

type GetEntryRequest struct {
	ID string `json:"id"`
}

type GetEntryResponse struct {
	Entry *models.LibraryEntry `json:"entry"`
}

type DeleteEntryRequest struct {
	ID string `json:"id"`
}

type DeleteEntryResponse struct {
	Deleted bool `json:"deleted"`
}

type CatalogServer interface {
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
}

type LibraryServer interface {
	ListEntries(context.Context, *ListEntriesRequest) (*ListEntriesResponse, error)
	GetEntry(context.Context, *GetEntryRequest) (*GetEntryResponse, error)
	DeleteEntry(context.Context, *DeleteEntryRequest) (*DeleteEntryResponse, error)
}

// unary builds a grpc.MethodDesc handler for one request/response pair.
func unary[S, Req, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: CatalogServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(CatalogServiceName, "Search", CatalogServer.Search),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shelfhub/v1",
}

var LibraryServiceDesc = grpc.ServiceDesc{
	ServiceName: LibraryServiceName,
	HandlerType: (*LibraryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(LibraryServiceName, "ListEntries", LibraryServer.ListEntries),
		unary(LibraryServiceName, "GetEntry", LibraryServer.GetEntry),
		unary(LibraryServiceName, "DeleteEntry", LibraryServer.DeleteEntry),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shelfhub/v1",
}

func Register(s grpc.ServiceRegistrar, srv interface {
	CatalogServer
	LibraryServer
}) {
	s.RegisterService(&CatalogServiceDesc, srv)
	s.RegisterService(&LibraryServiceDesc, srv)
}

// Client calls both services over one connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	return invoke[SearchResponse](ctx, c.cc, "/"+CatalogServiceName+"/Search", in, opts)
}

func (c *Client) ListEntries(ctx context.Context, in *ListEntriesRequest, opts ...grpc.CallOption) (*ListEntriesResponse, error) {
	return invoke[ListEntriesResponse](ctx, c.cc, "/"+LibraryServiceName+"/ListEntries", in, opts)
}

func (c *Client) GetEntry(ctx context.Context, in *GetEntryRequest, opts ...grpc.CallOption) (*GetEntryResponse, error) {
	return invoke[GetEntryResponse](ctx, c.cc, "/"+LibraryServiceName+"/GetEntry", in, opts)
}

func (c *Client) DeleteEntry(ctx context.Context, in *DeleteEntryRequest, opts ...grpc.CallOption) (*DeleteEntryResponse, error) {
	return invoke[DeleteEntryResponse](ctx, c.cc, "/"+LibraryServiceName+"/DeleteEntry", in, opts)
}
