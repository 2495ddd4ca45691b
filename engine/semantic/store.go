// Package semantic keeps the catalog's embeddings in a Qdrant collection and
// answers approximate nearest-neighbour queries against it.
package semantic

import (
	"context"
	"fmt"
	"log/slog"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/WessleyAI/marquee/engine/catalog"
	"github.com/WessleyAI/marquee/engine/recommend"
	"github.com/WessleyAI/marquee/pkg/fn"
)

// DefaultBatch is the number of points sent per upsert during a sync.
const DefaultBatch = 256

type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
	log         *slog.Logger
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	vs := NewWithClients(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), collection)
	vs.conn = conn
	return vs, nil
}

// NewWithClients creates a VectorStore over existing gRPC clients.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string) *VectorStore {
	return &VectorStore{points: points, collections: collections, collection: collection, log: slog.Default()}
}

// Close closes the underlying gRPC connection, if the store owns one.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	v.log.Info("created qdrant collection", "collection", v.collection, "dims", dims)
	return nil
}

// DeleteCollection deletes the collection.
func (v *VectorStore) DeleteCollection(ctx context.Context) error {
	_, err := v.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: v.collection,
	})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", v.collection, err)
	}
	return nil
}

// Upsert stores points, waiting for Qdrant to apply them.
func (v *VectorStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := fn.Map(points, func(p Point) *pb.PointStruct {
		return &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: p.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Vector},
				},
			},
			Payload: map[string]*pb.Value{
				payloadTitle: {Kind: &pb.Value_StringValue{StringValue: p.Title}},
				payloadIndex: {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.Index)}},
			},
		}
	})

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(points), err)
	}
	return nil
}

// SyncCatalog upserts one point per catalog record in batches of batch
// (DefaultBatch when <= 0) and returns the number of points written.
func (v *VectorStore) SyncCatalog(ctx context.Context, cat *catalog.Catalog, batch int) (int, error) {
	if batch <= 0 {
		batch = DefaultBatch
	}
	if err := v.EnsureCollection(ctx, cat.Dim()); err != nil {
		return 0, err
	}

	idx := make([]int, cat.Len())
	for i := range idx {
		idx[i] = i
	}
	written := 0
	for _, chunk := range fn.Chunk(idx, batch) {
		points := fn.Map(chunk, func(i int) Point {
			title := cat.Title(i)
			return Point{ID: PointID(i, title), Index: i, Title: title, Vector: cat.Embedding(i)}
		})
		if err := v.Upsert(ctx, points); err != nil {
			return written, err
		}
		written += len(points)
		v.log.Debug("synced batch", "collection", v.collection, "written", written, "total", cat.Len())
	}
	return written, nil
}

// Nearest implements recommend.Index.
func (v *VectorStore) Nearest(ctx context.Context, vec []float32, k int) ([]recommend.Hit, error) {
	return v.NearestExcluding(ctx, vec, k, -1)
}

// NearestExcluding is Nearest leaving out the point for catalog index
// exclude (-1 for none).
func (v *VectorStore) NearestExcluding(ctx context.Context, vec []float32, k, exclude int) ([]recommend.Hit, error) {
	if k <= 0 {
		return []recommend.Hit{}, nil
	}
	limit := uint64(k)
	if exclude >= 0 {
		limit++
	}
	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         vec,
		Limit:          limit,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	hits := make([]recommend.Hit, 0, k)
	for _, r := range resp.GetResult() {
		p := r.GetPayload()
		h := recommend.Hit{
			Index: int(p[payloadIndex].GetIntegerValue()),
			Title: p[payloadTitle].GetStringValue(),
			Score: float64(r.GetScore()),
		}
		if h.Index == exclude || len(hits) == k {
			continue
		}
		hits = append(hits, h)
	}
	return hits, nil
}
