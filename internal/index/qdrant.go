package index

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// QdrantConfig holds connection parameters for a Qdrant-backed index.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantIndex implements Index backed by a Qdrant instance. The configured
// collection name is served through a Qdrant alias: each rebuild fills a
// fresh physical collection and repoints the alias in a single atomic
// update, mirroring the file swap of SQLiteIndex. Readers see the old
// corpus or the new one, never an empty or half-filled collection.
type QdrantIndex struct {
	client *qdrant.Client
	cfg    *QdrantConfig

	buildMu sync.Mutex
}

// NewQdrantIndex connects to Qdrant. The collection is not created here;
// Replace creates it with the dimensionality of the entries it receives.
func NewQdrantIndex(cfg *QdrantConfig) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("index: qdrant collection must not be empty")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("index: create qdrant client: %w", err)
	}

	return &QdrantIndex{client: client, cfg: cfg}, nil
}

// Replace implements Index. It fills a timestamped staging collection and
// then swaps the public alias onto it; the superseded collection is dropped
// only after the swap.
func (q *QdrantIndex) Replace(ctx context.Context, entries []Entry) error {
	if !q.buildMu.TryLock() {
		return ErrBuildInProgress
	}
	defer q.buildMu.Unlock()

	if len(entries) == 0 {
		return fmt.Errorf("index: refusing to build an empty index")
	}
	dims := len(entries[0].Vector)
	for _, e := range entries {
		if len(e.Vector) != dims {
			return fmt.Errorf("index: entry %s has %d dimensions, expected %d", e.ID, len(e.Vector), dims)
		}
	}

	staging := fmt.Sprintf("%s-%d", q.cfg.Collection, time.Now().UnixNano())
	err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: staging,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("index: create collection %q: %w", staging, err)
	}

	points := make([]*qdrant.PointStruct, 0, len(entries))
	for _, e := range entries {
		payload := map[string]interface{}{
			"content":   e.Content,
			"record_id": e.RecordID,
		}
		for k, v := range e.Metadata {
			payload[k] = v
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(e.ID),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	wait := true
	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: staging,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		_ = q.client.DeleteCollection(ctx, staging)
		return fmt.Errorf("index: upsert: %w", err)
	}

	previous, err := q.aliasTarget(ctx)
	if err != nil {
		_ = q.client.DeleteCollection(ctx, staging)
		return err
	}

	// A physical collection holding the public name blocks alias creation.
	// Only possible when the collection was built by a version that wrote
	// directly under that name; dropping it is a one-time migration.
	if previous == "" {
		exists, err := q.client.CollectionExists(ctx, q.cfg.Collection)
		if err != nil {
			_ = q.client.DeleteCollection(ctx, staging)
			return fmt.Errorf("index: check collection: %w", err)
		}
		if exists {
			if err := q.client.DeleteCollection(ctx, q.cfg.Collection); err != nil {
				_ = q.client.DeleteCollection(ctx, staging)
				return fmt.Errorf("index: drop pre-alias collection %q: %w", q.cfg.Collection, err)
			}
		}
	}

	// Qdrant applies all actions of one alias update atomically, so the
	// delete+create pair is the swap point.
	actions := make([]*qdrant.AliasOperations, 0, 2)
	if previous != "" {
		actions = append(actions, &qdrant.AliasOperations{
			Action: &qdrant.AliasOperations_DeleteAlias{
				DeleteAlias: &qdrant.DeleteAlias{AliasName: q.cfg.Collection},
			},
		})
	}
	actions = append(actions, &qdrant.AliasOperations{
		Action: &qdrant.AliasOperations_CreateAlias{
			CreateAlias: &qdrant.CreateAlias{
				CollectionName: staging,
				AliasName:      q.cfg.Collection,
			},
		},
	})
	if err := q.client.UpdateAliases(ctx, actions); err != nil {
		_ = q.client.DeleteCollection(ctx, staging)
		return fmt.Errorf("index: repoint alias %q: %w", q.cfg.Collection, err)
	}

	if previous != "" {
		if err := q.client.DeleteCollection(ctx, previous); err != nil {
			return fmt.Errorf("index: drop superseded collection %q: %w", previous, err)
		}
	}
	return nil
}

// aliasTarget returns the physical collection the public alias points at,
// or "" when the alias does not exist yet.
func (q *QdrantIndex) aliasTarget(ctx context.Context) (string, error) {
	aliases, err := q.client.ListAliases(ctx)
	if err != nil {
		return "", fmt.Errorf("index: list aliases: %w", err)
	}
	for _, a := range aliases {
		if a.GetAliasName() == q.cfg.Collection {
			return a.GetCollectionName(), nil
		}
	}
	return "", nil
}

// Search implements Index.
func (q *QdrantIndex) Search(ctx context.Context, queryVector []float32, topK int) ([]Hit, error) {
	if topK < 1 {
		return nil, fmt.Errorf("index: topK must be >= 1, got %d", topK)
	}
	limit := uint64(topK)
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.Collection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if isCollectionMissing(err) {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("index: search: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		h := Hit{
			ID:       r.Id.GetUuid(),
			Score:    r.Score,
			Metadata: make(map[string]string),
		}
		if p := r.Payload; p != nil {
			if v, ok := p["content"]; ok {
				h.Content = v.GetStringValue()
			}
			if v, ok := p["record_id"]; ok {
				h.RecordID = v.GetStringValue()
			}
			for k, v := range p {
				if k != "content" && k != "record_id" {
					h.Metadata[k] = v.GetStringValue()
				}
			}
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Count implements Index.
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	n, err := q.client.Count(ctx, &qdrant.CountPoints{CollectionName: q.cfg.Collection})
	if err != nil {
		if isCollectionMissing(err) {
			return 0, ErrIndexNotFound
		}
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return int(n), nil
}

// isCollectionMissing reports whether a Qdrant call failed because the
// collection behind the alias does not exist. CollectionExists does not
// resolve aliases, so the gRPC status code is the reliable signal.
func isCollectionMissing(err error) bool {
	return status.Code(err) == codes.NotFound
}

// Ping implements Index.
func (q *QdrantIndex) Ping(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant unreachable: %w", err)
	}
	return nil
}

// Close implements Index.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
