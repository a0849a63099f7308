// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud

import (
	"context"
	"crypto/tls"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// qdrantContentKey holds the chunk text in the point payload. The remaining
// payload keys are the chunk metadata.
const qdrantContentKey = "content"

// QdrantStore keeps chunks as points in a single collection.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	apiKey      string
}

// NewQdrantStore dials addr and creates the collection when it is missing.
func NewQdrantStore(ctx context.Context, addr string, apiKey string, cfg VectorStoreConfig, dimensions int32) (*QdrantStore, error) {
	if addr == "" {
		return nil, apperr.Missing(EnvQdrantAddr, "qdrant document store")
	}
	transport := insecure.NewCredentials()
	if cfg.QdrantUseTLS {
		transport = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(transport))
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailure, err, fmt.Sprintf("qdrant: dial %s", addr))
	}
	store := &QdrantStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  cfg.QdrantCollection,
		apiKey:      apiKey,
	}
	if err := store.ensureCollection(ctx, dimensions); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return store, nil
}

func (s *QdrantStore) withKey(ctx context.Context) context.Context {
	if s.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", s.apiKey)
}

func (s *QdrantStore) ensureCollection(ctx context.Context, dimensions int32) error {
	list, err := s.collections.List(s.withKey(ctx), &pb.ListCollectionsRequest{})
	if err != nil {
		return classifyGRPCError(err, "list collections")
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}
	_, err = s.collections.Create(s.withKey(ctx), &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dimensions),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return classifyGRPCError(err, "create collection "+s.collection)
	}
	return nil
}

func (s *QdrantStore) Name() string {
	return BackendQdrant
}

func (s *QdrantStore) Insert(ctx context.Context, chunk *model.DocumentChunk) error {
	payload := make(map[string]*pb.Value, len(chunk.Metadata)+1)
	payload[qdrantContentKey] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: chunk.Content}}
	for k, val := range chunk.Metadata {
		payload[k] = toQdrantValue(val)
	}
	wait := true
	_, err := s.points.Upsert(s.withKey(ctx), &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: chunk.Id}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: chunk.Embedding}},
			},
			Payload: payload,
		}},
	})
	if err != nil {
		return classifyGRPCError(err, "upsert")
	}
	return nil
}

func (s *QdrantStore) Match(ctx context.Context, embedding []float32, threshold float64, count int) ([]model.Match, error) {
	scoreThreshold := float32(threshold)
	resp, err := s.points.Search(s.withKey(ctx), &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(count),
		ScoreThreshold: &scoreThreshold,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, classifyGRPCError(err, "search")
	}
	matches := make([]model.Match, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		m := model.Match{Similarity: float64(point.GetScore()), Metadata: make(map[string]any)}
		for k, val := range point.GetPayload() {
			if k == qdrantContentKey {
				m.Content = val.GetStringValue()
				continue
			}
			m.Metadata[k] = fromQdrantValue(val)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *QdrantStore) Close() error {
	return s.conn.Close()
}

func toQdrantValue(val any) *pb.Value {
	switch tv := val.(type) {
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
	default:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
	}
}

func fromQdrantValue(val *pb.Value) any {
	switch kind := val.GetKind().(type) {
	case *pb.Value_IntegerValue:
		return kind.IntegerValue
	case *pb.Value_DoubleValue:
		return kind.DoubleValue
	case *pb.Value_BoolValue:
		return kind.BoolValue
	default:
		return val.GetStringValue()
	}
}

func classifyGRPCError(err error, op string) error {
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return apperr.Wrap(apperr.StoreAuthError, err, "the document store rejected the credentials")
	}
	return apperr.Wrap(apperr.PersistenceFailure, err, "qdrant: "+op+" failed")
}
