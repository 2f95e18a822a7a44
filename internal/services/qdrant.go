package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"scriptgrade/answer-evaluator/internal/models"
)

// QdrantService mirrors the reference corpus into a Qdrant collection. The
// ingest script writes it; the qdrant reference loader scrolls it back out
// at index build time.
type QdrantService interface {
	InitCollection() error
	UpsertReference(ctx context.Context, record models.RawReferenceRecord, embedding []float32) error
	ScrollAll(ctx context.Context) ([]models.RawReferenceRecord, error)
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
}

func NewQdrantService(urlStr, apiKey, collectionName string) (QdrantService, error) {
	// Parse URL to extract host, port, and TLS usage
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// For gRPC client, use port 6334 by default (gRPC port)
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     768, // text-embedding-004 size
	}, nil
}

// InitCollection implements QdrantService.
func (q *qdrantService) InitCollection() error {
	ctx := context.Background()

	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		log.Println("✅ Collection already exists")
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})

	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("✅ Qdrant collection '%s' created successfully\n", q.collectionName)
	return nil
}

// UpsertReference implements QdrantService.
func (q *qdrantService) UpsertReference(ctx context.Context, record models.RawReferenceRecord, embedding []float32) error {
	pointID := uuid.New()

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDNum(uint64(pointID.ID())),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]interface{}{
			"ref_id":      record.ID,
			"subject":     record.Subject,
			"domain":      record.Domain,
			"question":    record.Question,
			"answer_text": record.AnswerText,
			"type":        record.Type,
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

// ScrollAll implements QdrantService. Reference corpora are small, so a
// single scroll page is enough.
func (q *qdrantService) ScrollAll(ctx context.Context) ([]models.RawReferenceRecord, error) {
	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: q.collectionName,
		Limit:          qdrant.PtrOf(uint32(1024)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll collection: %w", err)
	}

	var records []models.RawReferenceRecord
	for _, point := range points {
		payload := point.Payload

		records = append(records, models.RawReferenceRecord{
			ID:         payloadString(payload, "ref_id"),
			Subject:    payloadString(payload, "subject"),
			Domain:     payloadString(payload, "domain"),
			Question:   payloadString(payload, "question"),
			AnswerText: payloadString(payload, "answer_text"),
			Type:       payloadString(payload, "type"),
		})
	}

	return records, nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	value, ok := payload[key]
	if !ok {
		return ""
	}
	if str, ok := value.GetKind().(*qdrant.Value_StringValue); ok {
		return str.StringValue
	}
	return ""
}
