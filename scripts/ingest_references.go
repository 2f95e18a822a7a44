package main

import (
	"context"
	"fmt"
	"log"

	"scriptgrade/answer-evaluator/internal/config"
	"scriptgrade/answer-evaluator/internal/services"
)

// Pushes the JSON reference corpus into the Qdrant collection so the API
// can run with REFERENCE_SOURCE=qdrant. Oversized answers are chunked to
// stay within the embedding request budget.
func main() {
	log.Println("🚀 Starting reference corpus ingestion...")

	cfg := config.Load()

	geminiService, err := services.NewGeminiService(cfg.Gemini.APIKey, cfg.Gemini.Timeout)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini: %v", err)
	}
	embedder := services.NewEmbedder(geminiService)

	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
	}

	if err := qdrantService.InitCollection(); err != nil {
		log.Fatalf("❌ Failed to initialize collection: %v", err)
	}

	loader := services.NewFileReferenceLoader(cfg.Reference.Path)
	chunker := services.NewTextChunker()

	ctx := context.Background()

	records, err := loader.Load(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to load reference corpus: %v", err)
	}
	if len(records) == 0 {
		log.Fatalf("❌ No reference records found at %s", cfg.Reference.Path)
	}

	ingested := 0
	for _, record := range records {
		chunks := chunker.ChunkText(record.AnswerText, 4000, 200)
		if len(chunks) == 0 {
			chunks = []string{record.AnswerText}
		}

		for i, chunk := range chunks {
			part := record
			part.AnswerText = chunk
			if len(chunks) > 1 {
				part.ID = fmt.Sprintf("%s-%d", record.ID, i+1)
			}

			content := part.Question + "\n" + part.AnswerText
			embedding, err := embedder.Embed(ctx, content)
			if err != nil {
				log.Printf("⚠️  Failed to embed record %s: %v\n", part.ID, err)
				continue
			}

			if err := qdrantService.UpsertReference(ctx, part, embedding); err != nil {
				log.Printf("⚠️  Failed to upsert record %s: %v\n", part.ID, err)
				continue
			}
			ingested++
		}
	}

	log.Printf("✅ Ingestion complete: %d points upserted from %d records\n", ingested, len(records))
}
