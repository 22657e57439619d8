package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/siherrmann/docqa"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
)

const sampleContent = `This is a sample document about vector databases.

Vector databases store embeddings next to the text they were computed from.
A question is embedded with the same model and compared to every stored embedding.

PostgreSQL with the pgvector extension can store embeddings in a vector column.
Cosine similarity measures how close two embeddings point in the same direction.

Combining retrieval with a language model lets the model answer from the document
instead of from what it memorized during training.`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	// Local embeddings, answers from Anthropic if a key is available
	cfg := model.DefaultConfig()
	cfg.ChunkSize = 200
	cfg.ChunkOverlap = 50
	cfg.Embedder = model.ProviderConfig{Type: model.ProviderLocal}
	cfg.Primary = model.ProviderConfig{Type: model.ProviderNone}
	cfg.Secondary = model.ProviderConfig{Type: model.ProviderNone}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.Primary = model.ProviderConfig{Type: model.ProviderAnthropic, APIKey: key}
	}

	d, err := docqa.NewDocQA(&cfg, dbConfig)
	if err != nil {
		log.Fatalf("Failed to create docqa: %v", err)
	}
	defer d.Close()

	ctx := context.Background()

	session, err := d.Upload(ctx, "vector_databases.txt", "text/plain", []byte(sampleContent))
	if err != nil {
		log.Fatalf("Failed to upload document: %v", err)
	}
	fmt.Printf("Uploaded %s as session %s (%d chunks)\n\n", session.Filename, session.ID, session.ChunksCount)

	question := "How are embeddings compared?"
	fmt.Printf("Question: %s\n", question)

	results, _, err := d.Search(ctx, session.ID, question)
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}
	for i, result := range results {
		fmt.Printf("  %d. [%.3f] %s\n", i+1, result.Score, result.Text)
	}

	answer, err := d.Ask(ctx, session.ID, question)
	if err != nil {
		log.Fatalf("Failed to ask: %v", err)
	}
	fmt.Printf("\nAnswer: %s\n", answer.Text)
	if answer.Model != "" {
		fmt.Printf("Model: %s\n", answer.Model)
	}
}
