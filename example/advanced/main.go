package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/siherrmann/docqa"
	"github.com/siherrmann/docqa/config"
	"github.com/siherrmann/docqa/model"
)

const sampleContent1 = `Amazon Bedrock is a managed service for foundation models.
It offers models from several providers through a single API.
Titan embeddings turn text into vectors of 1536 dimensions.
Claude models on Bedrock are invoked with a prompt and a token limit.`

const sampleContent2 = `Keyword retrieval counts how often the words of a question occur in a passage.
It needs no embedding model and works offline.
Passages without any matching word are never returned.
Vector retrieval is preferred whenever the document was embedded.`

func main() {
	// Configuration from docqa.yaml, .env and the environment
	cfg, err := config.Load("docqa.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Store everything below a temporary directory
	tmpDir, err := os.MkdirTemp("", "docqa-advanced-*")
	if err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tmpDir)
	cfg.StorageURL = "file://" + tmpDir

	// Without credentials everything runs offline on keyword retrieval
	if os.Getenv("AWS_REGION") == "" {
		cfg.Embedder = model.ProviderConfig{Type: model.ProviderNone}
		cfg.Primary = model.ProviderConfig{Type: model.ProviderNone}
		cfg.Secondary = model.ProviderConfig{Type: model.ProviderNone}
	}
	cfg.ChunkSize = 120
	cfg.ChunkOverlap = 0

	d, err := docqa.NewDocQA(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create docqa: %v", err)
	}
	defer d.Close()

	ctx := context.Background()

	// 1. Upload two documents, each gets its own session
	fmt.Println("=== 1. Uploading Documents ===")
	bedrockSession, err := d.Upload(ctx, "bedrock.txt", "", []byte(sampleContent1))
	if err != nil {
		log.Fatalf("Failed to upload document 1: %v", err)
	}
	fmt.Printf("Document 1 '%s' (session: %s): %d chunks\n", bedrockSession.Filename, bedrockSession.ID, bedrockSession.ChunksCount)

	path := filepath.Join(tmpDir, "retrieval.txt")
	if err := os.WriteFile(path, []byte(sampleContent2), 0o600); err != nil {
		log.Fatalf("Failed to write document 2: %v", err)
	}
	retrievalSession, err := d.UploadFile(ctx, path)
	if err != nil {
		log.Fatalf("Failed to upload document 2: %v", err)
	}
	fmt.Printf("Document 2 '%s' (session: %s): %d chunks\n", retrievalSession.Filename, retrievalSession.ID, retrievalSession.ChunksCount)

	// 2. Questions are scoped to the session's document
	fmt.Println("\n=== 2. Session-Scoped Search ===")
	question := "Which models does Bedrock offer?"
	for _, session := range []*model.Session{bedrockSession, retrievalSession} {
		results, _, err := d.Search(ctx, session.ID, question)
		if err != nil {
			log.Fatalf("Search failed: %v", err)
		}
		printResults(session.Filename, results)
	}

	// 3. Answers with sources
	fmt.Println("\n=== 3. Answering ===")
	answer, err := d.Ask(ctx, retrievalSession.ID, "When is vector retrieval preferred?")
	if err != nil {
		log.Fatalf("Ask failed: %v", err)
	}
	printAnswer(answer)

	// 4. Nothing in the document matches
	fmt.Println("\n=== 4. Question Without Grounding ===")
	answer, err = d.Ask(ctx, bedrockSession.ID, "zebra")
	if err != nil {
		log.Fatalf("Ask failed: %v", err)
	}
	printAnswer(answer)

	// 5. General question without a document
	fmt.Println("\n=== 5. General Question ===")
	answer, err = d.Ask(ctx, uuid.Nil, "What is retrieval augmented generation?")
	if err != nil {
		log.Fatalf("Ask failed: %v", err)
	}
	printAnswer(answer)

	// 6. Unknown sessions are errors
	fmt.Println("\n=== 6. Unknown Session ===")
	_, err = d.Ask(ctx, uuid.New(), question)
	fmt.Printf("Error: %v\n", err)

	// 7. Cleanup of expired sessions
	fmt.Println("\n=== 7. Session Cleanup ===")
	deleted, err := d.Cleanup(ctx)
	if err != nil {
		log.Fatalf("Cleanup failed: %v", err)
	}
	fmt.Printf("Deleted %d expired sessions\n", deleted)

	// 8. Ending a session removes its index
	fmt.Println("\n=== 8. Ending a Session ===")
	if err := d.DeleteSession(ctx, bedrockSession.ID); err != nil {
		log.Fatalf("Delete session failed: %v", err)
	}
	_, err = d.Ask(ctx, bedrockSession.ID, question)
	fmt.Printf("Error after delete: %v\n", err)
}

func printResults(title string, results []*model.RetrievalResult) {
	fmt.Printf("\n%s - Found %d results:\n", title, len(results))
	for i, result := range results {
		fmt.Printf("  %d. [%.3f] %s\n", i+1, result.Score, result.Text)
	}
}

func printAnswer(answer *model.Answer) {
	fmt.Printf("Answer: %s\n", answer.Text)
	if answer.Model != "" {
		fmt.Printf("Model: %s\n", answer.Model)
	}
	if answer.Failed {
		fmt.Println("(no provider could answer)")
	}
	for _, source := range answer.Sources {
		fmt.Printf("  - chunk %d: %s\n", source.ChunkIndex, source.Text)
	}
}
