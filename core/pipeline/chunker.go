package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/siherrmann/docqa/model"
)

// sentenceBoundary matches runs of sentence terminators.
var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// sentenceSeparator is appended after every sentence in a chunk.
const sentenceSeparator = ". "

// SplitSentences splits text on runs of '.', '!' and '?' and
// returns the trimmed, non-empty fragments in order.
func SplitSentences(text string) []string {
	parts := sentenceBoundary.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			sentences = append(sentences, part)
		}
	}
	return sentences
}

// SentenceChunker creates a chunker that packs whole sentences into chunks.
// A chunk is emitted as soon as adding the next sentence would make it reach
// chunkSize characters, a sentence longer than chunkSize becomes its own chunk.
// With a positive chunkOverlap every chunk after the first starts with the
// trailing sentences of its predecessor that fit into chunkOverlap characters.
func SentenceChunker(chunkSize int, chunkOverlap int) ChunkFunc {
	return func(text string) ([]model.Chunk, error) {
		if chunkSize <= 0 {
			return nil, fmt.Errorf("chunk size must be positive")
		}
		if chunkOverlap < 0 {
			return nil, fmt.Errorf("chunk overlap must not be negative")
		}
		if chunkOverlap >= chunkSize {
			return nil, fmt.Errorf("chunk overlap must be smaller than chunk size")
		}

		chunks := []model.Chunk{}
		var current []string
		currentLen := 0
		fresh := 0

		for _, sentence := range SplitSentences(text) {
			sentenceLen := utf8.RuneCountInString(sentence)

			if fresh > 0 && currentLen+sentenceLen >= chunkSize {
				chunks = append(chunks, joinSentences(current))

				current = carryOver(current, chunkOverlap, chunkSize-sentenceLen)
				currentLen = bufferLength(current)
				fresh = 0
			}

			current = append(current, sentence)
			currentLen += sentenceLen + len(sentenceSeparator)
			fresh++
		}

		if fresh > 0 {
			chunks = append(chunks, joinSentences(current))
		}

		return chunks, nil
	}
}

// carryOver returns the longest run of trailing sentences whose buffer length
// stays within overlap and below limit.
func carryOver(sentences []string, overlap int, limit int) []string {
	if overlap <= 0 {
		return nil
	}

	total := 0
	start := len(sentences)
	for i := len(sentences) - 1; i >= 0; i-- {
		length := utf8.RuneCountInString(sentences[i]) + len(sentenceSeparator)
		if total+length > overlap || total+length >= limit {
			break
		}
		total += length
		start = i
	}

	carried := make([]string, len(sentences)-start)
	copy(carried, sentences[start:])
	return carried
}

func bufferLength(sentences []string) int {
	length := 0
	for _, s := range sentences {
		length += utf8.RuneCountInString(s) + len(sentenceSeparator)
	}
	return length
}

func joinSentences(sentences []string) model.Chunk {
	text := strings.Join(sentences, sentenceSeparator) + sentenceSeparator
	return model.Chunk{Text: strings.TrimSpace(text)}
}
