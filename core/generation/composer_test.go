package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/siherrmann/docqa/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a generator returning fixed output and remembering its calls.
type recorder struct {
	reply     string
	err       error
	prompts   []string
	maxTokens int
}

func (r *recorder) generator(name string) *Generator {
	return &Generator{
		Name: name,
		Generate: func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			r.prompts = append(r.prompts, prompt)
			r.maxTokens = maxTokens
			return r.reply, r.err
		},
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Run("Joins chunks with a blank line before the question", func(t *testing.T) {
		prompt := BuildPrompt([]string{"First chunk.", "Second chunk."}, "  What is first?  ")

		assert.Equal(t, "Based on the following passages from the document:\n\nFirst chunk.\n\nSecond chunk.\n\nQuestion: What is first?\n\nAnswer:", prompt)
	})

	t.Run("Keeps the ranked order", func(t *testing.T) {
		prompt := BuildPrompt([]string{"b", "a"}, "q")

		assert.Contains(t, prompt, "\n\nb\n\na\n\n")
	})

	t.Run("Deterministic", func(t *testing.T) {
		chunks := []string{"x", "y"}
		assert.Equal(t, BuildPrompt(chunks, "q"), BuildPrompt(chunks, "q"))
	})
}

func TestCleanAnswer(t *testing.T) {
	assert.Equal(t, "Paris", cleanAnswer("  Paris \n"))
	assert.Equal(t, "Paris", cleanAnswer(`"Paris"`))
	assert.Equal(t, `He said "yes"`, cleanAnswer(`He said "yes"`))
	assert.Equal(t, `"`, cleanAnswer(`"`))
	assert.Equal(t, "", cleanAnswer(`""`))
}

func TestComposer(t *testing.T) {
	ctx := context.Background()

	t.Run("Primary answer is used", func(t *testing.T) {
		primary := &recorder{reply: " \"AWS is a cloud platform.\" "}
		secondary := &recorder{reply: "unused"}
		composer := NewComposer(primary.generator("titan"), secondary.generator("claude"), 0)

		generation, err := composer.Generate(ctx, "prompt")

		require.NoError(t, err)
		assert.Equal(t, "AWS is a cloud platform.", generation.Text)
		assert.Equal(t, "titan", generation.Model)
		assert.Equal(t, DefaultMaxTokens, primary.maxTokens)
		assert.Empty(t, secondary.prompts, "Secondary must not be called")
	})

	t.Run("Secondary is used when the primary fails", func(t *testing.T) {
		primary := &recorder{err: errors.New("throttled")}
		secondary := &recorder{reply: "from secondary"}
		composer := NewComposer(primary.generator("titan"), secondary.generator("claude"), 200)

		generation, err := composer.Generate(ctx, "prompt")

		require.NoError(t, err)
		assert.Equal(t, "from secondary", generation.Text)
		assert.Equal(t, "claude", generation.Model)
		assert.Equal(t, []string{"prompt"}, secondary.prompts)
		assert.Equal(t, 200, secondary.maxTokens)
	})

	t.Run("Secondary is used when the primary answer is blank", func(t *testing.T) {
		primary := &recorder{reply: "   "}
		secondary := &recorder{reply: "from secondary"}
		composer := NewComposer(primary.generator("titan"), secondary.generator("claude"), 0)

		generation, err := composer.Generate(ctx, "prompt")

		require.NoError(t, err)
		assert.Equal(t, "claude", generation.Model)
	})

	t.Run("Both failing is a generation failure", func(t *testing.T) {
		primary := &recorder{err: errors.New("primary down")}
		secondary := &recorder{reply: ""}
		composer := NewComposer(primary.generator("titan"), secondary.generator("claude"), 0)

		generation, err := composer.Generate(ctx, "prompt")

		require.Error(t, err)
		assert.Nil(t, generation)
		assert.ErrorIs(t, err, model.ErrGenerationFailure)
		assert.Contains(t, err.Error(), "primary down")
	})

	t.Run("Missing generators are a generation failure", func(t *testing.T) {
		_, err := NewComposer(nil, nil, 0).Generate(ctx, "prompt")

		assert.ErrorIs(t, err, model.ErrGenerationFailure)
	})

	t.Run("Only a secondary generator is enough", func(t *testing.T) {
		secondary := &recorder{reply: "ok"}
		generation, err := NewComposer(nil, secondary.generator("claude"), 0).Generate(ctx, "prompt")

		require.NoError(t, err)
		assert.Equal(t, "ok", generation.Text)
	})

	t.Run("Answer sends the grounding prompt", func(t *testing.T) {
		primary := &recorder{reply: "two"}
		composer := NewComposer(primary.generator("titan"), nil, 0)

		_, err := composer.Answer(ctx, []string{"Bedrock is a Bedrock feature."}, "What is Bedrock?")

		require.NoError(t, err)
		require.Len(t, primary.prompts, 1)
		assert.Equal(t, BuildPrompt([]string{"Bedrock is a Bedrock feature."}, "What is Bedrock?"), primary.prompts[0])
	})
}
