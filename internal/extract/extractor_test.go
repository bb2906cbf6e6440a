package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmallari/pactum/internal/llm"
	"github.com/jmallari/pactum/internal/llm/providers"
)

type mockProvider struct {
	answer string
	err    error
}

func (m *mockProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return m.answer, m.err
}

func (m *mockProvider) ChatStream(ctx context.Context, messages []llm.Message, onToken llm.TokenFunc) (string, error) {
	return m.answer, m.err
}

func (m *mockProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	return make([][]float32, len(input)), nil
}

func (m *mockProvider) Name() string { return "mock" }

func TestExtractUsesModelJSON(t *testing.T) {
	provider := &mockProvider{answer: `Sure, here is the result:
{
  "parties": [{"name": "Acme Corporation", "role": "Vendor"}],
  "effective_date": "January 15, 2024",
  "term": "2 years",
  "governing_law": "Delaware",
  "payment_terms": "Net 30 days",
  "termination": "Either party with 60 days notice",
  "auto_renewal": null,
  "confidentiality": "Mutual NDA for 5 years",
  "indemnity": null,
  "liability_cap": {"amount": 1000000, "currency": "USD"},
  "signatories": [{"name": "Jane Smith", "title": "CEO"}]
}
Hope this helps!`}

	fields, method, err := New(provider).Extract(context.Background(), "irrelevant")
	require.NoError(t, err)
	assert.Equal(t, MethodLLM, method)
	require.Len(t, fields.Parties, 1)
	assert.Equal(t, "Acme Corporation", fields.Parties[0].Name)
	assert.Equal(t, "January 15, 2024", fields.EffectiveDate)
	assert.Equal(t, "Delaware", fields.GoverningLaw)
	require.NotNil(t, fields.LiabilityCap)
	assert.Equal(t, 1000000.0, fields.LiabilityCap.Amount)
	assert.Equal(t, "USD", fields.LiabilityCap.Currency)
	require.Len(t, fields.Signatories, 1)
	assert.Equal(t, "CEO", fields.Signatories[0].Title)
}

func TestExtractUnlimitedLiabilityCap(t *testing.T) {
	provider := &mockProvider{answer: `{"parties": [{"name": "Acme"}], "liability_cap": {"amount": "unlimited", "currency": null}}`}
	fields, method, err := New(provider).Extract(context.Background(), "irrelevant")
	require.NoError(t, err)
	assert.Equal(t, MethodLLM, method)
	require.NotNil(t, fields.LiabilityCap)
	assert.True(t, fields.LiabilityCap.Unlimited)
}

func TestExtractFallsBackToRegexOnProviderError(t *testing.T) {
	provider := &mockProvider{err: errors.New("model unavailable")}
	text := "This agreement is between Acme Corporation and Beta Holdings LLC. " +
		"It is effective as of January 15, 2024 and governed by the laws of the State of Delaware."
	fields, method, err := New(provider).Extract(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, MethodRegex, method)
	assert.NotEmpty(t, fields.Parties)
	assert.Equal(t, "January 15, 2024", fields.EffectiveDate)
}

func TestExtractFallsBackToRegexOnProseAnswer(t *testing.T) {
	provider := &mockProvider{answer: "I cannot produce JSON for this document."}
	text := "This agreement is between Acme Corporation and Beta Holdings LLC, effective as of January 15, 2024."
	fields, method, err := New(provider).Extract(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, MethodRegex, method)
	assert.NotEmpty(t, fields.Parties)
}

func TestExtractWithOfflineProviderFallsBackToRegex(t *testing.T) {
	// The offline provider must not hand back anything the lenient JSON
	// recovery could mistake for a model result, such as the prompt's own
	// JSON template.
	text := "This agreement is between Acme Corporation and Beta Holdings LLC. " +
		"It is effective as of January 15, 2024 and governed by the laws of the State of Delaware."
	fields, method, err := New(providers.NewLocalProvider()).Extract(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, MethodRegex, method)
	assert.Equal(t, "January 15, 2024", fields.EffectiveDate)
	assert.NotEmpty(t, fields.Parties)
	assert.NotEqual(t, "date string or null", fields.EffectiveDate)
}

func TestParseModelFieldsRejectsGarbage(t *testing.T) {
	_, err := parseModelFields("no braces here")
	require.Error(t, err)
	_, err = parseModelFields("{not json}")
	require.Error(t, err)
}
