package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardgen/internal/llm"
	"cardgen/pkg/schema"
)

func scoringInput() ValidateInput {
	return ValidateInput{
		Characteristics: []schema.Characteristic{
			{Name: "Покрой", Value: []string{"прямой"}},
			{Name: "Назначение", Value: []string{"офисный"}},
		},
		Fields: []schema.AttributeSchema{
			{ID: 1, Name: "Покрой", Required: true},
			{ID: 2, Name: "Назначение"},
		},
		Allowed: map[string][]string{
			"Покрой":     {"прямой", "приталенный"},
			"Назначение": {"офисный", "повседневный"},
		},
		Limits: map[string]schema.Limit{
			"Покрой":     {Max: 1},
			"Назначение": {Max: 3},
		},
	}
}

func TestScoreCharacteristicsClean(t *testing.T) {
	result := ScoreCharacteristics(scoringInput())
	assert.Equal(t, schema.ScoreMax, result.Score)
	assert.Empty(t, result.Issues)
}

func TestScoreCharacteristicsRequiredEmpty(t *testing.T) {
	in := scoringInput()
	in.Characteristics[0].Value = nil

	result := ScoreCharacteristics(in)
	assert.Equal(t, schema.ScoreMax-schema.PenaltyRequiredEmpty, result.Score)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], schema.IssueRequiredEmpty)
}

func TestScoreCharacteristicsOutOfDictionaryCapped(t *testing.T) {
	in := scoringInput()
	in.Characteristics[0].Value = []string{"облегающий"}
	in.Characteristics[1].Value = []string{"деловой стиль"}

	result := ScoreCharacteristics(in)

	// Two dictionary violations would cost 40 uncapped; the cap keeps a
	// single bad batch from zeroing the score.
	assert.Equal(t, schema.ScoreMax-schema.OutOfDictionaryCap, result.Score)
	assert.Len(t, result.Issues, 2)
}

func TestScoreCharacteristicsOverLimit(t *testing.T) {
	in := scoringInput()
	in.Characteristics[0].Value = []string{"прямой", "приталенный"}

	result := ScoreCharacteristics(in)
	assert.Equal(t, schema.ScoreMax-schema.PenaltyCardinality, result.Score)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], schema.IssueOverLimit)
}

func TestScoreCharacteristicsLockedField(t *testing.T) {
	in := scoringInput()
	in.Locked = map[string]bool{"Назначение": true}

	result := ScoreCharacteristics(in)
	assert.Equal(t, schema.ScoreMax-schema.PenaltyLockedField, result.Score)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], schema.IssueLockedField)
}

func TestValidateDeterministicOnly(t *testing.T) {
	v := NewValidator(nil, nil)

	in := scoringInput()
	in.Characteristics[0].Value = []string{"приталенный (жакет)"}

	result := v.Validate(context.Background(), in)

	// The enforcer normalizes the parenthetical variant before scoring,
	// so the batch comes out clean.
	assert.Equal(t, schema.ScoreMax, result.Score)
	require.NotEmpty(t, result.Characteristics)
	assert.Equal(t, []string{"приталенный"}, result.Characteristics[0].Value)
}

func TestValidateModelReviewFailureScoresZero(t *testing.T) {
	mock := llm.NewMock().EnqueueError(errors.New("api down"))
	v := NewValidator(mock, nil)

	result := v.Validate(context.Background(), scoringInput())

	assert.Equal(t, 0, result.Score)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "model review failed")
	assert.NotEmpty(t, result.Characteristics, "enforced characteristics survive the failed review")
}

func TestValidateModelReviewCannotInflateScore(t *testing.T) {
	mock := llm.NewMock().EnqueueJSON(map[string]any{"score": 100, "issues": []string{}})
	v := NewValidator(mock, nil)

	in := scoringInput()
	in.Characteristics[0].Value = nil // required empty, deterministic 75

	result := v.Validate(context.Background(), in)
	assert.Equal(t, schema.ScoreMax-schema.PenaltyRequiredEmpty, result.Score)
}

func TestValidateModelCorrectionsReEnforced(t *testing.T) {
	mock := llm.NewMock().EnqueueJSON(map[string]any{
		"score":  95,
		"issues": []string{},
		"characteristics": []map[string]any{
			{"id": 1, "name": "Покрой", "value": []string{"облегающий"}},
			{"id": 2, "name": "Назначение", "value": []string{"офисный"}},
		},
	})
	v := NewValidator(mock, nil)

	result := v.Validate(context.Background(), scoringInput())

	cut := schema.FindCharacteristic(result.Characteristics, "Покрой")
	require.NotNil(t, cut)
	assert.Empty(t, cut.Value, "out-of-dictionary correction must not survive re-enforcement")
	assert.Less(t, result.Score, 95)
}

func TestValidateSendsLockedFieldNames(t *testing.T) {
	mock := llm.NewMock().EnqueueJSON(map[string]any{"score": 100})
	v := NewValidator(mock, nil)

	in := scoringInput()
	in.Locked = map[string]bool{"Состав": true}
	v.Validate(context.Background(), in)

	req := mock.LastRequest()
	require.NotNil(t, req)
	payload, ok := req.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"Состав"}, payload["locked_fields"])
}
