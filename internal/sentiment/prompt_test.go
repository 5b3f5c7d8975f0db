package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRecords_ReportedIndexOrder(t *testing.T) {
	resp := &batchResponse{Items: []itemResponse{
		{Index: 1, Category: CategoryNegative, Score: 0.9, Confidence: 0.8},
		{Index: 0, Category: CategoryPositive, Score: 0.7, Confidence: 0.9},
	}}

	records := resp.toRecords(2)
	require.Len(t, records, 2)
	assert.Equal(t, CategoryPositive, records[0].Category)
	assert.Equal(t, CategoryNegative, records[1].Category)
}

func TestToRecords_DuplicateIndexFillsOpenSlot(t *testing.T) {
	resp := &batchResponse{Items: []itemResponse{
		{Index: 1, Category: CategoryNegative, Score: 0.9, Confidence: 0.8},
		{Index: 1, Category: CategoryPositive, Score: 0.7, Confidence: 0.9},
	}}

	records := resp.toRecords(2)
	require.Len(t, records, 2)
	assert.Equal(t, CategoryNegative, records[1].Category)
	assert.Equal(t, CategoryPositive, records[0].Category,
		"duplicate index must land in the open slot, not overwrite")
	for i, r := range records {
		assert.NotEmpty(t, r.Category, "slot %d left as a zero record", i)
	}
}

func TestToRecords_OutOfRangeIndexFillsOpenSlot(t *testing.T) {
	resp := &batchResponse{Items: []itemResponse{
		{Index: 7, Category: CategoryNeutral, Score: 0.5, Confidence: 0.5},
		{Index: -2, Category: CategoryMixed, Score: 0.4, Confidence: 0.6},
	}}

	records := resp.toRecords(2)
	assert.Equal(t, CategoryNeutral, records[0].Category)
	assert.Equal(t, CategoryMixed, records[1].Category)
}

func TestToRecords_ClampsScoreAndConfidence(t *testing.T) {
	resp := &batchResponse{Items: []itemResponse{
		{Index: 0, Category: CategoryPositive, Score: 1.4, Confidence: -0.2},
	}}

	records := resp.toRecords(1)
	assert.Equal(t, 1.0, records[0].Score)
	assert.Equal(t, 0.0, records[0].Confidence)
}
