package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/pdftoolkit/models"
)

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(nil)

	empty, err := l.Summary(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.NotNil(t, empty.ByKind)

	require.NoError(t, l.Record(ctx, models.Operation{Kind: "merge", Success: true, FileCount: 2, DurationMS: 10}))
	require.NoError(t, l.Record(ctx, models.Operation{Kind: "merge", Success: false, ErrorCode: CodeInsufficientFiles, FileCount: 1, DurationMS: 30}))
	require.NoError(t, l.Record(ctx, models.Operation{Kind: "compress", Success: true, FileCount: 1, DurationMS: 5}))

	s, err := l.Summary(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, s.Total)
	assert.EqualValues(t, 2, s.Succeeded)
	assert.EqualValues(t, 1, s.Failed)
	require.Len(t, s.ByKind, 2)
	assert.Equal(t, "compress", s.ByKind[0].Kind)
	merge := s.ByKind[1]
	assert.EqualValues(t, 2, merge.Count)
	assert.EqualValues(t, 1, merge.Failed)
	assert.EqualValues(t, 3, merge.Files)
	assert.InDelta(t, 20.0, merge.AvgDurationMS, 0.001)
}
