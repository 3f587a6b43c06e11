package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishRecordsMessages(t *testing.T) {
	t.Parallel()

	p := New()
	id1, err := p.Publish(context.Background(), "surveys", map[string]any{"a": 1})
	require.NoError(t, err)
	id2, err := p.Publish(context.Background(), "surveys", map[string]any{"b": 2})
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	msgs := p.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "surveys", msgs[0].Topic)
}
