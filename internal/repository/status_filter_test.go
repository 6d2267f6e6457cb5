package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/timeline-engine/internal/model"
)

func TestStatusFilterFromParams(t *testing.T) {
	f, err := StatusFilterFromParams(map[string]interface{}{
		"followed_by":     int64(1),
		"visibility":      []string{"public", "unlisted"},
		"max_id":          int64(100),
		"exclude_replies": true,
		"languages":       []string{"en"},
		"limit":           20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.FollowedBy)
	assert.Equal(t, []model.Visibility{model.VisibilityPublic, model.VisibilityUnlisted}, f.Visibility)
	assert.Equal(t, int64(100), f.MaxID)
	assert.True(t, f.ExcludeReplies)
	assert.Equal(t, []string{"en"}, f.Languages)
	assert.Equal(t, 20, f.Limit)
}

func TestStatusFilterRejectsUnknownKey(t *testing.T) {
	_, err := StatusFilterFromParams(map[string]interface{}{
		"max_id":      int64(100),
		"made_up_key": true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFilterKey)
	assert.Contains(t, err.Error(), "made_up_key")
}

func TestStatusFilterRejectsWrongType(t *testing.T) {
	_, err := StatusFilterFromParams(map[string]interface{}{
		"max_id": "not-a-number",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_id")
}
