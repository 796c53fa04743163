package providers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentx/chatwidget/internal/models"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Default()
	assert.False(t, ok)

	r.Register(models.Model{ID: "a", ServerURL: "http://a/", ModelName: "A", APIPath: "/v1/chat/completions", APIKey: "k"})
	r.Register(models.Model{ID: "b", ServerURL: "http://b", ModelName: "B", APIPath: "/v1/chat/completions"})
	r.Register(models.Model{ID: "a", ServerURL: "http://a", ModelName: "A2", APIPath: "/v1/chat/completions"})

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "A2", list[0].ModelName)
	assert.True(t, r.Has("b"))

	def, ok := r.Default()
	assert.True(t, ok)
	assert.Equal(t, "a", def.ID)

	req, err := r.Request("b", []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "http://b/v1/chat/completions", req.Endpoint())
	assert.Equal(t, "B", req.Model)

	_, err = r.Request("zzz", nil)
	assert.True(t, errors.Is(err, models.ErrUnknownModel))
}
