package jsonx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type patch struct {
	Name Field[string] `json:"name"`
	FPS  Field[int]    `json:"fps"`
	Loop Field[bool]   `json:"loop"`
}

func TestField_Presence(t *testing.T) {
	var p patch
	require.NoError(t, json.Unmarshal([]byte(`{"name":"x","fps":null}`), &p))

	assert.True(t, p.Name.IsSet())
	assert.False(t, p.Name.IsNull())
	assert.Equal(t, "x", *p.Name.Value())

	assert.True(t, p.FPS.IsSet())
	assert.True(t, p.FPS.IsNull())

	assert.False(t, p.Loop.IsSet())
	assert.Nil(t, p.Loop.Value())
}

func TestField_Apply(t *testing.T) {
	name := "old"
	assert.True(t, Set("new").Apply(&name))
	assert.Equal(t, "new", name)

	var unset Field[string]
	assert.False(t, unset.Apply(&name))
	assert.Equal(t, "new", name)
}

func TestDecodeStrict(t *testing.T) {
	var p patch
	assert.ErrorIs(t, DecodeStrict(strings.NewReader("  \n"), &p), ErrEmptyBody)
	assert.ErrorIs(t, DecodeStrict(strings.NewReader(`{} {}`), &p), ErrTrailingJSON)
	assert.Error(t, DecodeStrict(strings.NewReader(`{"unknown":1}`), &p))
	assert.Error(t, DecodeStrict(strings.NewReader(`{"fps":"thirty"}`), &p))
	assert.NoError(t, DecodeStrict(strings.NewReader(`{"fps":25}`), &p))
	assert.Equal(t, 25, *p.FPS.Value())
}

func TestParseStrictJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"loop":false}`))
	var p patch
	require.NoError(t, ParseStrictJSONBody(req, &p))
	assert.True(t, p.Loop.IsSet())
	assert.False(t, *p.Loop.Value())

	assert.ErrorIs(t, ParseStrictJSONBody[patch](nil, &p), ErrEmptyBody)
}
