package cmserrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxonomy(t *testing.T) {
	nf := NotFound("page %q not found", "missing")
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsConfiguration(nf))
	assert.Contains(t, nf.Error(), `page "missing" not found`)

	cfg := Configuration("no default template configured")
	assert.True(t, IsConfiguration(cfg))
	assert.False(t, IsRender(cfg))

	cause := errors.New("boom")
	re := Render(cause, "block %d failed", 7)
	assert.True(t, IsRender(re))
	assert.ErrorIs(t, re, cause)

	assert.True(t, IsRender(Render(nil, "panic")))
}

func TestWrappedCodesSurvive(t *testing.T) {
	err := fmt.Errorf("resolve current page: %w", NotFound("no current page"))
	assert.True(t, IsNotFound(err))

	err = With(Configuration("no backend"), "type", "cms.text")
	assert.True(t, IsConfiguration(err))

	assert.Nil(t, With(nil, "k", "v"))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("plain")))
}
