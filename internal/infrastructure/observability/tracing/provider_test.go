package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-cms/pkg/config"
)

func TestNoneExporterIsNoop(t *testing.T) {
	p, err := NewProvider(context.Background(), config.TracingConfig{Exporter: "none"}, nil)
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "cms.render_block")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestStdoutExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(context.Background(), config.TracingConfig{Exporter: "stdout", ServiceName: "test"}, &buf)
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "cms.render_block")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "cms.render_block")
}

func TestUnknownExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), config.TracingConfig{Exporter: "zipkin"}, nil)
	assert.Error(t, err)
}
