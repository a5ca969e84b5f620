package web

import (
	"bytes"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Index(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, IndexTemplate, IndexData{LocalIP: "192.168.0.42", Port: 5000}, nil))

	out := buf.String()
	assert.Contains(t, out, "http://192.168.0.42:5000")
	assert.Contains(t, out, `<script src="/static/script.js">`)
}

func TestRenderer_EscapesValues(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, IndexTemplate, IndexData{LocalIP: "<b>x</b>"}, nil))

	assert.NotContains(t, buf.String(), "<b>x</b>")
	assert.Contains(t, buf.String(), "&lt;b&gt;x&lt;/b&gt;")
}

func TestRenderer_UnknownTemplate(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.Error(t, r.Render(&buf, "missing.html", nil, nil))
}

func TestStatic_ServesScript(t *testing.T) {
	data, err := fs.ReadFile(Static(), "script.js")
	require.NoError(t, err)
	assert.Contains(t, string(data), "/api/proxy/")
}
