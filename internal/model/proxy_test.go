package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestBody_Bytes_JSONPassthrough(t *testing.T) {
	b := JSONBody([]byte(`{"a": 1}`))

	out, err := b.Bytes()
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, string(out))
	assert.Equal(t, BodyJSON, b.Kind)
}

func TestBody_Bytes_TextWrapped(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"plain", "hello"},
		{"empty", ""},
		{"quotes and newlines", "line \"one\"\nline two"},
		{"html", "<h1>Whitelabel Error Page</h1>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := TextBody(tt.text).Bytes()
			require.NoError(t, err)

			res := gjson.ParseBytes(out)
			assert.True(t, gjson.ValidBytes(out))
			assert.Equal(t, tt.text, res.Get(MessageKey).String())
			assert.Len(t, res.Map(), 1)
		})
	}
}

func TestBody_Preview(t *testing.T) {
	long := strings.Repeat("x", 300)

	assert.Equal(t, "short", TextBody("short").Preview(200))
	assert.Equal(t, strings.Repeat("x", 200)+"...", TextBody(long).Preview(200))
	assert.Equal(t, `{"ok":true}`, JSONBody([]byte(`{"ok":true}`)).Preview(200))
}

func TestBodyKind_String(t *testing.T) {
	assert.Equal(t, "json", BodyJSON.String())
	assert.Equal(t, "text", BodyText.String())
	assert.Equal(t, "unknown", BodyKind(7).String())
}
