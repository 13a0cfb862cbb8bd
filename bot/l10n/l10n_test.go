package l10n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default("en")
	require.NoError(t, err)

	assert.Equal(t, "en", c.Default())
	assert.Equal(t, []string{"en", "ru"}, c.Locales())
	assert.Equal(t, "Error: rate limited", c.Text("en", "error", Args{"message": "rate limited"}))
	assert.Contains(t, c.Text("ru", "cmd_start", Args{"name": "Иван"}), "Иван")
}

func TestMatch(t *testing.T) {
	c, err := Default("en")
	require.NoError(t, err)

	tests := []struct {
		code string
		want string
	}{
		{"ru", "ru"},
		{"ru-RU", "ru"},
		{"en-GB", "en"},
		{"de", "en"},
		{"", "en"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Match(tt.code), tt.code)
	}
}

func TestTextFallback(t *testing.T) {
	fsys := fstest.MapFS{
		"en.yaml": {Data: []byte("hello: \"Hi {name}\"\nonly_en: \"english\"\n")},
		"ru.yaml": {Data: []byte("hello: \"Привет {name}\"\n")},
	}
	c, err := Load(fsys, "en")
	require.NoError(t, err)

	assert.Equal(t, "Привет Ann", c.Text("ru", "hello", Args{"name": "Ann"}))
	assert.Equal(t, "english", c.Text("ru", "only_en", nil))
	assert.Equal(t, "Hi Ann", c.Text("fr", "hello", Args{"name": "Ann"}))
	assert.Equal(t, "missing", c.Text("en", "missing", nil))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(fstest.MapFS{}, "en")
	assert.Error(t, err)

	_, err = Load(fstest.MapFS{"ru.yaml": {Data: []byte("a: b\n")}}, "en")
	assert.Error(t, err)

	_, err = Load(fstest.MapFS{"en.yaml": {Data: []byte("a: [\n")}}, "en")
	assert.Error(t, err)
}

func TestDefaultLocaleFirst(t *testing.T) {
	fsys := fstest.MapFS{
		"en.yaml": {Data: []byte("a: en\n")},
		"ru.yaml": {Data: []byte("a: ru\n")},
	}
	c, err := Load(fsys, "ru")
	require.NoError(t, err)
	assert.Equal(t, "ru", c.Match("ja"))
	assert.Equal(t, "en", c.Match("en-US"))
}
