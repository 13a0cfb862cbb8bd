package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeMarkdown(t *testing.T) {
	v1, err := EscapeMarkdown("john_doe *[x]*", MarkdownV1)
	require.NoError(t, err)
	assert.Equal(t, `john\_doe \*\[x]\*`, v1)

	v2, err := EscapeMarkdown("a.b-c!10", MarkdownV2)
	require.NoError(t, err)
	assert.Equal(t, `a\.b\-c\!10`, v2)

	_, err = EscapeMarkdown("x", 3)
	assert.Error(t, err)
}
