package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "error with cause",
			err:      Wrap(KindRoot, "mkdir", "create output root", fs.ErrPermission),
			contains: []string{"[root:mkdir]", "create output root", "permission denied"},
		},
		{
			name:     "error without cause",
			err:      New(KindConfig, "validate", "quality out of range"),
			contains: []string{"[config:validate]", "quality out of range"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, substr := range tt.contains {
				assert.Contains(t, tt.err.Error(), substr)
			}
		})
	}
}

func TestWrapKeepsCauseAndKind(t *testing.T) {
	inner := Wrap(KindTimeout, "transcode", "deadline exceeded", errors.New("slow"))
	outer := Wrap(KindFile, "transcode", "ignored", inner)

	require.Same(t, inner, outer)
	assert.Equal(t, KindTimeout, KindOf(outer))
	assert.Nil(t, Wrap(KindFile, "op", "msg", nil))
}

func TestIsKindThroughFmtWrapping(t *testing.T) {
	base := New(KindCollision, "plan", "output already claimed")
	wrapped := fmt.Errorf("job failed: %w", base)

	assert.True(t, IsKind(wrapped, KindCollision))
	assert.False(t, IsKind(wrapped, KindFile))
	assert.False(t, IsKind(nil, KindFile))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestFatalKinds(t *testing.T) {
	assert.True(t, KindConfig.Fatal())
	assert.True(t, KindRoot.Fatal())
	assert.False(t, KindFile.Fatal())
	assert.False(t, KindTimeout.Fatal())
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "decode: unexpected EOF", Message(Wrap(KindFile, "decode", "decode", errors.New("unexpected EOF"))))
	assert.Equal(t, "plain", Message(errors.New("plain")))
}
