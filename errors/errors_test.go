package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/thumbkit/json"
)

func TestWrapKeepsType(t *testing.T) {
	base := NewCrop("status bar 3000 exceeds height 2000")
	wrapped := Wrap(base, "shot.png")

	assert.Equal(t, ErrorTypeCrop, wrapped.Type)
	assert.True(t, IsType(wrapped, ErrorTypeCrop))
	assert.Contains(t, wrapped.Error(), "shot.png")
	assert.Contains(t, wrapped.Error(), "exceeds height")
}

func TestFromErrorPlain(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrorTypeUnknown, appErr.Type)
	assert.Equal(t, "boom", appErr.Error())
	assert.Nil(t, FromError(nil))
}

func TestFromErrorFindsWrappedAppError(t *testing.T) {
	inner := NewEncode(errors.New("bad writer"))
	outer := fmt.Errorf("profile 450x800: %w", inner)

	assert.Same(t, inner, FromError(outer))
	assert.True(t, IsType(outer, ErrorTypeEncode))
	assert.False(t, IsType(outer, ErrorTypeDecode))
}

func TestDecodeCarriesFile(t *testing.T) {
	err := NewDecode("a.jpg", errors.New("unexpected EOF"))
	assert.Equal(t, "a.jpg", err.Detail("file"))
	assert.Equal(t, CodeDecodeFailed, err.Code)
	assert.Equal(t, "failed to decode image: unexpected EOF", err.Error())
}

func TestErrorFormatter(t *testing.T) {
	err := NewInvalid("status_bar_height", -1, "must not be negative")
	out := NewErrorFormatter(false, false).Format(err)

	assert.True(t, strings.HasPrefix(out, "[invalid] invalid value for status_bar_height: -1"))
	assert.Contains(t, out, "code=INVALID_FIELD")
	assert.Contains(t, out, "field=status_bar_height")
	assert.Empty(t, NewErrorFormatter(true, true).Format(nil))
}

func TestErrorRecover(t *testing.T) {
	run := func() (err error) {
		defer func() { err = ErrorRecover(recover()) }()
		panic("index out of range")
	}

	err := run()
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeInternal))
	assert.NotEmpty(t, FromError(err).Stack)
}

func TestErrorChain(t *testing.T) {
	chain := NewErrorChain()
	assert.False(t, chain.HasErrors())
	assert.Empty(t, chain.Errors())

	chain.Add(nil)
	chain.Add(NewDecode("broken.png", errors.New("not an image")))
	chain.Add(NewIO("out/450x800/a_450x800.png", errors.New("disk full")))
	chain.Add(NewDecode("broken2.png", errors.New("not an image")))

	assert.Equal(t, 3, chain.Len())
	errs := chain.Errors()
	assert.Equal(t, ErrorTypeIO, errs[1].Type)
	assert.Equal(t, "broken.png", errs[0].Detail("file"))
	assert.Equal(t, "broken2.png", errs[2].Detail("file"))
	assert.Contains(t, chain.Error(), "disk full")
}

func TestErrorChainJSON(t *testing.T) {
	chain := NewErrorChain()
	chain.Add(NewDecode("broken.png", errors.New("not an image")))

	data, err := json.Marshal(chain)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"decode","code":"DECODE_FAILED","message":"failed to decode image: not an image","details":{"file":"broken.png"}}]`, string(data))

	empty, err := json.Marshal(NewErrorChain())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}
