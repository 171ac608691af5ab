package util

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

// TestTruncateUTF8Bytes 测试按字节截断不会破坏多字节字符
func TestTruncateUTF8Bytes(t *testing.T) {
	// ASCII：不超限时原样返回
	assert.Equal(t, "hello", TruncateUTF8Bytes("hello", 64))
	assert.Equal(t, "hel", TruncateUTF8Bytes("hello", 3))

	// 中文字符每个占 3 字节，截断点落在字符中间时要回退
	s := "捐赠收据"
	out := TruncateUTF8Bytes(s, 7)
	assert.Equal(t, "捐赠", out)
	assert.True(t, utf8.ValidString(out))

	// 截断后必须仍是合法的 UTF-8
	mixed := "ADA捐赠receipt收据"
	for limit := 0; limit <= len(mixed); limit++ {
		got := TruncateUTF8Bytes(mixed, limit)
		assert.True(t, utf8.ValidString(got), "limit=%d", limit)
		assert.LessOrEqual(t, len(got), limit)
	}

	assert.Equal(t, "", TruncateUTF8Bytes("任意", 0))
}

// TestChunkUTF8Bytes 测试长字符串按字节上限切分
func TestChunkUTF8Bytes(t *testing.T) {
	assert.Nil(t, ChunkUTF8Bytes("", 64))

	// 短字符串只有一段
	chunks := ChunkUTF8Bytes("short", 64)
	assert.Equal(t, []string{"short"}, chunks)

	// 每段不超过上限且拼回原串
	long := "这是一条很长的捐赠留言，需要拆分成多段链上元数据字符串。"
	chunks = ChunkUTF8Bytes(long, 16)
	var rebuilt string
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 16)
		assert.True(t, utf8.ValidString(chunk))
		rebuilt += chunk
	}
	assert.Equal(t, long, rebuilt)
}

// TestIsValidTxHash 测试交易哈希格式校验
func TestIsValidTxHash(t *testing.T) {
	valid := "a3b0cd5e7f19263748596a7b8c9d0e1f2a3b4c5d6e7f8091a2b3c4d5e6f70812"
	assert.True(t, IsValidTxHash(valid))

	assert.False(t, IsValidTxHash(""))
	assert.False(t, IsValidTxHash("abc123"))
	assert.False(t, IsValidTxHash(valid+"00"))
	// 包含非十六进制字符
	assert.False(t, IsValidTxHash("z3b0cd5e7f19263748596a7b8c9d0e1f2a3b4c5d6e7f8091a2b3c4d5e6f70812"))
}
