package util

import "unicode/utf8"

// TruncateUTF8Bytes 按 UTF-8 字节数截断字符串，不会在多字节字符中间截断。
// 链上元数据的字段有硬性字节上限，按字符数截断会让多字节字符悄悄溢出。
func TruncateUTF8Bytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	if maxBytes <= 0 {
		return ""
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// ChunkUTF8Bytes 将字符串按字节上限切分为多段，每段都是完整的 UTF-8 序列。
// Cardano 交易元数据中单个字符串最长 64 字节，长描述需要拆成字符串数组。
func ChunkUTF8Bytes(s string, maxBytes int) []string {
	if s == "" {
		return nil
	}
	var chunks []string
	for len(s) > maxBytes {
		part := TruncateUTF8Bytes(s, maxBytes)
		if part == "" {
			break
		}
		chunks = append(chunks, part)
		s = s[len(part):]
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}
