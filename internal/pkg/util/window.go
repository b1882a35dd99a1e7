package util

// Window 追加元素后只保留末尾 capacity 个，最旧的先被淘汰
func Window[T any](items []T, capacity int, appended ...T) []T {
	merged := make([]T, 0, len(items)+len(appended))
	merged = append(merged, items...)
	merged = append(merged, appended...)
	return Tail(merged, capacity)
}

// Tail 返回末尾最多 n 个元素
func Tail[T any](items []T, n int) []T {
	if n <= 0 {
		return []T{}
	}
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

// Overflow 按新到旧排列的 items 中，超出 capacity 需要淘汰的部分
func Overflow[T any](newestFirst []T, capacity int) []T {
	if capacity < 0 || len(newestFirst) <= capacity {
		return nil
	}
	return newestFirst[capacity:]
}
