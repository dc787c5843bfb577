package common

// MaxBatchSize is the most IDs a single YouTube detail call or keyword extraction call accepts
const MaxBatchSize = 50

// Chunk splits items into consecutive batches of at most size elements.
// The final batch holds the remainder; no batch is ever empty.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || size > MaxBatchSize {
		size = MaxBatchSize
	}
	if len(items) == 0 {
		return nil
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches
}

// Dedupe removes repeated strings, keeping first-seen order
func Dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
