package utils

// Partition splits n items across parts buckets so that bucket i holds
// n/parts items plus one if i < n%parts. The quotas sum to n and differ by
// at most one. parts must be positive.
func Partition(n, parts int) []int {
	quotas := make([]int, parts)
	base, extra := n/parts, n%parts
	for i := range quotas {
		quotas[i] = base
		if i < extra {
			quotas[i]++
		}
	}
	return quotas
}
