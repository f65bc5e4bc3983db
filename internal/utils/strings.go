package utils

// ContainsString checks if a string slice contains a specific string
func ContainsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// DedupeStrings returns the slice with duplicates removed, preserving
// first-occurrence order.
func DedupeStrings(slice []string) []string {
	out := make([]string, 0, len(slice))
	for _, s := range slice {
		if !ContainsString(out, s) {
			out = append(out, s)
		}
	}
	return out
}
