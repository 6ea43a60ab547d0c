package utils

// ShortenID keeps the head and tail of long identifiers for table and log
// output: 8 characters each side above 16 characters, 4 each side above 8.
func ShortenID(id string) string {
	keep := 8
	switch n := len(id); {
	case n <= 8:
		return id
	case n <= 16:
		keep = 4
	}
	return id[:keep] + "..." + id[len(id)-keep:]
}
