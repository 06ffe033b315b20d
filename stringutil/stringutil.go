package stringutil

// logHashEnds is how many characters of each end ShortenLog keeps
const logHashEnds = 8

// ShortHash keeps the first and last n characters of hash joined by "..."
func ShortHash(hash string, n int) string {
	if n <= 0 || len(hash) <= 2*n+3 {
		return hash
	}
	return hash[:n] + "..." + hash[len(hash)-n:]
}

// ShortenLog shortens a hash for log lines and tables
func ShortenLog(hash string) string {
	return ShortHash(hash, logHashEnds)
}
