package credentials

// Record is one username → password-hash entry.
type Record struct {
	Username     string
	PasswordHash string
}
