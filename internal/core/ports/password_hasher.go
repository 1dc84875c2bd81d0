package ports

// PasswordHasher produces self-contained salted hashes and verifies
// plaintexts against them. Verify never errors on mismatch.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}
