package contentcipher

import "sync"

// passwordKey scopes a stored password to one campaign and one identity.
type passwordKey struct {
	campaignID string
	identity   string
}

// PasswordBook is the local-only lookup of campaign passwords per identity.
// Absence of a stored password is a normal, expected state: callers route to
// a "content is encrypted, no key available" presentation instead of
// attempting decryption. Nothing in the book ever leaves the process.
type PasswordBook struct {
	mu        sync.RWMutex
	passwords map[passwordKey]string
}

// NewPasswordBook creates an empty password book.
func NewPasswordBook() *PasswordBook {
	return &PasswordBook{passwords: make(map[passwordKey]string)}
}

// Remember stores the password for a (campaignID, identity) pair.
func (b *PasswordBook) Remember(campaignID, identity, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.passwords[passwordKey{campaignID, identity}] = password
}

// Lookup returns the stored password and whether one exists. A false second
// return is not an error.
func (b *PasswordBook) Lookup(campaignID, identity string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	password, ok := b.passwords[passwordKey{campaignID, identity}]
	return password, ok
}

// Forget removes a stored password.
func (b *PasswordBook) Forget(campaignID, identity string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.passwords, passwordKey{campaignID, identity})
}
