package hash

import "golang.org/x/crypto/bcrypt"

// Bcrypt hashes and checks passwords; Cost 0 means bcrypt.DefaultCost.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) HashPassword(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}

	return string(hashbytes), nil
}

func (b Bcrypt) CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
