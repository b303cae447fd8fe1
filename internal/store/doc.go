package store

import (
	"encoding/json"

	"github.com/example/letterpress-shop/internal/domain/user"
)

// User documents need special handling because PasswordHash is json:"-" on
// the API type: the store keeps it under its own key so it round-trips
// through the document encoding.

func marshalUser(u *user.User) ([]byte, error) {
	doc := struct {
		*user.User
		PasswordHash string `json:"password_hash"`
	}{u, u.PasswordHash}
	return json.Marshal(doc)
}

func unmarshalUser(data []byte) (*user.User, error) {
	var doc struct {
		user.User
		PasswordHash string `json:"password_hash"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	u := doc.User
	u.PasswordHash = doc.PasswordHash
	return &u, nil
}
