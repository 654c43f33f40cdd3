package model

import "go.mongodb.org/mongo-driver/v2/bson"

// User is a registered researcher identity. Only the password hash is ever
// held or persisted.
type User struct {
	ID           bson.ObjectID
	Username     string
	PasswordHash string
}

func NewUser(username, passwordHash string) (*User, error) {
	if username == "" {
		return nil, NewValidationError("username is empty")
	}
	if passwordHash == "" {
		return nil, NewValidationError("password hash is empty")
	}
	return &User{ID: bson.NewObjectID(), Username: username, PasswordHash: passwordHash}, nil
}

// UserDocument is the persisted shape of a user.
type UserDocument struct {
	ID           bson.ObjectID `bson:"_id" json:"_id"`
	Username     string        `bson:"username" json:"username"`
	PasswordHash string        `bson:"password_hash" json:"password_hash"`
}

func (u *User) ToDocument() *UserDocument {
	return &UserDocument{ID: u.ID, Username: u.Username, PasswordHash: u.PasswordHash}
}

func UserFromDocument(doc *UserDocument) *User {
	return &User{ID: doc.ID, Username: doc.Username, PasswordHash: doc.PasswordHash}
}
