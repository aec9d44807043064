package db

import "context"

// User is a back-office login. PasswordHash holds a bcrypt digest
// computed by the caller; this package never sees plaintext passwords.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"-"`
	CreatedAt    string `db:"created_at" json:"createdAt"`
}

// UserByUsername fetches a user for login verification, returning
// sql.ErrNoRows for an unknown username.
func (db *DB) UserByUsername(ctx context.Context, username string) (User, error) {
	var user User
	err := db.getStmt(ctx, &user, qUserByUsername, map[string]any{
		"Username": username,
	})
	return user, err
}

// UserCreate inserts a user and returns the new id.
func (db *DB) UserCreate(ctx context.Context, username, passwordHash string) (int64, error) {
	res, err := db.execStmt(ctx, qUserInsert, map[string]any{
		"Username":     username,
		"PasswordHash": passwordHash,
	})
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
