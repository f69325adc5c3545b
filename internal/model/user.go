package model

import "time"

// User represents an account as stored in the `users` table.  The json
// tags are omitted on purpose: handlers define their own response types so
// PasswordHash can never leak into a response body.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email, domain part lowercased.
//  Name         – optional display name.
//  PasswordHash – bcrypt hashed password.
//  IsActive     – whether the account may log in.
//  IsStaff      – grants access to admin endpoints.
//  IsSuperuser  – full administrative account.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    Name         string    // users.name
    PasswordHash string    // users.password_hash
    IsActive     bool      // users.is_active
    IsStaff      bool      // users.is_staff
    IsSuperuser  bool      // users.is_superuser
    CreatedAt    time.Time // users.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is not stored; only its SHA‑256 hash.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
}
