package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/phishsim/internal/model"
	"github.com/xxxsen/phishsim/internal/pkg/dbutil"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
)

var userColumns = []string{
	"id", "username", "email", "phone", "password_hash", "is_verified",
	"COALESCE(verification_token, '')", "verification_token_expires",
	"is_admin", "can_start_crawl", "can_start_campaign", "ctime", "mtime",
}

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Register inserts user inside one transaction. afterInsert runs before commit;
// returning an error from it rolls the insert back.
func (r *UserRepo) Register(ctx context.Context, user *model.User, afterInsert func(ctx context.Context) error) error {
	return WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		conflicts, err := r.findConflicts(ctx, tx, user)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &appErr.ConflictError{Fields: conflicts}
		}
		if err := r.insert(ctx, tx, user); err != nil {
			return err
		}
		if afterInsert == nil {
			return nil
		}
		return afterInsert(ctx)
	})
}

func (r *UserRepo) findConflicts(ctx context.Context, tx DBTX, user *model.User) ([]string, error) {
	sqlStr, args := dbutil.Finalize(
		"SELECT email, username, phone FROM users WHERE email = ? OR username = ? OR phone = ?",
		[]interface{}{user.Email, user.Username, user.Phone},
	)
	rows, err := tx.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	seen := map[string]bool{}
	for rows.Next() {
		var email, username, phone string
		if err := rows.Scan(&email, &username, &phone); err != nil {
			return nil, err
		}
		seen["email"] = seen["email"] || email == user.Email
		seen["username"] = seen["username"] || username == user.Username
		seen["phone"] = seen["phone"] || phone == user.Phone
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var fields []string
	for _, field := range []string{"email", "username", "phone"} {
		if seen[field] {
			fields = append(fields, field)
		}
	}
	return fields, nil
}

func (r *UserRepo) insert(ctx context.Context, tx DBTX, user *model.User) error {
	data := map[string]interface{}{
		"username":                   user.Username,
		"email":                      user.Email,
		"phone":                      user.Phone,
		"password_hash":              user.PasswordHash,
		"is_verified":                user.IsVerified,
		"verification_token":         nullString(user.VerificationToken),
		"verification_token_expires": user.VerificationTokenExpires,
		"is_admin":                   user.IsAdmin,
		"can_start_crawl":            user.CanStartCrawl,
		"can_start_campaign":         user.CanStartCampaign,
		"ctime":                      user.Ctime,
		"mtime":                      user.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("users", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" RETURNING id", args)
	if err := tx.QueryRowContext(ctx, sqlStr, args...).Scan(&user.ID); err != nil {
		if dbutil.IsConflict(err) {
			return &appErr.ConflictError{Fields: []string{dbutil.ConflictColumn(err)}}
		}
		return err
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"id": userID})
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"email": email})
}

func (r *UserRepo) GetByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"verification_token": token})
}

func (r *UserRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.User, error) {
	sqlStr, args, err := builder.BuildSelect("users", where, userColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanUser(rows)
}

func (r *UserRepo) List(ctx context.Context) ([]*model.User, error) {
	sqlStr, args, err := builder.BuildSelect("users", map[string]interface{}{"_orderby": "id asc"}, userColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	users := make([]*model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepo) MarkVerified(ctx context.Context, userID int64, mtime int64) error {
	sqlStr, args := dbutil.Finalize(
		"UPDATE users SET is_verified = TRUE, verification_token = NULL, verification_token_expires = 0, mtime = ? WHERE id = ?",
		[]interface{}{mtime, userID},
	)
	return r.execAffected(ctx, sqlStr, args)
}

func (r *UserRepo) UpdateProfile(ctx context.Context, userID int64, update model.UserProfileUpdate, passwordHash string, mtime int64) error {
	data := map[string]interface{}{"mtime": mtime}
	if update.Username != nil {
		data["username"] = *update.Username
	}
	if update.Email != nil {
		data["email"] = *update.Email
	}
	if update.Phone != nil {
		data["phone"] = *update.Phone
	}
	if passwordHash != "" {
		data["password_hash"] = passwordHash
	}
	sqlStr, args, err := builder.BuildUpdate("users", map[string]interface{}{"id": userID}, data)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if err := r.execAffected(ctx, sqlStr, args); err != nil {
		if dbutil.IsConflict(err) {
			return &appErr.ConflictError{Fields: []string{dbutil.ConflictColumn(err)}}
		}
		return err
	}
	return nil
}

// SetCapability updates exactly one flag on exactly one row.
func (r *UserRepo) SetCapability(ctx context.Context, userID int64, capability model.Capability, value bool, mtime int64) error {
	var column string
	switch capability {
	case model.CapabilityStartCrawl, model.CapabilityStartCampaign:
		column = string(capability)
	default:
		return fmt.Errorf("unknown capability %q: %w", capability, appErr.ErrInvalid)
	}
	sqlStr, args, err := builder.BuildUpdate("users", map[string]interface{}{"id": userID}, map[string]interface{}{
		column:  value,
		"mtime": mtime,
	})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return r.execAffected(ctx, sqlStr, args)
}

func (r *UserRepo) Delete(ctx context.Context, userID int64) error {
	sqlStr, args, err := builder.BuildDelete("users", map[string]interface{}{"id": userID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return r.execAffected(ctx, sqlStr, args)
}

func (r *UserRepo) BulkDelete(ctx context.Context, userIDs []int64) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	sqlStr, args, err := builder.BuildDelete("users", map[string]interface{}{"id in": userIDs})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *UserRepo) execAffected(ctx context.Context, sqlStr string, args []interface{}) error {
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var user model.User
	if err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.Phone, &user.PasswordHash, &user.IsVerified,
		&user.VerificationToken, &user.VerificationTokenExpires,
		&user.IsAdmin, &user.CanStartCrawl, &user.CanStartCampaign, &user.Ctime, &user.Mtime,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func nullString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
