package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/guardhire/guardhire-api/internal/database"
    "github.com/guardhire/guardhire-api/internal/model"
)

// ProfileRepo persists identities and the guard details that extend them.
type ProfileRepo struct {
    db *sql.DB
}

// NewProfileRepo returns a ProfileRepo bound to db.
func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

const profileColumns = `id, first_name, last_name, username, mail, phone, job_title, password_hash, role, avatar, created_at`

type rowScanner interface {
    Scan(dest ...any) error
}

func scanProfile(s rowScanner) (model.Profile, error) {
    var (
        p      model.Profile
        role   string
        avatar sql.NullString
    )
    err := s.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Username, &p.Mail, &p.Phone,
        &p.JobTitle, &p.PasswordHash, &role, &avatar, &p.CreatedAt)
    if err != nil {
        return p, err
    }
    p.Role = model.Role(role)
    if avatar.Valid {
        a := avatar.String
        p.Avatar = &a
    }
    return p, nil
}

// normalizeMail lower-cases and trims an address so lookups are stable.
func normalizeMail(mail string) string { return strings.ToLower(strings.TrimSpace(mail)) }

// Create inserts p and fills its ID and CreatedAt.  A taken username or
// mail yields ErrDuplicate and no row is written.
func (r *ProfileRepo) Create(ctx context.Context, p *model.Profile) error {
    return insertProfile(ctx, r.db, p)
}

type execQuerier interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertProfile(ctx context.Context, q execQuerier, p *model.Profile) error {
    p.Mail = normalizeMail(p.Mail)
    p.Username = strings.TrimSpace(p.Username)
    res, err := q.ExecContext(ctx,
        `INSERT INTO profiles (first_name, last_name, username, mail, phone, job_title, password_hash, role, avatar)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
        p.FirstName, p.LastName, p.Username, p.Mail, p.Phone, p.JobTitle, p.PasswordHash, string(p.Role), p.Avatar)
    if err != nil {
        if database.IsUniqueViolation(err) {
            return ErrDuplicate
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = id
    return q.QueryRowContext(ctx, "SELECT created_at FROM profiles WHERE id = ?", id).Scan(&p.CreatedAt)
}

func insertGuardDetails(ctx context.Context, q execQuerier, d *model.GuardDetails) error {
    _, err := q.ExecContext(ctx,
        `INSERT INTO guards_details (profile_id, city, gender, years_experience, specialties, firearm_license, rating)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
        d.ProfileID, d.City, d.Gender, d.YearsExperience, d.Specialties, d.FirearmLicense, d.Rating)
    if err != nil && database.IsUniqueViolation(err) {
        return ErrDuplicate
    }
    return err
}

// CreateGuard inserts a guard profile and its details in one transaction.
// Either both rows exist afterwards or neither does.
func (r *ProfileRepo) CreateGuard(ctx context.Context, p *model.Profile, d *model.GuardDetails) error {
    p.Role = model.RoleGuard
    return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
        if err := insertProfile(ctx, tx, p); err != nil {
            return err
        }
        d.ProfileID = p.ID
        return insertGuardDetails(ctx, tx, d)
    })
}

// GetByID returns the profile with the given id.
func (r *ProfileRepo) GetByID(ctx context.Context, id int64) (model.Profile, error) {
    p, err := scanProfile(r.db.QueryRowContext(ctx,
        "SELECT "+profileColumns+" FROM profiles WHERE id = ? LIMIT 1", id))
    if errors.Is(err, sql.ErrNoRows) {
        return p, ErrNotFound
    }
    return p, err
}

// GetByLogin looks a profile up by username or mail.
func (r *ProfileRepo) GetByLogin(ctx context.Context, identifier string) (model.Profile, error) {
    identifier = strings.TrimSpace(identifier)
    p, err := scanProfile(r.db.QueryRowContext(ctx,
        "SELECT "+profileColumns+" FROM profiles WHERE username = ? OR mail = ? ORDER BY id LIMIT 1",
        identifier, normalizeMail(identifier)))
    if errors.Is(err, sql.ErrNoRows) {
        return p, ErrNotFound
    }
    return p, err
}

// MailExists reports whether a profile uses mail.
func (r *ProfileRepo) MailExists(ctx context.Context, mail string) (bool, error) {
    var n int
    err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles WHERE mail = ?", normalizeMail(mail)).Scan(&n)
    return n > 0, err
}

// List returns every profile ordered by id.
func (r *ProfileRepo) List(ctx context.Context) ([]model.Profile, error) {
    rows, err := r.db.QueryContext(ctx, "SELECT "+profileColumns+" FROM profiles ORDER BY id")
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Profile{}
    for rows.Next() {
        p, err := scanProfile(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, p)
    }
    return out, rows.Err()
}

// UpdateSelf overwrites the fields a user may edit on their own profile.
func (r *ProfileRepo) UpdateSelf(ctx context.Context, id int64, firstName, lastName, phone, jobTitle string) error {
    res, err := r.db.ExecContext(ctx,
        "UPDATE profiles SET first_name = ?, last_name = ?, phone = ?, job_title = ? WHERE id = ?",
        firstName, lastName, phone, jobTitle, id)
    if err != nil {
        return err
    }
    return requireAffected(res)
}

// ChangeRole sets a new role.  Leaving the guard role removes the guard
// details; entering it requires details, which replace any existing row.
func (r *ProfileRepo) ChangeRole(ctx context.Context, id int64, role model.Role, details *model.GuardDetails) error {
    return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
        res, err := tx.ExecContext(ctx, "UPDATE profiles SET role = ? WHERE id = ?", string(role), id)
        if err != nil {
            return err
        }
        if err := requireAffected(res); err != nil {
            return err
        }
        if _, err := tx.ExecContext(ctx, "DELETE FROM guards_details WHERE profile_id = ?", id); err != nil {
            return err
        }
        if role != model.RoleGuard || details == nil {
            return nil
        }
        details.ProfileID = id
        return insertGuardDetails(ctx, tx, details)
    })
}

// GuardDetails returns the details row of a guard profile.
func (r *ProfileRepo) GuardDetails(ctx context.Context, profileID int64) (model.GuardDetails, error) {
    var d model.GuardDetails
    err := r.db.QueryRowContext(ctx,
        `SELECT profile_id, city, gender, years_experience, specialties, firearm_license, rating
         FROM guards_details WHERE profile_id = ?`, profileID).Scan(
        &d.ProfileID, &d.City, &d.Gender, &d.YearsExperience, &d.Specialties, &d.FirearmLicense, &d.Rating)
    if errors.Is(err, sql.ErrNoRows) {
        return d, ErrNotFound
    }
    return d, err
}

// IsGuard reports whether id references a profile with the guard role.
func (r *ProfileRepo) IsGuard(ctx context.Context, id int64) (bool, error) {
    var n int
    err := r.db.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM profiles WHERE id = ? AND role = ?", id, string(model.RoleGuard)).Scan(&n)
    return n > 0, err
}

// requireAffected maps an update that matched nothing to ErrNotFound.
func requireAffected(res sql.Result) error {
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotFound
    }
    return nil
}
