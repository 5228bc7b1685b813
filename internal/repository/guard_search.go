package repository

import (
    "context"
    "strings"

    "github.com/guardhire/guardhire-api/internal/model"
)

// GuardFilter narrows the guard search.  Zero values mean "no filter";
// pointer fields distinguish an explicit false/0 from absence.
type GuardFilter struct {
    Name           string
    City           string
    Gender         string
    MinExperience  *int
    Specialties    string
    FirearmLicense *bool
    MinRating      *float64
}

// SearchGuards returns guard profiles joined with their details.  Text
// filters are case-insensitive substrings; gender matches exactly
// (ignoring case); experience and rating are lower bounds.
//
// Text is matched in Go: SQLite's LOWER and LIKE fold ASCII only, so a
// city such as "Łódź" would never match its lower-case spelling, and user
// input would be read as LIKE wildcards.
func (r *ProfileRepo) SearchGuards(ctx context.Context, f GuardFilter) ([]model.Guard, error) {
    where := []string{"p.role = ?"}
    args := []any{string(model.RoleGuard)}

    if f.MinExperience != nil {
        where = append(where, "g.years_experience >= ?")
        args = append(args, *f.MinExperience)
    }
    if f.FirearmLicense != nil {
        where = append(where, "g.firearm_license = ?")
        args = append(args, *f.FirearmLicense)
    }
    if f.MinRating != nil {
        where = append(where, "g.rating >= ?")
        args = append(args, *f.MinRating)
    }

    q := `SELECT
            p.id, p.first_name, p.last_name, p.username, p.mail, p.phone, p.job_title,
            p.password_hash, p.role, p.avatar, p.created_at,
            g.profile_id, g.city, g.gender, g.years_experience, g.specialties, g.firearm_license, g.rating
        FROM profiles p
        JOIN guards_details g ON g.profile_id = p.id
        WHERE ` + strings.Join(where, " AND ") + `
        ORDER BY g.rating DESC, p.id ASC`

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    out := []model.Guard{}
    for rows.Next() {
        var (
            g    model.Guard
            role string
        )
        if err := rows.Scan(
            &g.ID, &g.FirstName, &g.LastName, &g.Username, &g.Mail, &g.Phone, &g.JobTitle,
            &g.PasswordHash, &role, &g.Avatar, &g.CreatedAt,
            &g.Details.ProfileID, &g.Details.City, &g.Details.Gender, &g.Details.YearsExperience,
            &g.Details.Specialties, &g.Details.FirearmLicense, &g.Details.Rating,
        ); err != nil {
            return nil, err
        }
        g.Role = model.Role(role)
        if f.matches(g) {
            out = append(out, g)
        }
    }
    return out, rows.Err()
}

func (f GuardFilter) matches(g model.Guard) bool {
    if name := fold(f.Name); name != "" &&
        !strings.Contains(fold(g.FirstName), name) && !strings.Contains(fold(g.LastName), name) {
        return false
    }
    if city := fold(f.City); city != "" && !strings.Contains(fold(g.Details.City), city) {
        return false
    }
    if gender := strings.TrimSpace(f.Gender); gender != "" && !strings.EqualFold(gender, strings.TrimSpace(g.Details.Gender)) {
        return false
    }
    if spec := fold(f.Specialties); spec != "" && !strings.Contains(fold(g.Details.Specialties), spec) {
        return false
    }
    return true
}

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
