package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AdminSeed describes the administrator account created on first start.
type AdminSeed struct {
	Username     string
	Mail         string
	PasswordHash string
}

var seedNews = []struct{ title, description string }{
	{"Witamy w GuardHire", "Zlecaj ochronę i znajdź sprawdzonych pracowników ochrony w swojej okolicy."},
	{"Płatności online", "Zlecenia można teraz opłacić online przez bramkę płatniczą."},
	{"Raporty z akcji", "Pracownicy ochrony mogą dołączać zdjęcia i notatki głosowe do raportów."},
}

// Seed inserts the admin account (when admin is non-nil and absent) and the
// welcome news rows (when the news table is empty).  Running it twice has no
// further effect.
func Seed(ctx context.Context, db *sql.DB, admin *AdminSeed) error {
	if admin != nil {
		var id int64
		err := db.QueryRowContext(ctx,
			"SELECT id FROM profiles WHERE username = ? OR mail = ? LIMIT 1",
			admin.Username, admin.Mail).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := db.ExecContext(ctx,
				`INSERT INTO profiles (first_name, last_name, username, mail, password_hash, role, job_title)
				 VALUES (?, ?, ?, ?, ?, 'admin', ?)`,
				"Admin", "GuardHire", admin.Username, admin.Mail, admin.PasswordHash, "Administrator"); err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
		case err != nil:
			return fmt.Errorf("seed admin lookup: %w", err)
		}
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM news").Scan(&count); err != nil {
		return fmt.Errorf("seed news count: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, n := range seedNews {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO news (title, description) VALUES (?, ?)", n.title, n.description); err != nil {
			return fmt.Errorf("seed news: %w", err)
		}
	}
	return nil
}
