package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Tables are created idempotently on startup.  Each driver gets its own DDL;
// the column sets are identical.

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name    TEXT NOT NULL DEFAULT '',
		last_name     TEXT NOT NULL DEFAULT '',
		username      TEXT NOT NULL UNIQUE,
		mail          TEXT NOT NULL UNIQUE,
		phone         TEXT NOT NULL DEFAULT '',
		job_title     TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'user',
		avatar        TEXT,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS guards_details (
		profile_id       INTEGER PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
		city             TEXT NOT NULL DEFAULT '',
		gender           TEXT NOT NULL DEFAULT '',
		years_experience INTEGER NOT NULL DEFAULT 0,
		specialties      TEXT NOT NULL DEFAULT '',
		firearm_license  INTEGER NOT NULL DEFAULT 0,
		rating           REAL NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		name           TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL,
		date           TEXT NOT NULL,
		latitude       REAL,
		longitude      REAL,
		payment_status TEXT NOT NULL DEFAULT 'unpaid',
		created_by     INTEGER,
		assigned_guard INTEGER,
		created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id         INTEGER,
		amount_minor     INTEGER NOT NULL DEFAULT 0,
		currency         TEXT NOT NULL DEFAULT 'PLN',
		status           TEXT NOT NULL DEFAULT 'pending',
		gateway_order_id TEXT UNIQUE,
		ext_order_id     TEXT,
		buyer_email      TEXT,
		version          INTEGER NOT NULL DEFAULT 1,
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS news (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		profile_id  INTEGER,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		type        TEXT NOT NULL DEFAULT 'info',
		is_read     INTEGER NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS notification_reads (
		notification_id INTEGER NOT NULL REFERENCES notifications(id) ON DELETE CASCADE,
		profile_id      INTEGER NOT NULL,
		read_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (notification_id, profile_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id   INTEGER NOT NULL,
		author     TEXT NOT NULL DEFAULT '',
		content    TEXT NOT NULL,
		rating     INTEGER,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS reports (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id    INTEGER NOT NULL,
		guard_id    INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		photo_path  TEXT,
		audio_path  TEXT,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_by ON orders(created_by)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_assigned_guard ON orders(assigned_guard)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_order ON comments(order_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_order ON reports(order_id)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id            BIGINT AUTO_INCREMENT PRIMARY KEY,
		first_name    VARCHAR(100) NOT NULL DEFAULT '',
		last_name     VARCHAR(100) NOT NULL DEFAULT '',
		username      VARCHAR(100) NOT NULL UNIQUE,
		mail          VARCHAR(255) NOT NULL UNIQUE,
		phone         VARCHAR(32)  NOT NULL DEFAULT '',
		job_title     VARCHAR(100) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL DEFAULT 'user',
		avatar        VARCHAR(512) NULL,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS guards_details (
		profile_id       BIGINT PRIMARY KEY,
		city             VARCHAR(100) NOT NULL DEFAULT '',
		gender           VARCHAR(32)  NOT NULL DEFAULT '',
		years_experience INT NOT NULL DEFAULT 0,
		specialties      TEXT NOT NULL,
		firearm_license  TINYINT(1) NOT NULL DEFAULT 0,
		rating           DOUBLE NOT NULL DEFAULT 0,
		CONSTRAINT fk_guard_profile FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS orders (
		id             BIGINT AUTO_INCREMENT PRIMARY KEY,
		name           VARCHAR(255) NOT NULL,
		description    TEXT NOT NULL,
		status         VARCHAR(32) NOT NULL,
		date           VARCHAR(64) NOT NULL,
		latitude       DOUBLE NULL,
		longitude      DOUBLE NULL,
		payment_status VARCHAR(16) NOT NULL DEFAULT 'unpaid',
		created_by     BIGINT NULL,
		assigned_guard BIGINT NULL,
		created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_orders_created_by (created_by),
		INDEX idx_orders_assigned_guard (assigned_guard)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS payments (
		id               BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id         BIGINT NULL,
		amount_minor     BIGINT NOT NULL DEFAULT 0,
		currency         VARCHAR(3) NOT NULL DEFAULT 'PLN',
		status           VARCHAR(64) NOT NULL DEFAULT 'pending',
		gateway_order_id VARCHAR(128) NULL UNIQUE,
		ext_order_id     VARCHAR(128) NULL,
		buyer_email      VARCHAR(255) NULL,
		version          BIGINT NOT NULL DEFAULT 1,
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS news (
		id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		title       VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		profile_id  BIGINT NULL,
		title       VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		type        VARCHAR(32) NOT NULL DEFAULT 'info',
		is_read     TINYINT(1) NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_notifications_profile (profile_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS notification_reads (
		notification_id BIGINT NOT NULL,
		profile_id      BIGINT NOT NULL,
		read_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (notification_id, profile_id),
		CONSTRAINT fk_read_notification FOREIGN KEY (notification_id) REFERENCES notifications(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id   BIGINT NOT NULL,
		author     VARCHAR(255) NOT NULL DEFAULT '',
		content    TEXT NOT NULL,
		rating     INT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_comments_order (order_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reports (
		id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id    BIGINT NOT NULL,
		guard_id    BIGINT NOT NULL,
		description TEXT NOT NULL,
		photo_path  VARCHAR(512) NULL,
		audio_path  VARCHAR(512) NULL,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_reports_order (order_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing table.  It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	stmts := sqliteSchema
	if driver == "mysql" {
		stmts = mysqlSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
