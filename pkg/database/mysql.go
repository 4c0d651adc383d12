package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/lightsms/lightsms/environments"
	"github.com/lightsms/lightsms/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

func RunMigrations(db *sqlx.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			first_name VARCHAR(100),
			last_name VARCHAR(100),
			organization VARCHAR(255),
			plan VARCHAR(50) NOT NULL DEFAULT 'basic',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS contact_groups (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			name VARCHAR(100) NOT NULL,
			description TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id),
			INDEX idx_contact_groups_user (user_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS contacts (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			group_id BIGINT,
			phone_number VARCHAR(20) NOT NULL,
			first_name VARCHAR(100),
			last_name VARCHAR(100),
			email VARCHAR(255),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			has_opted_out BOOLEAN NOT NULL DEFAULT FALSE,
			opt_out_date DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (group_id) REFERENCES contact_groups(id),
			INDEX idx_contacts_user (user_id),
			INDEX idx_contacts_group (group_id),
			INDEX idx_contacts_opted_out (has_opted_out)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS message_templates (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			name VARCHAR(100) NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS campaigns (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			message TEXT NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'draft',
			scheduled_time DATETIME,
			started_at DATETIME,
			completed_at DATETIME,
			template_id BIGINT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (template_id) REFERENCES message_templates(id),
			INDEX idx_campaigns_user (user_id),
			INDEX idx_campaigns_status (status),
			INDEX idx_campaigns_scheduled (status, scheduled_time)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS campaign_groups (
			campaign_id BIGINT NOT NULL,
			group_id BIGINT NOT NULL,
			PRIMARY KEY (campaign_id, group_id),
			FOREIGN KEY (campaign_id) REFERENCES campaigns(id),
			FOREIGN KEY (group_id) REFERENCES contact_groups(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS sms_messages (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			campaign_id BIGINT NOT NULL,
			contact_id BIGINT NOT NULL,
			message_content TEXT NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'sent',
			error_message TEXT,
			external_id VARCHAR(255),
			sent_at DATETIME,
			delivered_at DATETIME,
			delivery_status VARCHAR(50),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (campaign_id) REFERENCES campaigns(id),
			FOREIGN KEY (contact_id) REFERENCES contacts(id),
			UNIQUE INDEX idx_sms_messages_external (external_id),
			INDEX idx_sms_messages_campaign (campaign_id),
			UNIQUE INDEX idx_sms_messages_campaign_contact (campaign_id, contact_id),
			INDEX idx_sms_messages_created (created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS responses (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			message_id BIGINT NOT NULL,
			contact_id BIGINT NOT NULL,
			response_text TEXT,
			response_time BIGINT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (message_id) REFERENCES sms_messages(id),
			FOREIGN KEY (contact_id) REFERENCES contacts(id),
			INDEX idx_responses_message (message_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS analytics_events (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			event_type VARCHAR(100) NOT NULL,
			event_data JSON,
			user_id BIGINT,
			campaign_id BIGINT,
			message_id BIGINT,
			contact_id BIGINT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_analytics_events_type (event_type),
			INDEX idx_analytics_events_created (created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
	}

	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	logger.Infof("Database migrations completed")

	return nil
}

func SeedTestData(db *sqlx.DB) error {
	var count int

	err := db.Get(&count, "SELECT COUNT(*) FROM users")
	if err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d users, skipping seed", count)
		return nil
	}

	result, err := db.Exec(
		"INSERT INTO users (email, password_hash, plan) VALUES (?, ?, 'basic')",
		"demo@lightsms.dev", "$2a$10$seeded.demo.hash.not.a.real.credential",
	)
	if err != nil {
		return fmt.Errorf("failed to seed demo user: %w", err)
	}

	userID, err := result.LastInsertId()
	if err != nil {
		return err
	}

	result, err = db.Exec(
		"INSERT INTO contact_groups (user_id, name, description) VALUES (?, ?, ?)",
		userID, "Early access", "Demo group seeded at startup",
	)
	if err != nil {
		return fmt.Errorf("failed to seed demo group: %w", err)
	}

	groupID, err := result.LastInsertId()
	if err != nil {
		return err
	}

	demoContacts := []struct {
		phone     string
		firstName string
	}{
		{"+15555550100", "Ada"},
		{"+15555550101", "Grace"},
		{"+15555550102", "Edsger"},
		{"+15555550103", "Barbara"},
		{"+15555550104", "Donald"},
	}

	for _, c := range demoContacts {
		if _, err := db.Exec(
			"INSERT INTO contacts (user_id, group_id, phone_number, first_name) VALUES (?, ?, ?, ?)",
			userID, groupID, c.phone, c.firstName,
		); err != nil {
			return fmt.Errorf("failed to seed demo contact: %w", err)
		}
	}

	logger.Infof("Seeded demo user with %d contacts", len(demoContacts))
	return nil
}
