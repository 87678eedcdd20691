// Copyright 2016-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"database/sql"

	migrate "github.com/rubenv/sql-migrate"
)

// This file maintains the database migration code.  See
// https://github.com/rubenv/sql-migrate for details of what goes in
// here.  This runs "outside" the normal store flow, either at initial
// startup or from an external tool.

var migrationSource = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "1-initial-schema",
			Up: []string{
				`CREATE TABLE account(
					id SERIAL PRIMARY KEY,
					username TEXT NOT NULL UNIQUE,
					first_name TEXT NOT NULL DEFAULT '',
					last_name TEXT NOT NULL DEFAULT '',
					email TEXT NOT NULL DEFAULT '',
					is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
					permissions TEXT[],
					password_hash TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE TABLE review_group(
					id SERIAL PRIMARY KEY,
					name TEXT NOT NULL UNIQUE,
					display_name TEXT NOT NULL DEFAULT '',
					mailing_list TEXT NOT NULL DEFAULT '',
					invite_only BOOLEAN NOT NULL DEFAULT FALSE,
					visible BOOLEAN NOT NULL DEFAULT TRUE,
					members TEXT[]
				)`,
				`CREATE TABLE repository(
					id SERIAL PRIMARY KEY,
					name TEXT NOT NULL,
					path TEXT NOT NULL,
					mirror_path TEXT NOT NULL DEFAULT '',
					tool TEXT NOT NULL DEFAULT '',
					public BOOLEAN NOT NULL DEFAULT TRUE,
					users TEXT[]
				)`,
				`CREATE TABLE review_request(
					id SERIAL PRIMARY KEY,
					submitter TEXT NOT NULL,
					repository_id INTEGER NOT NULL,
					change_num INTEGER NOT NULL DEFAULT 0,
					status TEXT NOT NULL,
					public BOOLEAN NOT NULL DEFAULT FALSE,
					time_added TIMESTAMP WITH TIME ZONE NOT NULL,
					last_updated TIMESTAMP WITH TIME ZONE NOT NULL,
					summary TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					testing_done TEXT NOT NULL DEFAULT '',
					branch TEXT NOT NULL DEFAULT '',
					bugs_closed TEXT[],
					target_groups TEXT[],
					target_people TEXT[]
				)`,
				`CREATE UNIQUE INDEX review_request_change_num
					ON review_request(repository_id, change_num)
					WHERE change_num <> 0`,
				`CREATE INDEX review_request_last_updated
					ON review_request(last_updated DESC, id DESC)`,
				`CREATE TABLE change_description(
					id SERIAL PRIMARY KEY,
					review_request_id INTEGER NOT NULL
						REFERENCES review_request(id) ON DELETE CASCADE,
					text TEXT NOT NULL DEFAULT '',
					timestamp TIMESTAMP WITH TIME ZONE NOT NULL
				)`,
				`CREATE TABLE draft(
					id SERIAL PRIMARY KEY,
					review_request_id INTEGER NOT NULL UNIQUE
						REFERENCES review_request(id) ON DELETE CASCADE,
					last_updated TIMESTAMP WITH TIME ZONE NOT NULL,
					summary TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					testing_done TEXT NOT NULL DEFAULT '',
					branch TEXT NOT NULL DEFAULT '',
					bugs_closed TEXT[],
					target_groups TEXT[],
					target_people TEXT[],
					change_description TEXT NOT NULL DEFAULT '',
					has_change_description BOOLEAN NOT NULL DEFAULT FALSE,
					diffset_id INTEGER NOT NULL DEFAULT 0,
					screenshot_ids INTEGER[]
				)`,
				`CREATE TABLE diffset(
					id SERIAL PRIMARY KEY,
					review_request_id INTEGER NOT NULL
						REFERENCES review_request(id) ON DELETE CASCADE,
					name TEXT NOT NULL DEFAULT '',
					revision INTEGER NOT NULL DEFAULT 0,
					timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
					repository_id INTEGER NOT NULL DEFAULT 0,
					base_dir TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE TABLE filediff(
					id SERIAL PRIMARY KEY,
					diffset_id INTEGER NOT NULL
						REFERENCES diffset(id) ON DELETE CASCADE,
					source_file TEXT NOT NULL DEFAULT '',
					dest_file TEXT NOT NULL DEFAULT '',
					source_revision TEXT NOT NULL DEFAULT '',
					dest_detail TEXT NOT NULL DEFAULT '',
					is_binary BOOLEAN NOT NULL DEFAULT FALSE,
					diff BYTEA
				)`,
				`CREATE TABLE screenshot(
					id SERIAL PRIMARY KEY,
					review_request_id INTEGER NOT NULL
						REFERENCES review_request(id) ON DELETE CASCADE,
					caption TEXT NOT NULL DEFAULT '',
					draft_caption TEXT NOT NULL DEFAULT '',
					path TEXT NOT NULL DEFAULT '',
					active BOOLEAN NOT NULL DEFAULT FALSE
				)`,
				`CREATE TABLE review(
					id SERIAL PRIMARY KEY,
					review_request_id INTEGER NOT NULL
						REFERENCES review_request(id) ON DELETE CASCADE,
					username TEXT NOT NULL,
					timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
					public BOOLEAN NOT NULL DEFAULT FALSE,
					ship_it BOOLEAN NOT NULL DEFAULT FALSE,
					body_top TEXT NOT NULL DEFAULT '',
					body_bottom TEXT NOT NULL DEFAULT '',
					base_reply_to_id INTEGER NOT NULL DEFAULT 0,
					body_top_reply_to_id INTEGER NOT NULL DEFAULT 0,
					body_bottom_reply_to_id INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE UNIQUE INDEX review_pending
					ON review(review_request_id, username, base_reply_to_id)
					WHERE NOT public`,
				`CREATE TABLE diff_comment(
					id SERIAL PRIMARY KEY,
					review_id INTEGER NOT NULL
						REFERENCES review(id) ON DELETE CASCADE,
					filediff_id INTEGER NOT NULL
						REFERENCES filediff(id) ON DELETE CASCADE,
					interfilediff_id INTEGER NOT NULL DEFAULT 0,
					first_line INTEGER NOT NULL DEFAULT 0,
					num_lines INTEGER NOT NULL DEFAULT 0,
					text TEXT NOT NULL DEFAULT '',
					timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
					reply_to_id INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE screenshot_comment(
					id SERIAL PRIMARY KEY,
					review_id INTEGER NOT NULL
						REFERENCES review(id) ON DELETE CASCADE,
					screenshot_id INTEGER NOT NULL
						REFERENCES screenshot(id) ON DELETE CASCADE,
					x INTEGER NOT NULL DEFAULT 0,
					y INTEGER NOT NULL DEFAULT 0,
					w INTEGER NOT NULL DEFAULT 0,
					h INTEGER NOT NULL DEFAULT 0,
					text TEXT NOT NULL DEFAULT '',
					timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
					reply_to_id INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE watch(
					id TEXT NOT NULL,
					username TEXT NOT NULL,
					kind TEXT NOT NULL,
					object_id INTEGER NOT NULL,
					PRIMARY KEY(username, kind, object_id)
				)`,
			},
			Down: []string{
				"DROP TABLE watch",
				"DROP TABLE screenshot_comment",
				"DROP TABLE diff_comment",
				"DROP TABLE review",
				"DROP TABLE screenshot",
				"DROP TABLE filediff",
				"DROP TABLE diffset",
				"DROP TABLE draft",
				"DROP TABLE change_description",
				"DROP TABLE review_request",
				"DROP TABLE repository",
				"DROP TABLE review_group",
				"DROP TABLE account",
			},
		},
	},
}

// Upgrade upgrades a database to the latest database schema version.
func Upgrade(db *sql.DB) error {
	_, err := migrate.Exec(db, "postgres", migrationSource, migrate.Up)
	return err
}

// Drop clears a database by running all of the migrations in reverse,
// ultimately resulting in dropping all of the tables.
func Drop(db *sql.DB) error {
	_, err := migrate.Exec(db, "postgres", migrationSource, migrate.Down)
	return err
}
