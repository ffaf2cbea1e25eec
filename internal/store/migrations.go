package store

// migrations create the four physical relations. Every statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS vt_schema (
		id          BIGSERIAL PRIMARY KEY,
		name        VARCHAR(48) NOT NULL,
		description VARCHAR(128),
		deleted     BOOLEAN NOT NULL DEFAULT FALSE,
		delete_date TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS vt_schema_live_name ON vt_schema (name) WHERE NOT deleted`,
	`CREATE TABLE IF NOT EXISTS vt_field (
		id        BIGSERIAL PRIMARY KEY,
		name      VARCHAR(48) NOT NULL,
		meta      TEXT,
		ref_id    BIGINT REFERENCES vt_field (id),
		schema_id BIGINT NOT NULL REFERENCES vt_schema (id),
		deleted   BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS vt_field_live_name ON vt_field (schema_id, name) WHERE NOT deleted`,
	`CREATE TABLE IF NOT EXISTS vt_entity (
		id        BIGSERIAL PRIMARY KEY,
		"key"     VARCHAR(48) NOT NULL,
		schema_id BIGINT NOT NULL REFERENCES vt_schema (id),
		deleted   BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS vt_entity_live ON vt_entity (schema_id, id) WHERE NOT deleted`,
	`CREATE TABLE IF NOT EXISTS vt_value (
		id        BIGSERIAL PRIMARY KEY,
		value     TEXT NOT NULL,
		field_id  BIGINT NOT NULL REFERENCES vt_field (id),
		entity_id BIGINT NOT NULL REFERENCES vt_entity (id),
		deleted   BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS vt_value_entity ON vt_value (entity_id)`,
}

// Migrations returns the DDL statements Postgres.Migrate applies, in order.
func Migrations() []string {
	out := make([]string, len(migrations))
	copy(out, migrations)
	return out
}
