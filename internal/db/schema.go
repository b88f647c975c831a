package db

// sqliteSchema is the DDL for the local SQLite store.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS messages (
    message_id   TEXT PRIMARY KEY,
    thread_id    TEXT NOT NULL,
    from_address TEXT NOT NULL DEFAULT '',
    to_address   TEXT NOT NULL DEFAULT '',
    subject      TEXT NOT NULL DEFAULT '',
    body         TEXT NOT NULL DEFAULT '',
    received_at  TEXT NOT NULL,
    fetched_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS message_labels (
    message_id TEXT NOT NULL REFERENCES messages(message_id) ON DELETE CASCADE,
    label      TEXT NOT NULL,
    PRIMARY KEY (message_id, label)
);

CREATE INDEX IF NOT EXISTS idx_messages_received ON messages(received_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_from ON messages(from_address);
CREATE INDEX IF NOT EXISTS idx_labels_label ON message_labels(label);
`

// postgresSchema is the DDL for the Postgres store.
const postgresSchema = `
CREATE SCHEMA IF NOT EXISTS gmail;

CREATE TABLE IF NOT EXISTS gmail.messages (
    message_id   TEXT PRIMARY KEY,
    thread_id    TEXT NOT NULL,
    from_address TEXT NOT NULL DEFAULT '',
    to_address   TEXT NOT NULL DEFAULT '',
    subject      TEXT NOT NULL DEFAULT '',
    body         TEXT NOT NULL DEFAULT '',
    received_at  TIMESTAMPTZ NOT NULL,
    fetched_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS gmail.message_labels (
    message_id TEXT NOT NULL REFERENCES gmail.messages(message_id) ON DELETE CASCADE,
    label      TEXT NOT NULL,
    PRIMARY KEY (message_id, label)
);

CREATE INDEX IF NOT EXISTS idx_messages_received ON gmail.messages(received_at DESC);
CREATE INDEX IF NOT EXISTS idx_message_labels_label ON gmail.message_labels(label);
`
