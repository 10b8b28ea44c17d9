package store

const schemaVersion = 3

const schemaSQL = `
CREATE TABLE IF NOT EXISTS meta (
    key                  TEXT PRIMARY KEY,
    value                TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
    file_path            TEXT PRIMARY KEY,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL,
    lines                INTEGER NOT NULL,
    prompts              INTEGER NOT NULL,
    parse_errors         INTEGER NOT NULL,
    last_cwd             TEXT,
    start_ns             INTEGER,
    end_ns               INTEGER,
    parsed_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
    file_path            TEXT NOT NULL REFERENCES files(file_path) ON DELETE CASCADE,
    seq                  INTEGER NOT NULL,
    ts_ns                INTEGER NOT NULL,
    model                TEXT,
    input_tokens         INTEGER NOT NULL,
    output_tokens        INTEGER NOT NULL,
    cache_creation       INTEGER NOT NULL,
    cache_read           INTEGER NOT NULL,
    cost_usd             REAL NOT NULL,
    PRIMARY KEY (file_path, seq)
);

CREATE INDEX IF NOT EXISTS idx_records_ts ON records(ts_ns);
`
