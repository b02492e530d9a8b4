package db

var schema = `
CREATE TABLE IF NOT EXISTS stocks (
	product_id VARCHAR(255) PRIMARY KEY,
	quantity BIGINT NOT NULL CHECK (quantity >= 0),
	version BIGINT NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS processed_events (
	event_kind VARCHAR(32) NOT NULL,
	order_id VARCHAR(255) NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (event_kind, order_id)
);
`
