package repository

// Schema definitions for the Claimcast database.
// Compatible with both SQLite and PostgreSQL.

const schemaCustomerProfiles = `
CREATE TABLE IF NOT EXISTS customer_profiles (
    tenant_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    name TEXT,
    claim_count INTEGER NOT NULL DEFAULT 0,
    profile TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, customer_id)
);

CREATE INDEX IF NOT EXISTS idx_customer_profiles_tenant ON customer_profiles(tenant_id);
`

const schemaRuleConfigs = `
CREATE TABLE IF NOT EXISTS rule_configs (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    bands TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_rule_configs_tenant ON rule_configs(tenant_id);
CREATE INDEX IF NOT EXISTS idx_rule_configs_enabled ON rule_configs(tenant_id, enabled);
`

// schemaForecasts keeps the full forecast as JSON next to the columns
// used for lookups.
const schemaForecasts = `
CREATE TABLE IF NOT EXISTS forecasts (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    as_of TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    risk_score INTEGER NOT NULL,
    decision TEXT,
    created_at TIMESTAMP NOT NULL,
    payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_forecasts_tenant ON forecasts(tenant_id);
CREATE INDEX IF NOT EXISTS idx_forecasts_customer ON forecasts(tenant_id, customer_id, created_at);
CREATE INDEX IF NOT EXISTS idx_forecasts_decision ON forecasts(tenant_id, decision);
`

// schemaGuidelines defines the guidelines table.
// Guidelines group multiple rules with weights into a decline score.
const schemaGuidelines = `
CREATE TABLE IF NOT EXISTS guidelines (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    rules TEXT NOT NULL,
    decline_threshold REAL NOT NULL DEFAULT 0.6,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_guidelines_tenant ON guidelines(tenant_id);
CREATE INDEX IF NOT EXISTS idx_guidelines_enabled ON guidelines(tenant_id, enabled);
`

const schemaThresholds = `
CREATE TABLE IF NOT EXISTS thresholds (
    tenant_id TEXT PRIMARY KEY,
    config TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaCustomerProfiles,
		schemaRuleConfigs,
		schemaForecasts,
		schemaGuidelines,
		schemaThresholds,
	}
}
