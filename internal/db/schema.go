package db

// SchemaSQL defines the conversation log and trading state tables.
const SchemaSQL = `
    -- ==========================================================================
    -- CONVERSATION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS conversation SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS message ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS response ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS timestamp ON conversation TYPE datetime DEFAULT time::now();
    -- Monotonic per-process sequence; breaks timestamp ties in insertion order
    DEFINE FIELD IF NOT EXISTS seq ON conversation TYPE int DEFAULT 0;

    DEFINE INDEX IF NOT EXISTS conversation_user ON conversation FIELDS user_id, timestamp;

    -- ==========================================================================
    -- TRADING STATE TABLE
    -- ==========================================================================
    -- Record ID is the user ID; one row per user
    DEFINE TABLE IF NOT EXISTS trading_state SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON trading_state TYPE string;
    DEFINE FIELD IF NOT EXISTS convinced ON trading_state TYPE bool DEFAULT false;
`
