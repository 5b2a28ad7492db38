/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
)

const (
	ToolLookupPostgres = "lookup_postgres_best_practices"
	DescLookupPostgres = "Look up curated offline PostgreSQL best practices for a topic such as uuid, timestamps, indexing, constraints, performance, security or naming. Unknown topics return every practice."
)

var SchemaLookupPostgres = GetJSONSchema(LookupPostgresReq{})

type LookupPostgresReq struct {
	Topic string `json:"topic" jsonschema:"description=the PostgreSQL topic to look up (e.g. 'uuid' or 'indexing')"`
}

// Practice is one curated best-practice entry.
type Practice struct {
	Topic string
	Text  string
}

// PostgresPractices is the offline reference, in lookup order.
var PostgresPractices = []Practice{
	{"uuid", "Use UUID primary keys for distributed systems and identifiers exposed outside the database. " +
		"On PostgreSQL 13+ use the built-in gen_random_uuid(); older versions need uuid_generate_v4() from the uuid-ossp extension. " +
		"Declare the column as: id UUID PRIMARY KEY DEFAULT gen_random_uuid(). " +
		"UUIDs resist enumeration and stay unique across shards and replicas."},
	{"timestamps", "Use TIMESTAMPTZ (TIMESTAMP WITH TIME ZONE) rather than plain TIMESTAMP so instants are stored UTC-normalized. " +
		"Standard columns: created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(), updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(). " +
		"Keep updated_at current with a trigger or in application code. " +
		"Never store local wall-clock time without an offset."},
	{"indexing", "Index types: B-tree (default, equality and range), GIN (JSONB, arrays, full-text), GiST (geometric, full-text, range types), " +
		"BRIN (very large append-only tables), Hash (equality only, rarely worth it). " +
		"Partial indexes (CREATE INDEX ... WHERE condition) are smaller and faster for sparse predicates. " +
		"Covering indexes with INCLUDE (col1, col2) enable index-only scans. " +
		"Always index foreign key columns so joins avoid sequential scans. " +
		"In composite indexes put equality columns first. " +
		"Watch pg_stat_user_indexes and drop unused indexes to cut write overhead."},
	{"constraints", "NOT NULL on every column that must have a value. " +
		"UNIQUE for single or multi-column uniqueness; it creates an index. " +
		"CHECK for domain rules, e.g. CHECK (price > 0). " +
		"FOREIGN KEY ... REFERENCES with ON DELETE CASCADE, SET NULL or RESTRICT as the relationship requires. " +
		"EXCLUDE constraints prevent overlapping ranges, e.g. EXCLUDE USING gist (room WITH =, during WITH &&). " +
		"PRIMARY KEY implies NOT NULL and UNIQUE. " +
		"Prefer declarative constraints over application-level checks."},
	{"performance", "Pool connections (PgBouncer) to keep connection overhead low. " +
		"VACUUM and autovacuum reclaim dead tuples; tune autovacuum_vacuum_scale_factor for busy tables. " +
		"Diagnose slow queries with EXPLAIN (ANALYZE, BUFFERS). " +
		"Partition large tables by range or list for partition pruning. " +
		"Materialized views cache expensive aggregates; refresh with REFRESH MATERIALIZED VIEW. " +
		"Size work_mem for sorts and hashes. " +
		"Prepared statements save parse and plan time. " +
		"Read replicas absorb heavy read traffic."},
	{"security", "Use SCRAM-SHA-256 authentication in pg_hba.conf. " +
		"Grant least privilege; use separate roles for the application (DML) and migrations (DDL). " +
		"Never connect as a superuser from application code. " +
		"Row-level security isolates tenants: ALTER TABLE ... ENABLE ROW LEVEL SECURITY; CREATE POLICY .... " +
		"Encrypt sensitive columns with pgcrypto and require TLS for connections. " +
		"Audit access with the pgaudit extension."},
	{"naming", "snake_case for every identifier (tables, columns, indexes, functions). " +
		"Tables are plural nouns: users, orders, line_items. " +
		"Primary key id; foreign keys <table_singular>_id, e.g. user_id. " +
		"Booleans take an is_ or has_ prefix: is_active, has_verified_email. " +
		"Timestamps: created_at, updated_at, deleted_at for soft deletes. " +
		"Indexes: idx_<table>_<columns>, e.g. idx_orders_user_id. " +
		"Constraints: uq_<table>_<col> (UNIQUE), fk_<table>_<col> (FOREIGN KEY), ck_<table>_<col> (CHECK)."},
}

// LookupPostgres returns the practice for topic. Matching is exact first,
// then by substring in either direction; with no match every practice is
// returned.
func LookupPostgres(topic string) string {
	q := strings.ToLower(strings.TrimSpace(topic))
	for _, p := range PostgresPractices {
		if p.Topic == q {
			return p.Text
		}
	}
	if q != "" {
		for _, p := range PostgresPractices {
			if strings.Contains(q, p.Topic) || strings.Contains(p.Topic, q) {
				return p.Text
			}
		}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "No exact match for '%s'. Here are all available practices:", topic)
	for _, p := range PostgresPractices {
		fmt.Fprintf(&sb, "\n\n[%s]\n%s", strings.ToUpper(p.Topic), p.Text)
	}
	return sb.String()
}

// LookupPostgresTool is the tool form of LookupPostgres.
func LookupPostgresTool(_ context.Context, req LookupPostgresReq) (string, error) {
	return LookupPostgres(req.Topic), nil
}

// NewLookupPostgresTool builds the offline best-practice lookup tool.
func NewLookupPostgresTool() (tool.InvokableTool, error) {
	return utils.InferTool(ToolLookupPostgres, DescLookupPostgres, LookupPostgresTool,
		utils.WithMarshalOutput(marshalText))
}

func marshalText(_ context.Context, output interface{}) (string, error) {
	if s, ok := output.(string); ok {
		return s, nil
	}
	return fmt.Sprint(output), nil
}
