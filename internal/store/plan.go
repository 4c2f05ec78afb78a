// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// PlanNode is one node of an EXPLAIN (FORMAT JSON) plan.
type PlanNode struct {
	NodeType     string     `json:"Node Type"`
	RelationName string     `json:"Relation Name,omitempty"`
	IndexName    string     `json:"Index Name,omitempty"`
	Plans        []PlanNode `json:"Plans,omitempty"`
}

// Plan is a parsed query plan.
type Plan struct {
	Root PlanNode
}

// ParsePlan decodes the output of EXPLAIN (FORMAT JSON).
func ParsePlan(raw []byte) (*Plan, error) {
	var doc []struct {
		Plan PlanNode `json:"Plan"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("parse plan: empty document")
	}
	return &Plan{Root: doc[0].Plan}, nil
}

// Nodes returns every node of the plan in depth-first order.
func (p *Plan) Nodes() []PlanNode {
	var out []PlanNode
	var walk func(n PlanNode)
	walk = func(n PlanNode) {
		out = append(out, n)
		for _, child := range n.Plans {
			walk(child)
		}
	}
	walk(p.Root)
	return out
}

// UsesIndex reports whether table is read through an index. Bitmap heap
// scans count: they are driven by a bitmap index scan underneath.
func (p *Plan) UsesIndex(table string) bool {
	for _, n := range p.Nodes() {
		if n.RelationName != table {
			continue
		}
		switch n.NodeType {
		case "Index Scan", "Index Only Scan", "Bitmap Heap Scan":
			return true
		}
	}
	return false
}

// Indexes returns the names of every index the plan reads.
func (p *Plan) Indexes() []string {
	var out []string
	for _, n := range p.Nodes() {
		if n.IndexName != "" {
			out = append(out, n.IndexName)
		}
	}
	return out
}

// SeqScans returns the tables read with a sequential scan.
func (p *Plan) SeqScans() []string {
	var out []string
	for _, n := range p.Nodes() {
		if n.NodeType == "Seq Scan" {
			out = append(out, n.RelationName)
		}
	}
	return out
}

// ExplainPostQuery plans the base statement Fetch would run for query
// and returns its access path. The statement is planned, not executed.
func ExplainPostQuery(ctx context.Context, q Querier, query PostQuery) (*Plan, error) {
	b, err := buildPostQuery(query)
	if err != nil {
		return nil, err
	}
	var raw []byte
	if err := q.QueryRowContext(ctx, "EXPLAIN (FORMAT JSON) "+b.sql, b.args...).Scan(&raw); err != nil {
		return nil, wrapErr("explain posts", err)
	}
	return ParsePlan(raw)
}
