package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Batch accumulates statements and runs them inside a single
// BEGIN/COMMIT TRANSACTION block. Variables are namespaced per statement
// ($id -> $v2_id) so statements written independently can be combined.
//
//	b := database.NewBatch()
//	b.Add("UPDATE type::record($id) SET status = 'attending'", map[string]interface{}{"id": rsvpID})
//	b.Add("UPDATE type::record($id) SET attendee_count = ...", map[string]interface{}{"id": meetupID})
//	results, err := b.Run(ctx, db)
//
// There is no isolation between Add calls; nothing executes until Run.
type Batch struct {
	statements []string
	vars       map[string]interface{}
}

// NewBatch creates an empty batch
func NewBatch() *Batch {
	return &Batch{vars: make(map[string]interface{})}
}

// Add appends a statement, rewriting its variables to batch-unique names
func (b *Batch) Add(query string, vars map[string]interface{}) *Batch {
	n := len(b.statements) + 1

	// longest names first so $meetup_id is rewritten before $meetup
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	stmt := query
	for _, name := range names {
		alias := fmt.Sprintf("v%d_%s", n, name)
		stmt = strings.ReplaceAll(stmt, "$"+name, "$"+alias)
		b.vars[alias] = vars[name]
	}

	b.statements = append(b.statements, stmt)
	return b
}

// Len returns the number of statements in the batch
func (b *Batch) Len() int {
	return len(b.statements)
}

// Build returns the complete transaction query and merged variables
func (b *Batch) Build() (string, map[string]interface{}) {
	if len(b.statements) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("BEGIN TRANSACTION;\n")
	for _, stmt := range b.statements {
		sb.WriteString(strings.TrimSuffix(strings.TrimSpace(stmt), ";"))
		sb.WriteString(";\n")
	}
	sb.WriteString("COMMIT TRANSACTION;")

	return sb.String(), b.vars
}

// Run executes all statements atomically. The returned slice holds one
// {status, result} entry per statement, in order.
func (b *Batch) Run(ctx context.Context, db Database) ([]interface{}, error) {
	query, vars := b.Build()
	if query == "" {
		return nil, nil
	}
	return db.Query(ctx, query, vars)
}
