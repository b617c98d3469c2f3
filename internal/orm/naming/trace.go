package naming

import (
	"fmt"
	"regexp"

	"github.com/conduit-lang/dbdesc/internal/orm/schema"
)

// QueryTracer renders the SQL an ORM would issue to select all rows of an
// entity, for example:
//
//	SELECT [Extent1].[Id] AS [Id] FROM [dbo].[Persons] AS [Extent1]
type QueryTracer interface {
	TraceQuery(e *schema.EntityType) (string, error)
}

// QueryTracerFunc adapts a function to QueryTracer
type QueryTracerFunc func(e *schema.EntityType) (string, error)

// TraceQuery calls f(e)
func (f QueryTracerFunc) TraceQuery(e *schema.EntityType) (string, error) {
	return f(e)
}

// The trace patterns are a compatibility boundary with the bracket-quoted
// trace format of one ORM. Keep them as they are: other trace formats belong
// in their own QueryTracer, not in these expressions.
var (
	traceFromPattern  = regexp.MustCompile(`FROM (?P<table>.*) AS`)
	traceTablePattern = regexp.MustCompile(`(\[\w+\]\.)?\[(?P<table>.*)\]`)
)

// TraceResolver extracts a table name from the query trace of an entity
type TraceResolver struct {
	tracer QueryTracer
}

// NewTraceResolver creates a trace resolver
func NewTraceResolver(t QueryTracer) *TraceResolver {
	return &TraceResolver{tracer: t}
}

// TableName returns the table name found in the trace, or "" when the trace
// does not contain one
func (r *TraceResolver) TableName(e *schema.EntityType) (string, error) {
	sql, err := r.tracer.TraceQuery(e)
	if err != nil {
		return "", fmt.Errorf("failed to trace query for %s: %w", e.Name, err)
	}
	return ExtractTableName(sql), nil
}

// ExtractTableName takes the token between FROM and AS in a query trace and
// strips an optional [schema]. qualifier and the surrounding brackets
func ExtractTableName(trace string) string {
	m := traceFromPattern.FindStringSubmatch(trace)
	if m == nil {
		return ""
	}
	full := m[traceFromPattern.SubexpIndex("table")]

	t := traceTablePattern.FindStringSubmatch(full)
	if t == nil {
		return full
	}
	return t[traceTablePattern.SubexpIndex("table")]
}
