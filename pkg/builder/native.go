package builder

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/marshallshelly/pebble-study/pkg/runtime"
	"github.com/marshallshelly/pebble-study/pkg/schema"
)

// NativeStatement is a parsed native SQL statement. Parameters may be
// positional (?1, ?2) or named (:name), but not both. Each is rewritten to a
// PostgreSQL placeholder. A parameter wrapped in % (LIKE %?1%, LIKE :name%)
// becomes a concatenation with the wildcard, and its bound string value is
// matched literally.
//
// A NativeStatement is immutable and safe for concurrent use.
type NativeStatement struct {
	source string
	sql    string
	named  bool
	// slots[i] describes placeholder $i+1.
	slots []nativeSlot
}

type nativeSlot struct {
	position int    // positional: ?N
	name     string // named: :name
	like     bool
}

// ParseNative parses a native statement.
func ParseNative(query string) (*NativeStatement, error) {
	stmt := &NativeStatement{source: query}
	var out strings.Builder
	seenNamed := make(map[string]int)
	seenPos := make(map[int]int)
	positional := false

	n := len(query)
	for i := 0; i < n; i++ {
		ch := query[i]
		switch {
		case ch == '\'' || ch == '"':
			end := skipQuoted(query, i, false)
			out.WriteString(query[i:end])
			i = end - 1

		case (ch == 'E' || ch == 'e') && i+1 < n && query[i+1] == '\'' && (i == 0 || !isIdentPart(query[i-1])):
			end := skipQuoted(query, i+1, true)
			out.WriteString(query[i:end])
			i = end - 1

		case ch == '/' && i+1 < n && query[i+1] == '*':
			end := skipBlockComment(query, i)
			out.WriteString(query[i:end])
			i = end - 1

		case ch == '-' && i+1 < n && query[i+1] == '-':
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				end = n - i
			}
			out.WriteString(query[i : i+end])
			i += end - 1

		case ch == ':' && i+1 < n && query[i+1] == ':':
			// ::type cast
			out.WriteString("::")
			i++

		case ch == '?' || (ch == ':' && i+1 < n && isIdentStart(query[i+1])):
			j := i + 1
			slot := nativeSlot{}
			if ch == '?' {
				for j < n && query[j] >= '0' && query[j] <= '9' {
					j++
				}
				if j == i+1 {
					return nil, fmt.Errorf("native query: bare ? at offset %d, use ?1, ?2", i)
				}
				pos, _ := strconv.Atoi(query[i+1 : j])
				if pos < 1 {
					return nil, fmt.Errorf("native query: parameter positions start at ?1")
				}
				slot.position = pos
				positional = true
			} else {
				for j < n && isIdentPart(query[j]) {
					j++
				}
				slot.name = query[i+1 : j]
				stmt.named = true
			}
			if positional && stmt.named {
				return nil, fmt.Errorf("native query mixes positional and named parameters")
			}

			leading := out.Len() > 0 && strings.HasSuffix(out.String(), "%")
			trailing := j < n && query[j] == '%'
			slot.like = leading || trailing

			var idx int
			var ok bool
			if slot.name != "" {
				idx, ok = seenNamed[slot.name]
			} else {
				idx, ok = seenPos[slot.position]
			}
			if !ok {
				stmt.slots = append(stmt.slots, slot)
				idx = len(stmt.slots)
				if slot.name != "" {
					seenNamed[slot.name] = idx
				} else {
					seenPos[slot.position] = idx
				}
			} else if slot.like {
				stmt.slots[idx-1].like = true
			}

			placeholder := "$" + strconv.Itoa(idx)
			if leading {
				s := out.String()
				out.Reset()
				out.WriteString(s[:len(s)-1])
				placeholder = "'%' || " + placeholder
			}
			if trailing {
				placeholder += " || '%'"
				j++
			}
			out.WriteString(placeholder)
			i = j - 1

		default:
			out.WriteByte(ch)
		}
	}

	stmt.sql = out.String()
	return stmt, nil
}

// MustParseNative is like ParseNative but panics on error.
func MustParseNative(query string) *NativeStatement {
	stmt, err := ParseNative(query)
	if err != nil {
		panic(err)
	}
	return stmt
}

// SQL returns the rewritten statement.
func (s *NativeStatement) SQL() string {
	return s.sql
}

// Named reports whether the statement uses named parameters.
func (s *NativeStatement) Named() bool {
	return s.named
}

// Bind builds the argument list from positional args (for ?N) or named
// bindings (for :name).
func (s *NativeStatement) Bind(positional []any, named map[string]any) ([]any, error) {
	args := make([]any, len(s.slots))
	if s.named {
		if len(positional) > 0 {
			return nil, fmt.Errorf("statement uses named parameters, got %d positional values", len(positional))
		}
		used := 0
		for i, slot := range s.slots {
			v, ok := named[slot.name]
			if !ok {
				return nil, fmt.Errorf("missing value for parameter :%s", slot.name)
			}
			args[i] = likeValue(v, slot.like)
			used++
		}
		if len(named) != used {
			return nil, fmt.Errorf("statement binds %d parameters, got %d", used, len(named))
		}
		return args, nil
	}

	if len(named) > 0 {
		return nil, fmt.Errorf("statement uses positional parameters, got named values")
	}
	maxPos := 0
	for _, slot := range s.slots {
		maxPos = max(maxPos, slot.position)
	}
	if len(positional) != maxPos {
		return nil, fmt.Errorf("statement expects %d positional values, got %d", maxPos, len(positional))
	}
	for i, slot := range s.slots {
		args[i] = likeValue(positional[slot.position-1], slot.like)
	}
	return args, nil
}

func likeValue(v any, like bool) any {
	if s, ok := v.(string); ok && like {
		return EscapeLike(s)
	}
	return v
}

// skipQuoted returns the offset just past the literal or identifier opened
// at start. Doubled quotes are escapes; so are backslashes in E'' strings.
func skipQuoted(s string, start int, backslash bool) int {
	quote := s[start]
	for i := start + 1; i < len(s); i++ {
		if backslash && s[i] == '\\' {
			i++
			continue
		}
		if s[i] == quote {
			if i+1 < len(s) && s[i+1] == quote {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(s)
}

// skipBlockComment returns the offset just past the comment opened at
// start. Block comments nest.
func skipBlockComment(s string, start int) int {
	depth := 0
	for i := start; i+1 < len(s); i++ {
		switch {
		case s[i] == '/' && s[i+1] == '*':
			depth++
			i++
		case s[i] == '*' && s[i+1] == '/':
			depth--
			i++
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(s)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// NativeQuery executes a NativeStatement and maps rows onto T.
type NativeQuery[T any] struct {
	db         *DB
	table      *schema.TableMetadata
	err        error
	stmt       *NativeStatement
	positional []any
	named      map[string]any
}

// Native parses query and returns a NativeQuery for it.
func Native[T any](d *DB, query string) *NativeQuery[T] {
	stmt, err := ParseNative(query)
	q := NativeStmt[T](d, stmt)
	if err != nil {
		q.err = err
	}
	return q
}

// NativeStmt returns a NativeQuery for an already parsed statement.
func NativeStmt[T any](d *DB, stmt *NativeStatement) *NativeQuery[T] {
	table, err := tableFor[T]()
	return &NativeQuery[T]{db: d, table: table, err: err, stmt: stmt}
}

// Args sets the positional values for ?1, ?2, ...
func (q *NativeQuery[T]) Args(values ...any) *NativeQuery[T] {
	q.positional = values
	return q
}

// Bind sets the value of a named parameter.
func (q *NativeQuery[T]) Bind(name string, value any) *NativeQuery[T] {
	if q.named == nil {
		q.named = make(map[string]any)
	}
	q.named[name] = value
	return q
}

// ToSQL returns the rewritten SQL and bound arguments.
func (q *NativeQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	args, err := q.stmt.Bind(q.positional, q.named)
	if err != nil {
		return "", nil, err
	}
	return q.stmt.sql, args, nil
}

// All runs the statement and returns every row.
func (q *NativeQuery[T]) All(ctx context.Context) ([]T, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := q.db.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return scanRows[T](rows, q.table)
}

// One returns the single row, nil when there is none, and
// runtime.ErrNonUniqueResult when there are several.
func (q *NativeQuery[T]) One(ctx context.Context) (*T, error) {
	results, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return &results[0], nil
	default:
		return nil, runtime.ErrNonUniqueResult
	}
}

// Exec runs a modifying statement and returns the affected row count.
func (q *NativeQuery[T]) Exec(ctx context.Context) (int64, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return 0, err
	}
	return q.db.exec.Exec(ctx, sql, args...)
}
