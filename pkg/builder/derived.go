package builder

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/marshallshelly/pebble-study/pkg/registry"
	"github.com/marshallshelly/pebble-study/pkg/schema"
)

// Subject is the action a derived query performs.
type Subject string

const (
	SubjectFind   Subject = "find"
	SubjectCount  Subject = "count"
	SubjectExists Subject = "exists"
	SubjectDelete Subject = "delete"
)

var subjectPrefixes = []struct {
	prefix  string
	subject Subject
}{
	{"find", SubjectFind},
	{"read", SubjectFind},
	{"get", SubjectFind},
	{"query", SubjectFind},
	{"search", SubjectFind},
	{"count", SubjectCount},
	{"exists", SubjectExists},
	{"delete", SubjectDelete},
	{"remove", SubjectDelete},
}

// PartKind is the comparison of one predicate part.
type PartKind int

const (
	PartEqual PartKind = iota
	PartNotEqual
	PartLike
	PartNotLike
	PartContaining
	PartNotContaining
	PartStartingWith
	PartEndingWith
	PartLessThan
	PartLessThanEqual
	PartGreaterThan
	PartGreaterThanEqual
	PartBetween
	PartIsNull
	PartIsNotNull
	PartIn
	PartNotIn
	PartTrue
	PartFalse
)

// Keywords are matched longest first.
var partKeywords = []struct {
	keyword string
	kind    PartKind
}{
	{"IsGreaterThanEqual", PartGreaterThanEqual},
	{"GreaterThanEqual", PartGreaterThanEqual},
	{"IsLessThanEqual", PartLessThanEqual},
	{"IsStartingWith", PartStartingWith},
	{"IsNotContaining", PartNotContaining},
	{"NotContaining", PartNotContaining},
	{"IsGreaterThan", PartGreaterThan},
	{"LessThanEqual", PartLessThanEqual},
	{"StartingWith", PartStartingWith},
	{"IsContaining", PartContaining},
	{"IsEndingWith", PartEndingWith},
	{"GreaterThan", PartGreaterThan},
	{"IsLessThan", PartLessThan},
	{"EndingWith", PartEndingWith},
	{"Containing", PartContaining},
	{"StartsWith", PartStartingWith},
	{"IsNotNull", PartIsNotNull},
	{"IsNotLike", PartNotLike},
	{"IsBetween", PartBetween},
	{"IsBefore", PartLessThan},
	{"EndsWith", PartEndingWith},
	{"Contains", PartContaining},
	{"LessThan", PartLessThan},
	{"IsNotIn", PartNotIn},
	{"NotLike", PartNotLike},
	{"NotNull", PartIsNotNull},
	{"Between", PartBetween},
	{"IsAfter", PartGreaterThan},
	{"IsFalse", PartFalse},
	{"IsNull", PartIsNull},
	{"IsLike", PartLike},
	{"Equals", PartEqual},
	{"Before", PartLessThan},
	{"IsTrue", PartTrue},
	{"NotIn", PartNotIn},
	{"IsNot", PartNotEqual},
	{"After", PartGreaterThan},
	{"False", PartFalse},
	{"Null", PartIsNull},
	{"Like", PartLike},
	{"True", PartTrue},
	{"IsIn", PartIn},
	{"Not", PartNotEqual},
	{"Is", PartEqual},
	{"In", PartIn},
}

// arity returns how many method arguments a part consumes.
func (k PartKind) arity() int {
	switch k {
	case PartIsNull, PartIsNotNull, PartTrue, PartFalse:
		return 0
	case PartBetween:
		return 2
	default:
		return 1
	}
}

// Part is one property comparison of a derived query.
type Part struct {
	Field      string // Go property path as written in the method name
	Column     string // qualified column
	Kind       PartKind
	IgnoreCase bool
}

// Derived is a query parsed from a repository method name such as
// FindByMajorContaining or FindByCityAndMajorOrderByNameAsc. And binds
// tighter than Or. Arguments are consumed left to right.
type Derived[T any] struct {
	method   string
	subject  Subject
	distinct bool
	limit    int
	// alternatives are OR-ed; the parts of each are AND-ed.
	alternatives [][]Part
	order        []OrderBy
	joins        []string
	table        *schema.TableMetadata
	arity        int
}

// Derive parses a method name against the model T.
func Derive[T any](method string) (*Derived[T], error) {
	table, err := tableFor[T]()
	if err != nil {
		return nil, err
	}
	d := &Derived[T]{method: method, table: table}
	if err := d.parse(); err != nil {
		return nil, fmt.Errorf("derive %s on %s: %w", method, table.Name, err)
	}
	return d, nil
}

// MustDerive is like Derive but panics on error, so bad method names fail
// when the repository is constructed.
func MustDerive[T any](method string) *Derived[T] {
	d, err := Derive[T](method)
	if err != nil {
		panic(err)
	}
	return d
}

// Method returns the method name the query was derived from.
func (d *Derived[T]) Method() string { return d.method }

// Subject returns what the query does.
func (d *Derived[T]) Subject() Subject { return d.subject }

// Arity returns the number of arguments the query expects.
func (d *Derived[T]) Arity() int { return d.arity }

// Parts returns the predicate alternatives.
func (d *Derived[T]) Parts() [][]Part { return d.alternatives }

// Order returns the static ORDER BY keys.
func (d *Derived[T]) Order() []OrderBy { return d.order }

func (d *Derived[T]) parse() error {
	rest := d.method
	if r := []rune(rest); len(r) > 0 && unicode.IsUpper(r[0]) {
		rest = string(unicode.ToLower(r[0])) + string(r[1:])
	}

	matched := false
	for _, p := range subjectPrefixes {
		if strings.HasPrefix(rest, p.prefix) {
			d.subject = p.subject
			rest = rest[len(p.prefix):]
			matched = true
			break
		}
	}
	if !matched {
		return fmt.Errorf("unknown subject prefix")
	}

	by := strings.Index(rest, "By")
	if by < 0 {
		return fmt.Errorf("missing By")
	}
	if err := d.parseSubject(rest[:by]); err != nil {
		return err
	}
	rest = rest[by+2:]

	if i := strings.Index(rest, "OrderBy"); i >= 0 {
		if err := d.parseOrder(rest[i+len("OrderBy"):]); err != nil {
			return err
		}
		rest = rest[:i]
	}

	allIgnoreCase := false
	for _, suffix := range []string{"AllIgnoreCase", "AllIgnoringCase"} {
		if strings.HasSuffix(rest, suffix) {
			rest = strings.TrimSuffix(rest, suffix)
			allIgnoreCase = true
		}
	}
	if rest == "" {
		return nil
	}

	for _, alt := range splitKeyword(rest, "Or") {
		var parts []Part
		for _, raw := range splitKeyword(alt, "And") {
			part, err := d.parsePart(raw)
			if err != nil {
				return err
			}
			if allIgnoreCase && d.isString(part.Column) {
				part.IgnoreCase = true
			}
			d.arity += part.Kind.arity()
			parts = append(parts, part)
		}
		d.alternatives = append(d.alternatives, parts)
	}
	return nil
}

// parseSubject handles the words between the prefix and By: Distinct,
// First, TopN, and a free-form noun such as All or Students.
func (d *Derived[T]) parseSubject(s string) error {
	if strings.Contains(s, "Distinct") {
		d.distinct = true
		s = strings.Replace(s, "Distinct", "", 1)
	}
	for _, kw := range []string{"First", "Top"} {
		i := strings.Index(s, kw)
		if i < 0 {
			continue
		}
		digits := s[i+len(kw):]
		end := strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' })
		if end < 0 {
			end = len(digits)
		}
		d.limit = 1
		if end > 0 {
			n, err := strconv.Atoi(digits[:end])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid limit in %q", s)
			}
			d.limit = n
		}
		break
	}
	return nil
}

func (d *Derived[T]) parsePart(raw string) (Part, error) {
	if raw == "" {
		return Part{}, fmt.Errorf("empty predicate")
	}
	part := Part{Kind: PartEqual}
	for _, suffix := range []string{"IgnoreCase", "IgnoringCase"} {
		if strings.HasSuffix(raw, suffix) {
			raw = strings.TrimSuffix(raw, suffix)
			part.IgnoreCase = true
			break
		}
	}

	for _, kw := range partKeywords {
		prop, ok := strings.CutSuffix(raw, kw.keyword)
		if !ok || prop == "" {
			continue
		}
		if column, ok := d.resolve(prop); ok {
			part.Field, part.Column, part.Kind = prop, column, kw.kind
			return part, nil
		}
	}
	column, ok := d.resolve(raw)
	if !ok {
		return Part{}, fmt.Errorf("no property %s", raw)
	}
	part.Field, part.Column = raw, column
	return part, nil
}

// resolve maps a property path to a qualified column. A path may traverse
// a belongsTo relationship, written GroupName or Group_Name for the Name
// field of the Group association; the traversal adds a join.
func (d *Derived[T]) resolve(prop string) (string, bool) {
	if col := d.table.GetColumnByField(prop); col != nil {
		return d.table.Name + "." + col.Name, true
	}
	for _, rel := range d.table.GetRelationshipsByType(schema.BelongsTo) {
		rest, ok := strings.CutPrefix(prop, rel.SourceField)
		if !ok {
			continue
		}
		rest = strings.TrimPrefix(rest, "_")
		if rest == "" {
			continue
		}
		target, err := registry.Get(rel.TargetType)
		if err != nil {
			continue
		}
		col := target.GetColumnByField(rest)
		if col == nil {
			continue
		}
		if !containsString(d.joins, rel.SourceField) {
			d.joins = append(d.joins, rel.SourceField)
		}
		return target.Name + "." + col.Name, true
	}
	return "", false
}

func (d *Derived[T]) parseOrder(s string) error {
	for s != "" {
		found := false
		for i := 1; i < len(s); i++ {
			var dir OrderDirection
			var n int
			switch {
			case strings.HasPrefix(s[i:], "Asc"):
				dir, n = Asc, 3
			case strings.HasPrefix(s[i:], "Desc"):
				dir, n = Desc, 4
			default:
				continue
			}
			if i+n < len(s) && !unicode.IsUpper(rune(s[i+n])) {
				continue
			}
			column, ok := d.resolve(s[:i])
			if !ok {
				continue
			}
			d.order = append(d.order, OrderBy{Column: column, Direction: dir})
			s = s[i+n:]
			found = true
			break
		}
		if !found {
			column, ok := d.resolve(s)
			if !ok {
				return fmt.Errorf("invalid OrderBy clause %q", s)
			}
			d.order = append(d.order, OrderBy{Column: column, Direction: Asc})
			s = ""
		}
	}
	return nil
}

func (d *Derived[T]) isString(qualified string) bool {
	table, column, _ := strings.Cut(qualified, ".")
	meta := d.table
	if table != d.table.Name {
		var err error
		if meta, err = registry.GetByName(table); err != nil {
			return false
		}
	}
	col := meta.GetColumnByName(column)
	return col != nil && col.GoType.Kind() == reflect.String
}

// splitKeyword splits s on a joiner keyword (And, Or) that starts a new
// capitalized word, so Organization and Android are left intact.
func splitKeyword(s, kw string) []string {
	var out []string
	start := 0
	for i := 1; i+len(kw) < len(s); i++ {
		if !strings.HasPrefix(s[i:], kw) {
			continue
		}
		next := rune(s[i+len(kw)])
		if !unicode.IsUpper(next) {
			continue
		}
		out = append(out, s[start:i])
		start = i + len(kw)
		i = start
	}
	return append(out, s[start:])
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Conditions binds args to the predicate and returns the WHERE conditions.
func (d *Derived[T]) Conditions(args ...any) ([]Condition, error) {
	if len(args) != d.arity {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", d.method, d.arity, len(args))
	}
	var groups []Condition
	next := 0
	for _, alt := range d.alternatives {
		var conds []Condition
		for _, part := range alt {
			cond, err := part.condition(args[next : next+part.Kind.arity()])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", d.method, err)
			}
			next += part.Kind.arity()
			conds = append(conds, cond)
		}
		groups = append(groups, Group(conds...))
	}
	if len(groups) == 1 {
		return groups[0].Group, nil
	}
	for i := 1; i < len(groups); i++ {
		groups[i].Logic = LogicOr
	}
	return groups, nil
}

func (p Part) condition(args []any) (Condition, error) {
	col := p.Column
	switch p.Kind {
	case PartEqual:
		if p.IgnoreCase {
			return EqIgnoreCase(col, args[0]), nil
		}
		return Eq(col, args[0]), nil
	case PartNotEqual:
		if p.IgnoreCase {
			return Not(EqIgnoreCase(col, args[0])), nil
		}
		return NotEq(col, args[0]), nil
	case PartLessThan:
		return Lt(col, args[0]), nil
	case PartLessThanEqual:
		return Lte(col, args[0]), nil
	case PartGreaterThan:
		return Gt(col, args[0]), nil
	case PartGreaterThanEqual:
		return Gte(col, args[0]), nil
	case PartBetween:
		return Between(col, args[0], args[1]), nil
	case PartIsNull:
		return IsNull(col), nil
	case PartIsNotNull:
		return IsNotNull(col), nil
	case PartTrue:
		return Eq(col, true), nil
	case PartFalse:
		return Eq(col, false), nil
	case PartIn, PartNotIn:
		values, err := toSlice(args[0])
		if err != nil {
			return Condition{}, fmt.Errorf("%s: %w", p.Field, err)
		}
		if p.Kind == PartIn {
			return In(col, values...), nil
		}
		return NotIn(col, values...), nil
	}

	s, ok := args[0].(string)
	if !ok {
		return Condition{}, fmt.Errorf("%s needs a string argument, got %T", p.Field, args[0])
	}
	var pattern string
	switch p.Kind {
	case PartLike, PartNotLike:
		pattern = s
	case PartContaining, PartNotContaining:
		pattern = "%" + EscapeLike(s) + "%"
	case PartStartingWith:
		pattern = EscapeLike(s) + "%"
	case PartEndingWith:
		pattern = "%" + EscapeLike(s)
	default:
		return Condition{}, fmt.Errorf("unsupported keyword on %s", p.Field)
	}
	op := OpLike
	if p.IgnoreCase {
		op = OpILike
	}
	cond := Condition{Column: col, Operator: op, Value: pattern, Logic: LogicAnd}
	if p.Kind == PartNotLike || p.Kind == PartNotContaining {
		cond.Not = true
	}
	return cond, nil
}

// Query builds the SELECT for args on db, with the static order applied.
func (d *Derived[T]) Query(db *DB, args ...any) (*SelectQuery[T], error) {
	conds, err := d.Conditions(args...)
	if err != nil {
		return nil, err
	}
	q := Select[T](db)
	for _, field := range d.joins {
		q = q.JoinRelation(field)
	}
	if d.distinct {
		q = q.Distinct()
	}
	return q.Where(conds...).OrderBy(d.order...), nil
}

// All runs a find query and returns every match.
func (d *Derived[T]) All(ctx context.Context, db *DB, args ...any) ([]T, error) {
	q, err := d.Query(db, args...)
	if err != nil {
		return nil, err
	}
	if d.limit > 0 {
		q = q.Limit(d.limit)
	}
	return q.All(ctx)
}

// One runs a find query expecting at most one match. It returns nil when
// nothing matches and runtime.ErrNonUniqueResult when several rows do.
func (d *Derived[T]) One(ctx context.Context, db *DB, args ...any) (*T, error) {
	q, err := d.Query(db, args...)
	if err != nil {
		return nil, err
	}
	return q.One(ctx)
}

// Page runs a find query for one page. The static order comes before the
// sort keys of p.
func (d *Derived[T]) Page(ctx context.Context, db *DB, p Pageable, args ...any) (*Page[T], error) {
	q, err := d.Query(db, args...)
	if err != nil {
		return nil, err
	}
	return q.Page(ctx, p)
}

// Count returns the number of matching rows.
func (d *Derived[T]) Count(ctx context.Context, db *DB, args ...any) (int64, error) {
	q, err := d.Query(db, args...)
	if err != nil {
		return 0, err
	}
	return q.Count(ctx)
}

// Exists reports whether any row matches.
func (d *Derived[T]) Exists(ctx context.Context, db *DB, args ...any) (bool, error) {
	q, err := d.Query(db, args...)
	if err != nil {
		return false, err
	}
	return q.Exists(ctx)
}

// Delete removes the matching rows and returns how many were deleted.
// Predicates that traverse an association cannot be deleted by.
func (d *Derived[T]) Delete(ctx context.Context, db *DB, args ...any) (int64, error) {
	if len(d.joins) > 0 {
		return 0, fmt.Errorf("%s: delete across %s is not supported", d.method, strings.Join(d.joins, ", "))
	}
	conds, err := d.Conditions(args...)
	if err != nil {
		return 0, err
	}
	return Delete[T](db).Where(conds...).Exec(ctx)
}
