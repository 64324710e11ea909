package loader

import (
	"context"
	"strings"

	"github.com/andrewyatz/ensembl-registry/adaptor"
)

// fakeConn is a scripted adaptor.QueryRunner used across the loader
// package's tests: ShowDatabasesLike answers from a fixed name list
// filtered by the SQL LIKE pattern used against it, and Query answers
// canned rows keyed by (dbname, query).
type fakeConn struct {
	databases []string
	rows      map[string]map[string][]adaptor.Row

	connected bool
	closed    bool
}

func (f *fakeConn) Connect(ctx context.Context) error {
	f.connected = true
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func (f *fakeConn) ShowDatabasesLike(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	for _, name := range f.databases {
		if likeMatch(pattern, name) {
			out = append(out, name)
		}
	}
	return out, nil
}

func (f *fakeConn) Query(ctx context.Context, dbname, query string, args ...interface{}) ([]adaptor.Row, error) {
	if byQuery, ok := f.rows[dbname]; ok {
		return byQuery[query], nil
	}
	return nil, nil
}

// likeMatch implements just enough of SQL LIKE for tests: a literal "%" at
// the start and/or end of pattern is treated as a wildcard, everything
// else must match exactly.
func likeMatch(pattern, name string) bool {
	prefixWild := len(pattern) > 0 && pattern[0] == '%'
	suffixWild := len(pattern) > 0 && pattern[len(pattern)-1] == '%'
	core := pattern
	if prefixWild {
		core = core[1:]
	}
	if suffixWild && len(core) > 0 {
		core = core[:len(core)-1]
	}

	switch {
	case prefixWild && suffixWild:
		return strings.Contains(name, core)
	case prefixWild:
		return strings.HasSuffix(name, core)
	case suffixWild:
		return strings.HasPrefix(name, core)
	default:
		return name == core
	}
}
