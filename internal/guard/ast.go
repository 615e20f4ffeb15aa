package guard

import (
	"github.com/xwb1989/sqlparser"
)

// parsedQuery is the MySQL grammar's view of a statement. It exists only when
// the grammar accepts the text; the token rules are authoritative otherwise.
type parsedQuery struct {
	stmt sqlparser.Statement
}

func parseMySQL(sql string) *parsedQuery {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil
	}
	return &parsedQuery{stmt: stmt}
}

func (p *parsedQuery) isSelect() bool {
	switch p.stmt.(type) {
	case *sqlparser.Select, *sqlparser.Union, *sqlparser.ParenSelect:
		return true
	}
	return false
}

// tables returns every table named in a FROM or JOIN, subqueries included.
func (p *parsedQuery) tables() []tableRef {
	var refs []tableRef
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		aliased, ok := node.(*sqlparser.AliasedTableExpr)
		if !ok {
			return true, nil
		}
		if tn, ok := aliased.Expr.(sqlparser.TableName); ok {
			ref := tableRef{name: tn.Name.String()}
			if !tn.Qualifier.IsEmpty() {
				ref.qualifier = []string{tn.Qualifier.String()}
			}
			refs = append(refs, ref)
		}
		return true, nil
	}, p.stmt)
	return refs
}
