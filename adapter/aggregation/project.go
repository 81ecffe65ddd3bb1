package aggregation

import (
	"context"
	"fmt"
	"slices"

	"github.com/vinicius-lino-figueiredo/docq/domain"
	"github.com/vinicius-lino-figueiredo/docq/pkg/structure"
)

type namedExpr struct {
	name string
	expr Expr
}

// ProjectStage reshapes records: it keeps or removes fields and computes new
// ones from expressions.
type ProjectStage struct {
	keep      map[string]uint8
	exprs     []namedExpr
	includes  int
	excludeID bool
	inclusion bool
}

// Project builds a project stage. Values set to 1 or true keep a field, 0 or
// false remove it and anything else is an expression. Only _id can be
// removed next to kept or computed fields.
func Project(spec any) (*ProjectStage, error) {
	fields, _, err := structure.Seq2(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: $project: %w", domain.ErrInvalidSpec, err)
	}

	p := &ProjectStage{keep: make(map[string]uint8)}
	excludes := 0
	for name, value := range fields {
		if flag, ok := projectFlag(value); ok {
			p.keep[name] = flag
			switch {
			case name == "_id":
				p.excludeID = flag == 0
			case flag == 0:
				excludes++
			default:
				p.includes++
			}
			continue
		}
		expr, err := ParseExpr(value)
		if err != nil {
			return nil, err
		}
		p.exprs = append(p.exprs, namedExpr{name: name, expr: expr})
	}

	if len(p.keep) == 0 && len(p.exprs) == 0 {
		return nil, fmt.Errorf("%w: $project needs at least one field", domain.ErrInvalidSpec)
	}
	if excludes > 0 && (p.includes > 0 || len(p.exprs) > 0) {
		return nil, fmt.Errorf("%w: $project cannot mix exclusions with inclusions", domain.ErrInvalidSpec)
	}
	p.inclusion = p.includes > 0 || len(p.exprs) > 0 || (excludes == 0 && !p.excludeID)
	slices.SortFunc(p.exprs, func(a, b namedExpr) int {
		switch {
		case a.name < b.name:
			return -1
		case a.name > b.name:
			return 1
		}
		return 0
	})
	return p, nil
}

func projectFlag(v any) (uint8, bool) {
	if b, ok := v.(bool); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	if f, ok := structure.AsFloat(v); ok {
		if f != 0 {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Apply implements [Stage].
func (p *ProjectStage) Apply(ctx context.Context, docs []domain.Document) ([]domain.Document, error) {
	return p.apply(ctx, newEnv(), docs)
}

func (p *ProjectStage) apply(ctx context.Context, e *env, docs []domain.Document) ([]domain.Document, error) {
	if !p.inclusion {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return e.projector.Project(docs, p.keep)
	}

	res := make([]domain.Document, 0, len(docs))
	err := each(ctx, docs, func(doc domain.Document) error {
		out, err := p.project(e, doc)
		if err != nil {
			return e.drop("$project", doc, err)
		}
		res = append(res, out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *ProjectStage) project(e *env, doc domain.Document) (domain.Document, error) {
	var out domain.Document
	if p.includes > 0 {
		projected, err := e.projector.Project([]domain.Document{doc}, p.keep)
		if err != nil {
			return nil, err
		}
		out = projected[0]
	} else {
		var err error
		if out, err = e.docFac(nil); err != nil {
			return nil, err
		}
		if !p.excludeID && doc.Has("_id") {
			out.Set("_id", doc.ID())
		}
	}

	for _, ne := range p.exprs {
		value, defined, err := ne.expr.eval(e, doc)
		if err != nil {
			return nil, fmt.Errorf("computing %q: %w", ne.name, err)
		}
		if !defined {
			continue
		}
		addr, err := e.fieldNavigator.GetAddress(ne.name)
		if err != nil {
			return nil, err
		}
		fields, err := e.fieldNavigator.EnsureField(out, addr...)
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			f.Set(value)
		}
	}
	return out, nil
}
