package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// queryParams reads typed query params, collecting the first error of each field.
type queryParams struct {
	ctx    echo.Context
	fields []core.FieldError
}

func newQueryParams(ctx echo.Context) *queryParams {
	return &queryParams{ctx: ctx}
}

func (qp *queryParams) fail(name, msg string) {
	qp.fields = append(qp.fields, core.FieldError{Field: name, Error: msg})
}

// Time parses an RFC3339 timestamp; a missing param is the zero time.
func (qp *queryParams) Time(name string) time.Time {
	val := strings.TrimSpace(qp.ctx.QueryParam(name))
	if val == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		qp.fail(name, "must be an RFC3339 timestamp")
		return time.Time{}
	}
	return t.UTC()
}

func (qp *queryParams) Int(name string, def int) int {
	val := strings.TrimSpace(qp.ctx.QueryParam(name))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		qp.fail(name, "must be an integer")
		return def
	}
	return n
}

// Bool returns nil when the param is missing.
func (qp *queryParams) Bool(name string) *bool {
	val := strings.TrimSpace(qp.ctx.QueryParam(name))
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		qp.fail(name, "must be a boolean")
		return nil
	}
	return &b
}

func (qp *queryParams) String(name string) string {
	return strings.TrimSpace(qp.ctx.QueryParam(name))
}

// Strings returns every value of a repeatable param, ignoring blanks.
func (qp *queryParams) Strings(name string) []string {
	var vals []string
	for _, v := range qp.ctx.QueryParams()[name] {
		if v = strings.TrimSpace(v); v != "" {
			vals = append(vals, v)
		}
	}
	return vals
}

func (qp *queryParams) Err() error {
	if len(qp.fields) == 0 {
		return nil
	}
	return core.NewValidationError(nil, qp.fields...)
}
