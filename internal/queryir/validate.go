package queryir

import (
	"errors"
	"fmt"

	"github.com/roach88/fieldsync/internal/value"
)

// Validate checks a predicate tree before compilation:
//   - field names are non-empty
//   - Equals never compares against Null (it would match nothing)
//   - Raw placeholder count matches its Args
//
// A nil predicate is valid and means "no condition".
func Validate(p Predicate) error {
	var errs []error
	validatePredicate(p, &errs)
	return errors.Join(errs...)
}

func validatePredicate(p Predicate, errs *[]error) {
	switch pred := p.(type) {
	case nil:
	case Raw:
		validateRaw(pred, errs)
	case *Raw:
		validateRaw(*pred, errs)
	case Equals:
		validateEquals(pred, errs)
	case *Equals:
		validateEquals(*pred, errs)
	case IsNull:
		if pred.Field == "" {
			*errs = append(*errs, errors.New("IsNull: empty field name"))
		}
	case *IsNull:
		validatePredicate(*pred, errs)
	case And:
		for _, sub := range pred.Predicates {
			validatePredicate(sub, errs)
		}
	case *And:
		validatePredicate(*pred, errs)
	default:
		*errs = append(*errs, fmt.Errorf("unknown predicate type %T", p))
	}
}

func validateRaw(r Raw, errs *[]error) {
	if r.SQL == "" {
		*errs = append(*errs, errors.New("Raw: empty SQL"))
		return
	}
	if n := Placeholders(r.SQL); n != len(r.Args) {
		*errs = append(*errs, fmt.Errorf("Raw %q: %d placeholders, %d args", r.SQL, n, len(r.Args)))
	}
}

func validateEquals(eq Equals, errs *[]error) {
	if eq.Field == "" {
		*errs = append(*errs, errors.New("Equals: empty field name"))
	}
	switch eq.Value.(type) {
	case nil, value.Null:
		*errs = append(*errs, fmt.Errorf("Equals %s: compared to NULL, use IsNull", eq.Field))
	}
}

// Placeholders counts "?" parameters in sql, ignoring any inside quoted
// strings or identifiers.
func Placeholders(sql string) int {
	n := 0
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
		}
	}
	return n
}
