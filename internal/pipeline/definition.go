// Package pipeline loads FLWOR pipelines from YAML definitions.
package pipeline

import (
	"errors"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// ErrInvalidDefinition is returned for definitions that cannot be compiled.
var ErrInvalidDefinition = errors.New("invalid pipeline definition")

// Definition is the YAML form of a FLWOR expression.
type Definition struct {
	Clauses []ClauseDef `json:"clauses"`
	Return  *ExprDef    `json:"return"`
}

// ExprDef is an expression: either a CEL program or a path.
type ExprDef struct {
	CEL  string `json:"cel,omitempty"`
	Path string `json:"path,omitempty"`
}

// ClauseDef holds exactly one clause.
type ClauseDef struct {
	For     *ForDef    `json:"for,omitempty"`
	Let     *LetDef    `json:"let,omitempty"`
	Where   *ExprDef   `json:"where,omitempty"`
	GroupBy []GroupDef `json:"groupBy,omitempty"`
	OrderBy []OrderDef `json:"orderBy,omitempty"`
	Count   *CountDef  `json:"count,omitempty"`
	Trace   *TraceDef  `json:"trace,omitempty"`
}

type ForDef struct {
	Var           string  `json:"var"`
	At            string  `json:"at,omitempty"`
	In            ExprDef `json:"in"`
	AllowingEmpty bool    `json:"allowingEmpty,omitempty"`
}

type LetDef struct {
	Var   string  `json:"var"`
	Value ExprDef `json:"value"`
}

type GroupDef struct {
	Var       string  `json:"var"`
	Key       ExprDef `json:"key"`
	Collation string  `json:"collation,omitempty"`
}

type OrderDef struct {
	Key           ExprDef `json:"key"`
	Order         string  `json:"order,omitempty"`
	EmptyGreatest bool    `json:"emptyGreatest,omitempty"`
	Collation     string  `json:"collation,omitempty"`
	Language      string  `json:"language,omitempty"`
	CaseOrder     string  `json:"caseOrder,omitempty"`
	DataType      string  `json:"dataType,omitempty"`
}

type CountDef struct {
	Var string `json:"var"`
}

type TraceDef struct {
	Label string `json:"label"`
}

// Parse decodes a YAML definition. Unknown fields are rejected.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.UnmarshalStrict(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return &def, nil
}

// Load reads and decodes the definition in the named file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline %s: %w", path, err)
	}
	return Parse(data)
}
