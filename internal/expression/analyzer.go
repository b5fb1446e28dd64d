// Package expression extracts the target collection and invoked method from
// Mongo shell expressions such as db.Cars.find({}) or db.Cars['find']({}).
//
// Extraction is purely lexical: nothing is evaluated, arguments are never
// parsed, and anything after the method segment is ignored.
package expression

import "errors"

// ErrNotRecognized is returned for any input that does not have the shape
// db.<collection>.<method>. Malformed and absent segments are not distinguished.
var ErrNotRecognized = errors.New("expression not recognized")

// Result holds the facts extracted from an expression
type Result struct {
	Expression string `json:"expression" yaml:"expression"`
	Collection string `json:"collection" yaml:"collection"`
	Method     string `json:"method" yaml:"method"`
	Kind       Kind   `json:"kind" yaml:"kind"`
	View       View   `json:"view" yaml:"view"`
}

// Analyze extracts the collection and method segments of expr
func Analyze(expr string) (Result, error) {
	s := NewScanner(expr)

	collection, ok := s.Next()
	if !ok {
		return Result{}, ErrNotRecognized
	}
	method, ok := s.Next()
	if !ok {
		return Result{}, ErrNotRecognized
	}

	kind := KindOf(method.Name)
	return Result{
		Expression: expr,
		Collection: collection.Name,
		Method:     method.Name,
		Kind:       kind,
		View:       ViewFor(kind),
	}, nil
}

// MongoMethodName returns the method invoked by expr. The second result is
// false when expr is not a string or is not recognized.
func MongoMethodName(expr any) (string, bool) {
	s, ok := expr.(string)
	if !ok {
		return "", false
	}
	res, err := Analyze(s)
	if err != nil {
		return "", false
	}
	return res.Method, true
}

// CollectionName returns the collection referenced by expr. Unlike
// MongoMethodName it does not require a method segment, so db.Cars yields Cars.
func CollectionName(expr any) (string, bool) {
	s, ok := expr.(string)
	if !ok {
		return "", false
	}
	collection, ok := NewScanner(s).Next()
	if !ok {
		return "", false
	}
	return collection.Name, true
}
