package sse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/piske-alex/mongoexpr/internal/history"
	"github.com/piske-alex/mongoexpr/internal/sse"
)

func TestFilter_IsMatch(t *testing.T) {
	carsFind := history.NewEntry("db.Cars.find()")
	boatsInsert := history.NewEntry("db.Boats['insertOne']({})")
	unrecognized := history.NewEntry("show collections")

	tests := []struct {
		name        string
		filter      string
		entry       history.Entry
		shouldMatch bool
	}{
		{name: "everything", filter: "*", entry: carsFind, shouldMatch: true},
		{name: "empty filter", filter: "", entry: boatsInsert, shouldMatch: true},
		{name: "bare collection", filter: "Cars", entry: carsFind, shouldMatch: true},
		{name: "bare collection other", filter: "Cars", entry: boatsInsert, shouldMatch: false},
		{name: "collection wildcard method", filter: "Cars.*", entry: carsFind, shouldMatch: true},
		{name: "wildcard collection", filter: "*.insertOne", entry: boatsInsert, shouldMatch: true},
		{name: "empty method side", filter: "Boats.", entry: boatsInsert, shouldMatch: true},
		{name: "exact", filter: "Cars.find", entry: carsFind, shouldMatch: true},
		{name: "exact other method", filter: "Cars.aggregate", entry: carsFind, shouldMatch: false},
		{name: "unrecognized with wildcard", filter: "*.*", entry: unrecognized, shouldMatch: true},
		{name: "unrecognized with method", filter: "*.find", entry: unrecognized, shouldMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.shouldMatch, sse.NewFilter(tt.filter).IsMatch(tt.entry))
		})
	}
}

func TestNewFilter_DottedCollection(t *testing.T) {
	f := sse.NewFilter("system.users.find")
	assert.Equal(t, "system.users", f.Collection)
	assert.Equal(t, "find", f.Method)
}
