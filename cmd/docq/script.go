package main

import (
	"context"

	"github.com/vinicius-lino-figueiredo/docq"
)

type M = docq.M

type A = []any

// step is one query of the bookstore script. run returns either a
// [docq.Cursor] or a value printed as JSON.
type step struct {
	label string
	run   func(ctx context.Context, db docq.DB) (any, error)
}

func find(filter any, opts ...docq.FindOption) func(context.Context, docq.DB) (any, error) {
	return func(ctx context.Context, db docq.DB) (any, error) {
		return db.Find(ctx, filter, opts...)
	}
}

func aggregate(stages ...any) func(context.Context, docq.DB) (any, error) {
	return func(ctx context.Context, db docq.DB) (any, error) {
		return db.Aggregate(ctx, stages...)
	}
}

func createIndex(fields ...docq.IndexField) func(context.Context, docq.DB) (any, error) {
	return func(ctx context.Context, db docq.DB) (any, error) {
		name, err := db.CreateIndex(ctx, fields...)
		return M{"indexName": name}, err
	}
}

func explain(filter any, opts ...docq.FindOption) func(context.Context, docq.DB) (any, error) {
	return func(ctx context.Context, db docq.DB) (any, error) {
		return db.Explain(ctx, filter, opts...)
	}
}

func script() []step {
	byPrice := func(order int64) docq.FindOption {
		return docq.WithSort(docq.Sort{{Key: "price", Order: order}})
	}
	hobbit := M{"title": "The Hobbit"}

	return []step{
		{"1. All Fiction Books", find(M{"genre": "Fiction"})},
		{"2. Books Published After 1950", find(M{"published_year": M{"$gt": 1950}})},
		{"3. Books by J.R.R. Tolkien", find(M{"author": "J.R.R. Tolkien"})},
		{"4. Update The Hobbit Price", func(ctx context.Context, db docq.DB) (any, error) {
			return db.UpdateOne(ctx, hobbit, M{"$set": M{"price": 24.99}})
		}},
		{"5. Delete '1984'", func(ctx context.Context, db docq.DB) (any, error) {
			return db.DeleteOne(ctx, M{"title": "1984"})
		}},
		{"6. In-Stock Books Published After 2010", find(M{
			"in_stock":       true,
			"published_year": M{"$gt": 2010},
		})},
		{"7. Books with Title, Author, and Price Only", find(M{},
			docq.WithProjection(M{"title": 1, "author": 1, "price": 1, "_id": 0}),
		)},
		{"8a. Books Sorted by Price (Ascending)", find(nil, byPrice(1))},
		{"8b. Books Sorted by Price (Descending)", find(nil, byPrice(-1))},
		{"9a. Pagination - Page 1", find(nil, docq.WithLimit(5))},
		{"9b. Pagination - Page 2", find(nil, docq.WithSkip(5), docq.WithLimit(5))},
		{"10. Average Price by Genre", aggregate(
			M{"$group": M{
				"_id":          "$genre",
				"averagePrice": M{"$avg": "$price"},
				"count":        M{"$sum": 1},
			}},
			M{"$sort": M{"averagePrice": -1}},
		)},
		{"11. Author with Most Books", aggregate(
			M{"$group": M{"_id": "$author", "bookCount": M{"$sum": 1}}},
			M{"$sort": M{"bookCount": -1}},
			M{"$limit": 1},
		)},
		{"12. Books Grouped by Publication Decade", aggregate(
			M{"$project": M{"decade": M{"$subtract": A{
				"$published_year",
				M{"$mod": A{"$published_year", 10}},
			}}}},
			M{"$group": M{"_id": "$decade", "count": M{"$sum": 1}}},
			M{"$sort": M{"_id": 1}},
		)},
		{"13. Created Index on Title Field", createIndex(
			docq.IndexField{Field: "title", Direction: 1},
		)},
		{"14. Created Compound Index on Author and Published Year", createIndex(
			docq.IndexField{Field: "author", Direction: 1},
			docq.IndexField{Field: "published_year", Direction: 1},
		)},
		{"15a. Query Execution Without Hint", explain(hobbit)},
		{"15b. Query Execution With Index Hint", explain(hobbit, docq.WithHint("title_1"))},
	}
}
