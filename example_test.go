package docq_test

import (
	"context"
	"fmt"

	"github.com/vinicius-lino-figueiredo/docq"
	"github.com/vinicius-lino-figueiredo/docq/adapter/aggregation"
)

type M = docq.M

type A = []any

func bookstore(ctx context.Context) docq.DB {
	db, _ := docq.NewDB()
	_, _ = db.Insert(ctx,
		M{"_id": "1", "title": "The Hobbit", "author": "J.R.R. Tolkien", "genre": "Fantasy", "published_year": 1937, "price": 14.99, "in_stock": true},
		M{"_id": "2", "title": "1984", "author": "George Orwell", "genre": "Dystopian", "published_year": 1949, "price": 10.99, "in_stock": true},
		M{"_id": "3", "title": "Animal Farm", "author": "George Orwell", "genre": "Political Satire", "published_year": 1945, "price": 8.5, "in_stock": false},
		M{"_id": "4", "title": "The Silmarillion", "author": "J.R.R. Tolkien", "genre": "Fantasy", "published_year": 1977, "price": 20, "in_stock": true},
		M{"_id": "5", "title": "The Martian", "author": "Andy Weir", "genre": "Science Fiction", "published_year": 2011, "price": 9.99, "in_stock": true},
	)
	return db
}

func ExampleNewDB() {
	ctx := context.Background()

	// Every collaborator has a default, so no option is required.
	db, _ := docq.NewDB(docq.WithTimestamps(false))

	// Documents can be maps or structs. Missing _id values are generated.
	id, _ := db.InsertOne(ctx, M{"_id": "hobbit", "title": "The Hobbit"})
	fmt.Println(id)

	var res M
	_ = db.FindOne(ctx, M{"title": "The Hobbit"}, &res)
	fmt.Println(res)
	// Output:
	// hobbit
	// map[_id:hobbit title:The Hobbit]
}

func ExampleDB_Find() {
	ctx := context.Background()
	db := bookstore(ctx)

	cur, _ := db.Find(ctx,
		M{"published_year": M{"$gt": 1940}},
		docq.WithProjection(M{"title": 1, "price": 1, "_id": 0}),
		docq.WithSort(docq.Sort{{Key: "price", Order: -1}}),
		docq.WithLimit(3),
	)
	defer cur.Close()
	for cur.Next() {
		var book struct {
			Title string  `docq:"title"`
			Price float64 `docq:"price"`
		}
		_ = cur.Scan(ctx, &book)
		fmt.Printf("%s %.2f\n", book.Title, book.Price)
	}
	// Output:
	// The Silmarillion 20.00
	// 1984 10.99
	// The Martian 9.99
}

func ExampleDB_UpdateOne() {
	ctx := context.Background()
	db := bookstore(ctx)

	res, _ := db.UpdateOne(ctx, M{"title": "The Hobbit"}, M{"$set": M{"price": 24.99}})
	fmt.Println(res.MatchedCount, res.ModifiedCount)

	// setting the same value again matches without modifying
	res, _ = db.UpdateOne(ctx, M{"title": "The Hobbit"}, M{"$set": M{"price": 24.99}})
	fmt.Println(res.MatchedCount, res.ModifiedCount)
	// Output:
	// 1 1
	// 1 0
}

func ExampleDB_Aggregate() {
	ctx := context.Background()
	db := bookstore(ctx)

	// Stages can be documents or values built by the aggregation package.
	cur, _ := db.Aggregate(ctx,
		M{"$project": M{"decade": M{"$subtract": A{
			"$published_year",
			M{"$mod": A{"$published_year", 10}},
		}}}},
		M{"$group": M{"_id": "$decade", "count": M{"$sum": 1}}},
		aggregation.SortBy(docq.SortName{Key: "_id", Order: 1}),
	)
	defer cur.Close()
	for cur.Next() {
		var res M
		_ = cur.Scan(ctx, &res)
		fmt.Println(res["_id"], res["count"])
	}
	// Output:
	// 1930 1
	// 1940 2
	// 1970 1
	// 2010 1
}

func ExampleDB_Explain() {
	ctx := context.Background()
	db := bookstore(ctx)

	before, _ := db.Explain(ctx, M{"title": "The Hobbit"})
	fmt.Println(before.ExecutionPath, before.EstimatedDocsExamined)

	name, _ := db.CreateIndex(ctx, docq.IndexField{Field: "title", Direction: 1})
	after, _ := db.Explain(ctx, M{"title": "The Hobbit"}, docq.WithHint(name))
	fmt.Println(after.ExecutionPath, after.IndexName, after.IndexBounds, after.EstimatedDocsExamined)
	// Output:
	// COLLSCAN 5
	// IXSCAN title_1 [The Hobbit] 1
}
